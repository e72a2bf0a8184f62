package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldIndex(t *testing.T, f Field) int {
	t.Helper()
	for i, c := range CorrelationFields {
		if c == f {
			return i
		}
	}
	t.Fatalf("unknown field %s", f)
	return -1
}

func TestCorrelationShape(t *testing.T) {
	m := Correlation(fixtureTable().All())
	require.False(t, m.Insufficient)
	require.Len(t, m.Fields, len(CorrelationFields))
	assert.Equal(t, "Mileage", m.Fields[0])
	assert.Equal(t, "Safety Rating", m.Fields[6])

	for i := range m.Values {
		assert.Equal(t, 1.0, m.Values[i][i])
		for j := range m.Values[i] {
			a, b := m.Values[i][j], m.Values[j][i]
			if math.IsNaN(a) {
				assert.True(t, math.IsNaN(b))
				continue
			}
			assert.Equal(t, a, b)
			assert.GreaterOrEqual(t, a, -1.0)
			assert.LessOrEqual(t, a, 1.0)
		}
	}
}

func TestCorrelationValues(t *testing.T) {
	m := Correlation(fixtureTable().All())
	price := fieldIndex(t, FieldPrice)
	discount := fieldIndex(t, FieldDiscount)
	tax := fieldIndex(t, FieldTax)
	engine := fieldIndex(t, FieldEngineSize)

	// Discount and tax are fixed fractions of price in the fixture.
	assert.Equal(t, 1.0, m.Values[price][discount])
	assert.Equal(t, 1.0, m.Values[price][tax])
	// Engine size is constant, so it has no defined correlation.
	assert.True(t, math.IsNaN(m.Values[price][engine]))
}

func TestCorrelationInsufficient(t *testing.T) {
	single := NewTable([]Record{sale("Acme", "Petrol", 1, 2020, 5000, "2024-01-01")})
	m := Correlation(single.All())
	assert.True(t, m.Insufficient)
	for _, row := range m.Values {
		for _, v := range row {
			assert.True(t, math.IsNaN(v))
		}
	}
}

func TestCorrelationConstantFractionalColumns(t *testing.T) {
	// Centring 0.1 and 1.6 leaves non-zero residue; they must still read as constant.
	rows := []Record{
		sale("Acme", "Petrol", 1000, 2020, 10000, "2024-01-05"),
		sale("Acme", "Petrol", 2000, 2021, 12000, "2024-01-06"),
		sale("Acme", "Petrol", 5000, 2019, 9000, "2024-01-07"),
	}
	for i := range rows {
		rows[i].SafetyRating = 0.1
	}
	m := Correlation(NewTable(rows).All())
	safety := fieldIndex(t, FieldSafetyRating)
	engine := fieldIndex(t, FieldEngineSize)
	price := fieldIndex(t, FieldPrice)

	assert.True(t, math.IsNaN(m.Values[safety][engine]))
	assert.True(t, math.IsNaN(m.Values[price][safety]))
	assert.True(t, math.IsNaN(m.Values[engine][price]))
	assert.Equal(t, 1.0, m.Values[safety][safety])
	assert.False(t, math.IsNaN(m.Values[price][fieldIndex(t, FieldMileage)]))
}
