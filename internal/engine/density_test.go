package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistributionHistogram(t *testing.T) {
	d := Distribution(fixtureTable().All(), 2000, 50)
	require.False(t, d.Insufficient)
	assert.Equal(t, 2000.0, d.BinSize)
	assert.Len(t, d.Values, 6)

	require.Len(t, d.Bins, 13)
	assert.Equal(t, 6000.0, d.Bins[0].Start)
	assert.Equal(t, 8000.0, d.Bins[0].End)
	assert.Equal(t, 1, d.Bins[0].Count)

	var total int
	var area float64
	for _, b := range d.Bins {
		total += b.Count
		area += b.Density * (b.End - b.Start)
	}
	assert.Equal(t, 6, total)
	assert.InDelta(t, 1.0, area, 1e-9)
}

func TestDistributionDensityCurve(t *testing.T) {
	d := Distribution(fixtureTable().All(), 2000, 50)
	require.Len(t, d.Density, 50)
	assert.Equal(t, 7000.0, d.Density[0].X)
	assert.InDelta(t, 31000.0, d.Density[49].X, 1e-6)
	for _, p := range d.Density {
		assert.Greater(t, p.Y, 0.0)
	}
}

func TestDistributionDefaults(t *testing.T) {
	d := Distribution(fixtureTable().All(), 0, 0)
	assert.Equal(t, defaultBinSize, d.BinSize)
	assert.Len(t, d.Density, defaultKDEPoints)
}

func TestDistributionInsufficient(t *testing.T) {
	single := NewTable([]Record{sale("Acme", "Petrol", 1, 2020, 5000, "2024-01-01")})
	d := Distribution(single.All(), 2000, 50)
	assert.True(t, d.Insufficient)
	assert.Empty(t, d.Density)
	require.Len(t, d.Bins, 1)
	assert.Equal(t, 1, d.Bins[0].Count)

	same := NewTable([]Record{
		sale("Acme", "Petrol", 1, 2020, 5000, "2024-01-01"),
		sale("Bolt", "Petrol", 1, 2020, 5000, "2024-01-01"),
	})
	assert.True(t, Distribution(same.All(), 2000, 50).Insufficient)

	empty := NewTable(nil)
	d = Distribution(empty.All(), 2000, 50)
	assert.True(t, d.Insufficient)
	assert.Empty(t, d.Bins)
}
