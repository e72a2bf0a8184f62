package engine

import (
	"math"

	"carsales/internal/models"
)

// Correlation computes the Pearson matrix over CorrelationFields, rounded to
// two decimals. With fewer than two rows every cell is NaN and Insufficient is set.
// A field with zero variance yields NaN against every other field; the diagonal
// stays 1.
func Correlation(v View) models.CorrelationMatrix {
	k := len(CorrelationFields)
	names := make([]string, k)
	for i, f := range CorrelationFields {
		names[i] = string(f)
	}
	m := models.CorrelationMatrix{Fields: names, Values: make([][]float64, k)}
	for i := range m.Values {
		m.Values[i] = make([]float64, k)
	}

	n := v.Len()
	if n < 2 {
		m.Insufficient = true
		for i := range m.Values {
			for j := range m.Values[i] {
				m.Values[i][j] = math.NaN()
			}
		}
		return m
	}

	// Column-major copy, centred on the mean. Constancy is checked on the raw
	// values: centring leaves rounding residue for values like 1.6.
	cols := make([][]float64, k)
	constant := make([]bool, k)
	for c, f := range CorrelationFields {
		col := make([]float64, n)
		constant[c] = true
		for i := 0; i < n; i++ {
			col[i] = v.At(i).Value(f)
			if col[i] != col[0] {
				constant[c] = false
			}
		}
		mu := mean(col)
		for i := range col {
			col[i] -= mu
		}
		cols[c] = col
	}

	for a := 0; a < k; a++ {
		m.Values[a][a] = 1
		for b := a + 1; b < k; b++ {
			r := math.NaN()
			if !constant[a] && !constant[b] {
				r = pearson(cols[a], cols[b])
			}
			m.Values[a][b] = r
			m.Values[b][a] = r
		}
	}
	return m
}

// pearson expects both inputs already centred.
func pearson(x, y []float64) float64 {
	var sxy, sxx, syy float64
	for i := range x {
		sxy += x[i] * y[i]
		sxx += x[i] * x[i]
		syy += y[i] * y[i]
	}
	denom := math.Sqrt(sxx * syy)
	if denom == 0 {
		return math.NaN()
	}
	r := sxy / denom
	r = math.Max(-1, math.Min(1, r))
	return roundTo2(r)
}

func roundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}
