package engine

import (
	"math"

	"carsales/internal/models"
)

const (
	defaultBinSize   = 2000.0
	defaultKDEPoints = 200
)

// Distribution builds the price histogram and its Gaussian density estimate.
// The density needs at least two distinct values; otherwise Insufficient is set
// and only the (possibly empty) histogram is returned.
func Distribution(v View, binSize float64, points int) models.Distribution {
	if binSize <= 0 {
		binSize = defaultBinSize
	}
	if points < 2 {
		points = defaultKDEPoints
	}

	values := Prices(v)
	d := models.Distribution{
		Values:  values,
		BinSize: binSize,
		Bins:    histogram(values, binSize),
	}

	sd := stddev(values)
	if len(values) < 2 || sd == 0 {
		d.Insufficient = true
		return d
	}
	d.Density = kde(values, sd, points)
	return d
}

// histogram buckets values into fixed-width bins aligned to multiples of size.
// Density is normalised so the bars integrate to one.
func histogram(values []float64, size float64) []models.HistogramBin {
	if len(values) == 0 {
		return []models.HistogramBin{}
	}
	lo, hi := bounds(values)
	start := math.Floor(lo/size) * size
	n := int(math.Floor((hi-start)/size)) + 1

	bins := make([]models.HistogramBin, n)
	for i := range bins {
		bins[i].Start = start + float64(i)*size
		bins[i].End = bins[i].Start + size
	}
	for _, x := range values {
		i := int(math.Floor((x - start) / size))
		if i >= n {
			i = n - 1
		}
		bins[i].Count++
	}
	total := float64(len(values)) * size
	for i := range bins {
		bins[i].Density = float64(bins[i].Count) / total
	}
	return bins
}

// kde evaluates a Gaussian kernel density with Scott's rule bandwidth
// on evenly spaced points between the smallest and largest value.
func kde(values []float64, sd float64, points int) []models.CurvePoint {
	n := float64(len(values))
	bw := sd * math.Pow(n, -1.0/5.0)
	norm := 1 / (n * bw * math.Sqrt(2*math.Pi))

	lo, hi := bounds(values)
	step := (hi - lo) / float64(points-1)
	curve := make([]models.CurvePoint, points)
	for i := range curve {
		x := lo + float64(i)*step
		var sum float64
		for _, xi := range values {
			z := (x - xi) / bw
			sum += math.Exp(-0.5 * z * z)
		}
		curve[i] = models.CurvePoint{X: x, Y: sum * norm}
	}
	return curve
}

// stddev is the sample standard deviation (n-1 denominator).
func stddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	var ss float64
	for _, x := range values {
		ss += (x - m) * (x - m)
	}
	return math.Sqrt(ss / float64(len(values)-1))
}

func bounds(values []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, x := range values {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	return lo, hi
}
