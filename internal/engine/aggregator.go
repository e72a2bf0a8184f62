package engine

import (
	"sort"
	"time"

	"carsales/internal/models"

	"golang.org/x/exp/constraints"
)

type aggStats struct {
	Sum   float64
	Count int
}

// Prices extracts the price column in view order.
func Prices(v View) []float64 {
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.At(i).Price
	}
	return out
}

// Scatter projects every row to (x, y, category) plus hover context.
func Scatter(v View, x, y Field, category Category) []models.ScatterPoint {
	points := make([]models.ScatterPoint, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		r := v.At(i)
		points = append(points, models.ScatterPoint{
			X:        r.Value(x),
			Y:        r.Value(y),
			Category: r.Label(category),
			Brand:    r.Brand,
			Model:    r.Model,
			Year:     r.Year,
		})
	}
	return points
}

// MileageVsPrice colours points by fuel type.
func MileageVsPrice(v View) []models.ScatterPoint {
	return Scatter(v, FieldMileage, FieldPrice, CategoryFuelType)
}

// EngineSizeVsPrice colours points by brand.
func EngineSizeVsPrice(v View) []models.ScatterPoint {
	return Scatter(v, FieldEngineSize, FieldPrice, CategoryBrand)
}

// MonthlyMeanPrice averages price per sale month, oldest first.
// Months without sales in the view are left out rather than zero-filled.
func MonthlyMeanPrice(v View) []models.MonthlyMean {
	byMonth := make(map[time.Time]*aggStats)
	for i := 0; i < v.Len(); i++ {
		r := v.At(i)
		s, ok := byMonth[r.SaleMonth]
		if !ok {
			s = &aggStats{}
			byMonth[r.SaleMonth] = s
		}
		s.Sum += r.Price
		s.Count++
	}

	out := make([]models.MonthlyMean, 0, len(byMonth))
	for m, s := range byMonth {
		out = append(out, models.MonthlyMean{Month: m, Mean: s.Sum / float64(s.Count)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out
}

// MonthlySales counts rows per sale month, oldest first.
func MonthlySales(v View) []models.MonthlyCount {
	counts := make(map[time.Time]int)
	for i := 0; i < v.Len(); i++ {
		counts[v.At(i).SaleMonth]++
	}

	out := make([]models.MonthlyCount, 0, len(counts))
	for m, c := range counts {
		out = append(out, models.MonthlyCount{Month: m, Sales: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out
}

// PriceByBrand groups prices by brand for box plots. Quartiles are left to the renderer.
func PriceByBrand(v View) []models.BoxGroup {
	byBrand := make(map[string][]float64)
	for i := 0; i < v.Len(); i++ {
		r := v.At(i)
		byBrand[r.Brand] = append(byBrand[r.Brand], r.Price)
	}

	out := make([]models.BoxGroup, 0, len(byBrand))
	for b, prices := range byBrand {
		out = append(out, models.BoxGroup{Brand: b, Prices: prices})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Brand < out[j].Brand })
	return out
}

func mean[T constraints.Integer | constraints.Float](xs []T) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += float64(x)
	}
	return sum / float64(len(xs))
}
