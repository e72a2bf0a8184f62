package engine

import (
	"math"

	"carsales/internal/models"
)

// Summarize computes the filter-independent overview over the whole table.
func Summarize(t *Table) models.Overview {
	all := t.All()
	o := models.Overview{
		RowCount:      t.Len(),
		MeanPrice:     math.Round(mean(Prices(all))),
		BrandCount:    len(t.brandDict),
		FuelTypeCount: len(t.fuelDict),
		MonthlySales:  MonthlySales(all),
	}
	if rows := t.Preview(); len(rows) > 0 {
		o.Preview = &models.Preview{Columns: rows[0], Rows: rows[1:]}
	}
	return o
}

// FilterOptionsFor derives control choices and bounds from the table.
// Defaults mirror a freshly reset filter panel: no brand, every fuel type,
// full ranges.
func FilterOptionsFor(t *Table) models.FilterOptions {
	o := models.FilterOptions{
		Brands:    t.Brands(),
		FuelTypes: t.FuelTypes(),
		Locations: t.Locations(),
	}
	if t.Len() > 0 {
		maxKm, maxPrice := 0, 0.0
		minYear, maxYear := math.MaxInt, math.MinInt
		for i := range t.records {
			r := &t.records[i]
			maxKm = max(maxKm, r.Mileage)
			maxPrice = math.Max(maxPrice, r.Price)
			minYear = min(minYear, r.Year)
			maxYear = max(maxYear, r.Year)
		}
		o.MileageRange = [2]int{0, maxKm}
		o.YearRange = [2]int{minYear, maxYear}
		o.PriceRange = [2]float64{0, math.Ceil(maxPrice)}
	}
	o.Defaults = models.ChartFilters{
		FuelTypes:    t.FuelTypes(),
		MileageRange: []int{o.MileageRange[0], o.MileageRange[1]},
		YearRange:    []int{o.YearRange[0], o.YearRange[1]},
		PriceRange:   []float64{o.PriceRange[0], o.PriceRange[1]},
	}
	return o
}
