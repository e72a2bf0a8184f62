package engine

import (
	"carsales/internal/models"
)

// Tab identifiers sent by the dashboard.
const (
	TabPrice      = "tab-price"
	TabScatter    = "tab-scatter"
	TabEngine     = "tab-engine"
	TabTimeSeries = "tab-timeseries"
	TabBox        = "tab-box"
	TabCorr       = "tab-corr"
)

// Tabs lists every known tab in display order.
var Tabs = []string{TabPrice, TabScatter, TabEngine, TabTimeSeries, TabBox, TabCorr}

// ChartOptions tunes the distribution projection.
type ChartOptions struct {
	BinSize   float64
	KDEPoints int
}

// Select dispatches a tab to its projection. An unknown tab is reported as
// OutcomeNoMatch with an empty scatter rather than an error.
func Select(tab string, v View, opts ChartOptions) models.Chart {
	c := models.Chart{Tab: tab, Rows: v.Len(), Outcome: models.OutcomeOK}

	switch tab {
	case TabPrice:
		d := Distribution(v, opts.BinSize, opts.KDEPoints)
		c.Kind = models.KindHistogram
		c.Title = "Price distribution (histogram + KDE)"
		c.XAxis, c.YAxis = "Price (USD)", "Density"
		c.Distribution = &d
		if d.Insufficient {
			c.Outcome = models.OutcomeInsufficientData
		}

	case TabScatter:
		c.Kind = models.KindScatter
		c.Title = "Mileage vs Price (color = fuel type)"
		c.XAxis, c.YAxis = "Mileage (km)", "Price (USD)"
		c.Scatter = MileageVsPrice(v)

	case TabEngine:
		c.Kind = models.KindScatter
		c.Title = "Engine size vs Price (color = brand)"
		c.XAxis, c.YAxis = "Engine Size (L)", "Price (USD)"
		c.Scatter = EngineSizeVsPrice(v)

	case TabTimeSeries:
		c.Kind = models.KindLine
		c.Title = "Average price by sale month"
		c.XAxis, c.YAxis = "Sale Month", "Mean price (USD)"
		c.TimeSeries = MonthlyMeanPrice(v)

	case TabBox:
		c.Kind = models.KindBox
		c.Title = "Price by brand"
		c.XAxis, c.YAxis = "Brand", "Price (USD)"
		c.Box = PriceByBrand(v)

	case TabCorr:
		m := Correlation(v)
		c.Kind = models.KindHeatmap
		c.Title = "Correlation of numeric fields"
		c.Correlation = &m
		if m.Insufficient {
			c.Outcome = models.OutcomeInsufficientData
		}

	default:
		c.Kind = models.KindScatter
		c.Outcome = models.OutcomeNoMatch
		c.Scatter = []models.ScatterPoint{}
		return c
	}

	if v.Len() == 0 {
		c.Outcome = models.OutcomeInsufficientData
	}
	return c
}

// KnownTab reports whether tab is one of Tabs.
func KnownTab(tab string) bool {
	for _, t := range Tabs {
		if t == tab {
			return true
		}
	}
	return false
}
