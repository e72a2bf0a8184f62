package models

import (
	"math"
	"time"

	"github.com/goccy/go-json"
)

// Chart kinds understood by the frontend.
const (
	KindHistogram = "histogram"
	KindScatter   = "scatter"
	KindLine      = "line"
	KindBox       = "box"
	KindHeatmap   = "heatmap"
)

// Chart outcomes. Degenerate results are outcomes, not errors.
const (
	OutcomeOK               = "ok"
	OutcomeInsufficientData = "insufficient_data"
	OutcomeNoMatch          = "no_match"
)

// Overview feeds the landing page highlight cards and the monthly sales line.
type Overview struct {
	RowCount      int            `json:"row_count"`
	MeanPrice     float64        `json:"mean_price"`
	BrandCount    int            `json:"brand_count"`
	FuelTypeCount int            `json:"fuel_type_count"`
	MonthlySales  []MonthlyCount `json:"monthly_sales"`
	Preview       *Preview       `json:"preview,omitempty"`
}

type MonthlyCount struct {
	Month time.Time `json:"month"`
	Sales int       `json:"sales"`
}

// Preview is the first few raw dataset rows, header first.
type Preview struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// ChartFilters is the wire form of the filter controls.
// A nil FuelTypes means "no restriction"; an empty, non-nil list selects nothing.
type ChartFilters struct {
	Brand        string    `json:"brand,omitempty"`
	Location     string    `json:"location,omitempty"`
	FuelTypes    []string  `json:"fuel_types"`
	MileageRange []int     `json:"mileage_range,omitempty" validate:"omitempty,len=2"`
	YearRange    []int     `json:"year_range,omitempty" validate:"omitempty,len=2"`
	PriceRange   []float64 `json:"price_range,omitempty" validate:"omitempty,len=2"`
}

// ChartRequest is the POST body of /api/charts.
type ChartRequest struct {
	Tab     string       `json:"tab" validate:"required"`
	Filters ChartFilters `json:"filters"`
}

// FilterOptions describes the control widgets and their reset state.
type FilterOptions struct {
	Brands       []string     `json:"brands"`
	FuelTypes    []string     `json:"fuel_types"`
	Locations    []string     `json:"locations"`
	MileageRange [2]int       `json:"mileage_range"`
	YearRange    [2]int       `json:"year_range"`
	PriceRange   [2]float64   `json:"price_range"`
	Defaults     ChartFilters `json:"defaults"`
}

// Chart is the render-ready projection for one tab.
// Exactly one of the payload fields is populated, matching Kind.
type Chart struct {
	Tab     string `json:"tab"`
	Kind    string `json:"kind"`
	Title   string `json:"title"`
	XAxis   string `json:"x_axis,omitempty"`
	YAxis   string `json:"y_axis,omitempty"`
	Outcome string `json:"outcome"`
	Rows    int    `json:"rows"`

	Distribution *Distribution      `json:"distribution,omitempty"`
	Scatter      []ScatterPoint     `json:"scatter,omitempty"`
	TimeSeries   []MonthlyMean      `json:"time_series,omitempty"`
	Box          []BoxGroup         `json:"box,omitempty"`
	Correlation  *CorrelationMatrix `json:"correlation,omitempty"`
}

// Distribution is a price histogram with an optional density curve.
type Distribution struct {
	Values       []float64      `json:"values"`
	BinSize      float64        `json:"bin_size"`
	Bins         []HistogramBin `json:"bins"`
	Density      []CurvePoint   `json:"density,omitempty"`
	Insufficient bool           `json:"insufficient"`
}

type HistogramBin struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Count   int     `json:"count"`
	Density float64 `json:"density"`
}

type CurvePoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type ScatterPoint struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Category string  `json:"category"`
	Brand    string  `json:"brand"`
	Model    string  `json:"model"`
	Year     int     `json:"year"`
}

type MonthlyMean struct {
	Month time.Time `json:"month"`
	Mean  float64   `json:"mean"`
}

type BoxGroup struct {
	Brand  string    `json:"brand"`
	Prices []float64 `json:"prices"`
}

// MarshalJSON always emits the series that matches Kind, as [] when empty, so
// clients can tell an empty chart from a missing one.
func (c Chart) MarshalJSON() ([]byte, error) {
	var (
		scatter    *[]ScatterPoint
		timeSeries *[]MonthlyMean
		box        *[]BoxGroup
	)
	if c.Scatter != nil || c.Kind == KindScatter {
		s := c.Scatter
		if s == nil {
			s = []ScatterPoint{}
		}
		scatter = &s
	}
	if c.TimeSeries != nil || c.Kind == KindLine {
		s := c.TimeSeries
		if s == nil {
			s = []MonthlyMean{}
		}
		timeSeries = &s
	}
	if c.Box != nil || c.Kind == KindBox {
		s := c.Box
		if s == nil {
			s = []BoxGroup{}
		}
		box = &s
	}
	return json.Marshal(struct {
		Tab          string             `json:"tab"`
		Kind         string             `json:"kind"`
		Title        string             `json:"title"`
		XAxis        string             `json:"x_axis,omitempty"`
		YAxis        string             `json:"y_axis,omitempty"`
		Outcome      string             `json:"outcome"`
		Rows         int                `json:"rows"`
		Distribution *Distribution      `json:"distribution,omitempty"`
		Scatter      *[]ScatterPoint    `json:"scatter,omitempty"`
		TimeSeries   *[]MonthlyMean     `json:"time_series,omitempty"`
		Box          *[]BoxGroup        `json:"box,omitempty"`
		Correlation  *CorrelationMatrix `json:"correlation,omitempty"`
	}{
		c.Tab, c.Kind, c.Title, c.XAxis, c.YAxis, c.Outcome, c.Rows,
		c.Distribution, scatter, timeSeries, box, c.Correlation,
	})
}

// CorrelationMatrix is a symmetric matrix over Fields. Undefined cells hold NaN
// and are encoded as null.
type CorrelationMatrix struct {
	Fields       []string    `json:"fields"`
	Values       [][]float64 `json:"-"`
	Insufficient bool        `json:"insufficient"`
}

func (m CorrelationMatrix) MarshalJSON() ([]byte, error) {
	cells := make([][]*float64, len(m.Values))
	for i, row := range m.Values {
		cells[i] = make([]*float64, len(row))
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			v := v
			cells[i][j] = &v
		}
	}
	return json.Marshal(struct {
		Fields       []string     `json:"fields"`
		Values       [][]*float64 `json:"values"`
		Insufficient bool         `json:"insufficient"`
	}{m.Fields, cells, m.Insufficient})
}

func (m *CorrelationMatrix) UnmarshalJSON(b []byte) error {
	var raw struct {
		Fields       []string     `json:"fields"`
		Values       [][]*float64 `json:"values"`
		Insufficient bool         `json:"insufficient"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	m.Fields, m.Insufficient = raw.Fields, raw.Insufficient
	m.Values = make([][]float64, len(raw.Values))
	for i, row := range raw.Values {
		m.Values[i] = make([]float64, len(row))
		for j, v := range row {
			if v == nil {
				m.Values[i][j] = math.NaN()
				continue
			}
			m.Values[i][j] = *v
		}
	}
	return nil
}
