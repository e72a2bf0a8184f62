package api

import (
	"errors"
	"io"
	"sort"
	"strconv"

	"carsales/internal/models"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	pngWidth  = 1024
	pngHeight = 512
)

var (
	errNothingToDraw = errors.New("chart has no points")
	errNoImageForm   = errors.New("chart kind has no image form")
)

var palette = []drawing.Color{
	chart.ColorBlue, chart.ColorGreen, chart.ColorRed, chart.ColorOrange,
	chart.ColorCyan, chart.ColorLightGray, chart.ColorAlternateGray,
}

// renderPNG draws c with go-chart. Heatmaps have no image form; degenerate
// charts report errNothingToDraw.
func renderPNG(c models.Chart, w io.Writer) error {
	if c.Kind == models.KindHeatmap {
		return errNoImageForm
	}
	if c.Outcome != models.OutcomeOK {
		return errNothingToDraw
	}

	switch c.Kind {
	case models.KindHistogram:
		if c.Distribution == nil || len(c.Distribution.Bins) == 0 {
			return errNothingToDraw
		}
		bars := make([]chart.Value, len(c.Distribution.Bins))
		for i, b := range c.Distribution.Bins {
			bars[i] = chart.Value{Value: float64(b.Count), Label: strconv.FormatFloat(b.Start, 'f', 0, 64)}
		}
		return barChart(c.Title, bars).Render(chart.PNG, w)

	case models.KindBox:
		if len(c.Box) == 0 {
			return errNothingToDraw
		}
		bars := make([]chart.Value, len(c.Box))
		for i, g := range c.Box {
			bars[i] = chart.Value{Value: median(g.Prices), Label: g.Brand}
		}
		return barChart(c.Title+" (median)", bars).Render(chart.PNG, w)

	case models.KindScatter:
		if len(c.Scatter) == 0 {
			return errNothingToDraw
		}
		ch := chart.Chart{
			Title:  c.Title,
			Width:  pngWidth,
			Height: pngHeight,
			XAxis:  chart.XAxis{Name: c.XAxis},
			YAxis:  chart.YAxis{Name: c.YAxis},
			Series: scatterSeries(c.Scatter),
		}
		ch.Elements = []chart.Renderable{chart.Legend(&ch)}
		return ch.Render(chart.PNG, w)

	case models.KindLine:
		if len(c.TimeSeries) < 2 {
			return errNothingToDraw
		}
		s := chart.TimeSeries{Name: c.YAxis}
		for _, p := range c.TimeSeries {
			s.XValues = append(s.XValues, p.Month)
			s.YValues = append(s.YValues, p.Mean)
		}
		ch := chart.Chart{
			Title:  c.Title,
			Width:  pngWidth,
			Height: pngHeight,
			XAxis:  chart.XAxis{Name: c.XAxis, ValueFormatter: chart.TimeValueFormatterWithFormat("2006-01")},
			YAxis:  chart.YAxis{Name: c.YAxis},
			Series: []chart.Series{s},
		}
		return ch.Render(chart.PNG, w)
	}
	return errNoImageForm
}

func barChart(title string, bars []chart.Value) chart.BarChart {
	return chart.BarChart{
		Title:    title,
		Width:    pngWidth,
		Height:   pngHeight,
		BarWidth: max(4, pngWidth/(2*len(bars))),
		Bars:     bars,
	}
}

// scatterSeries splits points into one dot-only series per category.
func scatterSeries(points []models.ScatterPoint) []chart.Series {
	byCategory := make(map[string]*chart.ContinuousSeries)
	var order []string
	for _, p := range points {
		s, ok := byCategory[p.Category]
		if !ok {
			s = &chart.ContinuousSeries{Name: p.Category}
			byCategory[p.Category] = s
			order = append(order, p.Category)
		}
		s.XValues = append(s.XValues, p.X)
		s.YValues = append(s.YValues, p.Y)
	}
	sort.Strings(order)

	series := make([]chart.Series, 0, len(order))
	for i, name := range order {
		s := byCategory[name]
		col := palette[i%len(palette)]
		s.Style = chart.Style{
			StrokeWidth: chart.Disabled,
			DotWidth:    3,
			DotColor:    col,
		}
		series = append(series, *s)
	}
	return series
}

func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}
