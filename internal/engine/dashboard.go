package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"carsales/internal/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("carsales/engine")

// ErrRangeArity is returned when a wire range does not have exactly two bounds.
var ErrRangeArity = errors.New("range must have exactly two bounds")

// Dashboard is the process-lifetime data context: the loaded table plus the
// values derived from it once. It is immutable and safe for concurrent use.
type Dashboard struct {
	table    *Table
	overview models.Overview
	options  models.FilterOptions
	chart    ChartOptions
	loadedAt time.Time
	logger   *slog.Logger
}

// NewDashboard precomputes the overview and filter options for t.
func NewDashboard(t *Table, opts ChartOptions, logger *slog.Logger) *Dashboard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dashboard{
		table:    t,
		overview: Summarize(t),
		options:  FilterOptionsFor(t),
		chart:    opts,
		loadedAt: time.Now(),
		logger:   logger.With(slog.String("component", "dashboard")),
	}
}

func (d *Dashboard) Table() *Table                 { return d.table }
func (d *Dashboard) LoadedAt() time.Time           { return d.loadedAt }
func (d *Dashboard) Overview() models.Overview     { return d.overview }
func (d *Dashboard) Options() models.FilterOptions { return d.options }

// ComputeChart filters the table and projects it for tab. The only error is a
// malformed range; empty views and unknown tabs come back as chart outcomes.
func (d *Dashboard) ComputeChart(ctx context.Context, tab string, f models.ChartFilters) (models.Chart, error) {
	_, span := tracer.Start(ctx, "Dashboard.ComputeChart", trace.WithAttributes(
		attribute.String("chart.tab", tab),
	))
	defer span.End()

	p, err := PredicatesFrom(f)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid filters")
		return models.Chart{}, err
	}
	view, err := Apply(d.table, p)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid filters")
		return models.Chart{}, err
	}

	chart := Select(tab, view, d.chart)
	span.SetAttributes(
		attribute.Int("chart.rows", view.Len()),
		attribute.String("chart.outcome", chart.Outcome),
	)
	d.logger.Debug("chart computed",
		slog.String("tab", tab),
		slog.Int("rows", view.Len()),
		slog.String("outcome", chart.Outcome))
	return chart, nil
}

// PredicatesFrom converts wire filters to engine predicates.
// Missing ranges are unbounded.
func PredicatesFrom(f models.ChartFilters) (Predicates, error) {
	p := Predicates{
		Brand:     f.Brand,
		Location:  f.Location,
		FuelTypes: f.FuelTypes,
	}
	var err error
	if p.Mileage, err = rangeFrom("mileage", f.MileageRange); err != nil {
		return Predicates{}, err
	}
	if p.Year, err = rangeFrom("year", f.YearRange); err != nil {
		return Predicates{}, err
	}
	if p.Price, err = rangeFrom("price", f.PriceRange); err != nil {
		return Predicates{}, err
	}
	return p, p.Validate()
}

func rangeFrom[T int | float64](field string, bounds []T) (*Range[T], error) {
	switch len(bounds) {
	case 0:
		return nil, nil
	case 2:
		return &Range[T]{Min: bounds[0], Max: bounds[1]}, nil
	}
	return nil, fmt.Errorf("%s: %w", field, ErrRangeArity)
}
