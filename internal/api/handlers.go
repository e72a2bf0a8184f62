package api

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"carsales/internal/engine"
	"carsales/internal/models"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// Handler serves the dashboard API. It starts without data and answers 503
// until SetDashboard is called.
type Handler struct {
	dashboard atomic.Pointer[engine.Dashboard]
	metrics   *Metrics
	logger    *slog.Logger
	upgrader  websocket.Upgrader
}

func NewHandler(metrics *Metrics, allowedOrigins []string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		metrics: metrics,
		logger:  logger.With(slog.String("component", "api")),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

// SetDashboard publishes loaded data to all subsequent requests.
func (h *Handler) SetDashboard(d *engine.Dashboard) {
	h.dashboard.Store(d)
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	api := e.Group("/api")
	api.GET("/overview", h.GetOverview)
	api.GET("/options", h.GetOptions)
	api.GET("/tabs", h.GetTabs)
	api.GET("/charts/:tab", h.GetChart)
	api.POST("/charts", h.PostChart)
	api.GET("/charts/:tab/png", h.GetChartPNG)
	api.GET("/ws", h.Stream)
}

func (h *Handler) ready() (*engine.Dashboard, error) {
	d := h.dashboard.Load()
	if d == nil {
		return nil, ErrServiceUnavailable
	}
	return d, nil
}

// --- HANDLERS ---

func (h *Handler) Health(c echo.Context) error {
	d := h.dashboard.Load()
	if d == nil {
		return c.JSON(http.StatusOK, map[string]interface{}{"status": "loading"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"rows":      d.Table().Len(),
		"loaded_at": d.LoadedAt(),
	})
}

func (h *Handler) GetOverview(c echo.Context) error {
	d, err := h.ready()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d.Overview())
}

func (h *Handler) GetOptions(c echo.Context) error {
	d, err := h.ready()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d.Options())
}

func (h *Handler) GetTabs(c echo.Context) error {
	return c.JSON(http.StatusOK, engine.Tabs)
}

// GetChart computes one tab from query-string filters and supports
// conditional requests through ETag / If-None-Match.
func (h *Handler) GetChart(c echo.Context) error {
	d, err := h.ready()
	if err != nil {
		return err
	}
	tab := c.Param("tab")
	f, err := filtersFromQuery(c)
	if err != nil {
		return err
	}
	// A malformed range must not be answered from a cached validator.
	if _, err := engine.PredicatesFrom(f); err != nil {
		return err
	}

	etag := chartETag(tab, f, d.LoadedAt())
	c.Response().Header().Set(headerETag, etag)
	if inm := c.Request().Header.Get("If-None-Match"); inm != "" && etagMatches(inm, etag) {
		return c.NoContent(http.StatusNotModified)
	}

	chart, err := h.compute(c.Request().Context(), d, tab, f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, chart)
}

func (h *Handler) PostChart(c echo.Context) error {
	d, err := h.ready()
	if err != nil {
		return err
	}
	var req models.ChartRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	chart, err := h.compute(c.Request().Context(), d, req.Tab, req.Filters)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, chart)
}

// GetChartPNG renders a tab server-side. Empty charts answer 204.
func (h *Handler) GetChartPNG(c echo.Context) error {
	d, err := h.ready()
	if err != nil {
		return err
	}
	tab := c.Param("tab")
	if !engine.KnownTab(tab) {
		return echo.NewHTTPError(http.StatusNotFound, "unknown tab "+strconv.Quote(tab))
	}
	f, err := filtersFromQuery(c)
	if err != nil {
		return err
	}
	chart, err := h.compute(c.Request().Context(), d, tab, f)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	switch err := renderPNG(chart, &buf); {
	case errors.Is(err, errNothingToDraw):
		return c.NoContent(http.StatusNoContent)
	case errors.Is(err, errNoImageForm):
		return ErrNotRenderable
	case err != nil:
		return &APIError{
			StatusCode: http.StatusUnprocessableEntity,
			ErrorCode:  ErrNotRenderable.ErrorCode,
			Message:    err.Error(),
		}
	}
	return c.Blob(http.StatusOK, "image/png", buf.Bytes())
}

func (h *Handler) compute(ctx context.Context, d *engine.Dashboard, tab string, f models.ChartFilters) (models.Chart, error) {
	start := time.Now()
	chart, err := d.ComputeChart(ctx, tab, f)
	if err != nil {
		return models.Chart{}, err
	}
	h.metrics.ObserveChart(tab, chart.Outcome, time.Since(start))
	return chart, nil
}

// filtersFromQuery reads filter controls from the query string. A lone
// "fuel=" selects no fuel type; an absent "fuel" selects all. A range with
// only one bound leaves the other side unbounded.
func filtersFromQuery(c echo.Context) (models.ChartFilters, error) {
	q := c.QueryParams()
	f := models.ChartFilters{
		Brand:    q.Get("brand"),
		Location: q.Get("location"),
	}
	if vals, ok := q["fuel"]; ok {
		f.FuelTypes = make([]string, 0, len(vals))
		for _, v := range vals {
			if v != "" {
				f.FuelTypes = append(f.FuelTypes, v)
			}
		}
	}

	var err error
	if f.MileageRange, err = intRange(c, "mileage"); err != nil {
		return f, err
	}
	if f.YearRange, err = intRange(c, "year"); err != nil {
		return f, err
	}
	if f.PriceRange, err = floatRange(c, "price"); err != nil {
		return f, err
	}
	return f, nil
}

func intRange(c echo.Context, name string) ([]int, error) {
	lo, hi := c.QueryParam(name+"_min"), c.QueryParam(name+"_max")
	if lo == "" && hi == "" {
		return nil, nil
	}
	out := []int{math.MinInt, math.MaxInt}
	for i, s := range []string{lo, hi} {
		if s == "" {
			continue
		}
		v, err := strconv.Atoi(s)
		if err != nil {
			return nil, invalidParameter(name+suffix(i), name+suffix(i)+" must be an integer")
		}
		out[i] = v
	}
	return out, nil
}

func floatRange(c echo.Context, name string) ([]float64, error) {
	lo, hi := c.QueryParam(name+"_min"), c.QueryParam(name+"_max")
	if lo == "" && hi == "" {
		return nil, nil
	}
	out := []float64{math.Inf(-1), math.Inf(1)}
	for i, s := range []string{lo, hi} {
		if s == "" {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(v) {
			return nil, invalidParameter(name+suffix(i), name+suffix(i)+" must be a number")
		}
		out[i] = v
	}
	return out, nil
}

func suffix(i int) string {
	if i == 0 {
		return "_min"
	}
	return "_max"
}
