package api

import (
	"net/http"
	"strconv"
	"time"

	"carsales/internal/engine"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	charts   *prometheus.CounterVec
	compute  *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carsales",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"method", "route", "code"}),
		charts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carsales",
			Name:      "charts_total",
			Help:      "Charts computed by tab and outcome.",
		}, []string{"tab", "outcome"}),
		compute: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "carsales",
			Name:      "chart_compute_seconds",
			Help:      "Time spent filtering and projecting one chart.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"tab"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.charts, m.compute,
	)
	return m
}

// ObserveChart records one computed chart. Unknown tabs share a label.
func (m *Metrics) ObserveChart(tab, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	if !engine.KnownTab(tab) {
		tab = "unknown"
	}
	m.charts.WithLabelValues(tab, outcome).Inc()
	m.compute.WithLabelValues(tab).Observe(elapsed.Seconds())
}

// Middleware counts requests by matched route, not raw path.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			code := c.Response().Status
			if err != nil {
				code = toAPIError(err).StatusCode
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			m.requests.WithLabelValues(c.Request().Method, route, strconv.Itoa(code)).Inc()
			return err
		}
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
