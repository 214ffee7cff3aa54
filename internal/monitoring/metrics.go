// Package monitoring exposes Prometheus instrumentation for the API
// surface and the series query core.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector bundles the application's Prometheus metrics.
type Collector struct {
	APIRequestsTotal   *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec

	SeriesQueryDuration *prometheus.HistogramVec
	SeriesRowsReturned  *prometheus.CounterVec
	SeriesRowsDropped   *prometheus.CounterVec
}

// NewCollector registers the application metrics on the given registerer.
// Tests pass a fresh prometheus.NewRegistry to avoid collisions.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		APIRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "atlas",
				Name:      "api_requests_total",
				Help:      "API requests by endpoint, method and status.",
			},
			[]string{"endpoint", "method", "status"},
		),
		APIRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "atlas",
				Name:      "api_request_duration_seconds",
				Help:      "API request duration in seconds.",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"endpoint"},
		),
		SeriesQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "atlas",
				Name:      "series_query_duration_seconds",
				Help:      "Store query duration per variable.",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"variable"},
		),
		SeriesRowsReturned: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "atlas",
				Name:      "series_rows_returned_total",
				Help:      "Normalized rows returned per variable.",
			},
			[]string{"variable"},
		),
		SeriesRowsDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "atlas",
				Name:      "series_rows_dropped_total",
				Help:      "Malformed rows dropped during normalization per variable.",
			},
			[]string{"variable"},
		),
	}
}

// ObserveSeriesQuery records one store query's duration and row counts.
func (c *Collector) ObserveSeriesQuery(variable string, d time.Duration, returned, dropped int) {
	c.SeriesQueryDuration.WithLabelValues(variable).Observe(d.Seconds())
	c.SeriesRowsReturned.WithLabelValues(variable).Add(float64(returned))
	if dropped > 0 {
		c.SeriesRowsDropped.WithLabelValues(variable).Add(float64(dropped))
	}
}

// ObserveAPIRequest records one handled API request.
func (c *Collector) ObserveAPIRequest(endpoint, method, status string, d time.Duration) {
	c.APIRequestsTotal.WithLabelValues(endpoint, method, status).Inc()
	c.APIRequestDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}
