package monitoring

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveSeriesQuery(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveSeriesQuery("tas_min", 25*time.Millisecond, 12, 2)
	c.ObserveSeriesQuery("tas_min", 10*time.Millisecond, 3, 0)

	assert.InDelta(t, 15, testutil.ToFloat64(c.SeriesRowsReturned.WithLabelValues("tas_min")), 0.001)
	assert.InDelta(t, 2, testutil.ToFloat64(c.SeriesRowsDropped.WithLabelValues("tas_min")), 0.001)
}

func TestObserveAPIRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveAPIRequest("/api/series", "GET", "200", 5*time.Millisecond)
	c.ObserveAPIRequest("/api/series", "GET", "200", 7*time.Millisecond)
	c.ObserveAPIRequest("/api/series", "GET", "400", time.Millisecond)

	assert.InDelta(t, 2, testutil.ToFloat64(c.APIRequestsTotal.WithLabelValues("/api/series", "GET", "200")), 0.001)
	assert.InDelta(t, 1, testutil.ToFloat64(c.APIRequestsTotal.WithLabelValues("/api/series", "GET", "400")), 0.001)
}

func TestCollectorRegistersAllMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.ObserveSeriesQuery("ndvi", time.Millisecond, 1, 1)
	c.ObserveAPIRequest("/health", "GET", "200", time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"atlas_api_requests_total",
		"atlas_api_request_duration_seconds",
		"atlas_series_query_duration_seconds",
		"atlas_series_rows_returned_total",
		"atlas_series_rows_dropped_total",
	} {
		assert.True(t, names[want], "missing metric %s", want)
	}
}
