package service

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// counterValue sums the samples of a counter family whose labels include want.
func counterValue(t *testing.T, m *MetricsService, name string, want map[string]string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	var total float64
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			labels := map[string]string{}
			for _, pair := range metric.GetLabel() {
				labels[pair.GetName()] = pair.GetValue()
			}
			matched := true
			for k, v := range want {
				if labels[k] != v {
					matched = false
				}
			}
			if matched {
				total += metric.GetCounter().GetValue()
			}
		}
	}
	return total
}

func TestMetricsServiceRecordsObservations(t *testing.T) {
	m := NewMetricsService()

	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/courses/:courseId/structure", http.StatusOK, 10*time.Millisecond)
	m.ObserveUpstreamRequest("users", http.StatusOK, 20*time.Millisecond)
	m.ObserveUpstreamRequest("users", 0, time.Millisecond)
	m.ObserveStoreOperation("memory", "save", nil, time.Millisecond)
	m.ObserveStoreOperation("memory", "load", errors.New("missing"), time.Millisecond)
	m.RecordGradingRun(nil, 3)

	assert.Equal(t, 1.0, counterValue(t, m, "http_requests_total", map[string]string{"status": "200"}))
	assert.Equal(t, 2.0, counterValue(t, m, "canvas_requests_total", map[string]string{"endpoint": "users"}))
	assert.Equal(t, 1.0, counterValue(t, m, "canvas_requests_total", map[string]string{"status": "0"}))
	assert.Equal(t, 1.0, counterValue(t, m, "structure_store_operations_total", map[string]string{"operation": "load", "result": "error"}))
	assert.Equal(t, 3.0, counterValue(t, m, "dropped_items_total", nil))
}

func TestMetricsServiceHandler(t *testing.T) {
	m := NewMetricsService()
	m.RecordGradingRun(nil, 0)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "grading_runs_total")
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	assert.NotPanics(t, func() {
		m.ObserveHTTPRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)
		m.ObserveUpstreamRequest("users", http.StatusOK, time.Millisecond)
		m.ObserveStoreOperation("memory", "save", nil, time.Millisecond)
		m.RecordGradingRun(nil, 1)
	})
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
