package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	upstreamLatency *prometheus.HistogramVec
	upstreamTotal   *prometheus.CounterVec
	storeLatency    *prometheus.HistogramVec
	storeTotal      *prometheus.CounterVec
	gradingRuns     *prometheus.CounterVec
	droppedItems    prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	upstreamLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "canvas_request_duration_seconds",
		Help:    "Duration of Canvas API requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint", "status"})

	upstreamTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "canvas_requests_total",
		Help: "Total Canvas API requests",
	}, []string{"endpoint", "status"})

	storeLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "structure_store_duration_seconds",
		Help:    "Latency for course structure store operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"backend", "operation"})

	storeTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "structure_store_operations_total",
		Help: "Total course structure store operations",
	}, []string{"backend", "operation", "result"})

	gradingRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "grading_runs_total",
		Help: "Student grading runs by outcome",
	}, []string{"result"})

	droppedItems := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dropped_items_total",
		Help: "Graded items excluded by drop rules",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, upstreamLatency, upstreamTotal, storeLatency, storeTotal, gradingRuns, droppedItems, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		upstreamLatency: upstreamLatency,
		upstreamTotal:   upstreamTotal,
		storeLatency:    storeLatency,
		storeTotal:      storeTotal,
		gradingRuns:     gradingRuns,
		droppedItems:    droppedItems,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveUpstreamRequest records one Canvas call. Status 0 means the request never got a response.
func (m *MetricsService) ObserveUpstreamRequest(endpoint string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.upstreamLatency.WithLabelValues(endpoint, labelStatus).Observe(duration.Seconds())
	m.upstreamTotal.WithLabelValues(endpoint, labelStatus).Inc()
}

// ObserveStoreOperation records a structure store call.
func (m *MetricsService) ObserveStoreOperation(backend, operation string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.storeLatency.WithLabelValues(backend, operation).Observe(duration.Seconds())
	m.storeTotal.WithLabelValues(backend, operation, result).Inc()
}

// RecordGradingRun counts a finished grading run and the items it dropped.
func (m *MetricsService) RecordGradingRun(err error, dropped int) {
	if m == nil {
		return
	}
	if err != nil {
		m.gradingRuns.WithLabelValues("error").Inc()
		return
	}
	m.gradingRuns.WithLabelValues("ok").Inc()
	m.droppedItems.Add(float64(dropped))
}
