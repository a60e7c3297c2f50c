package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/canvas-gradebook/internal/service"
)

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics      *service.MetricsService
	storeBackend string
}

// NewMetricsHandler constructs a metrics handler.
func NewMetricsHandler(metrics *service.MetricsService, storeBackend string) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, storeBackend: storeBackend}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health responds with a generic OK payload for readiness/liveness usage.
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "store": h.storeBackend})
}
