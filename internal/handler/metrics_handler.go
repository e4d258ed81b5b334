package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Probe is one named dependency check reported by /health.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics http.Handler
	probes  []Probe
}

// NewMetricsHandler constructs a metrics handler; a nil handler disables /metrics.
func NewMetricsHandler(metrics http.Handler, probes ...Probe) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, probes: probes}
}

// Prometheus serves the Prometheus metrics endpoint.
// @Summary Prometheus metrics
// @Tags Observability
// @Produce plain
// @Success 200 {string} string
// @Router /metrics [get]
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.ServeHTTP(c.Writer, c.Request)
}

// Health runs every probe. Any failure turns the answer into 503 "degraded".
// @Summary Health check
// @Tags Observability
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health [get]
func (h *MetricsHandler) Health(c *gin.Context) {
	checks := make(map[string]string, len(h.probes))
	status, code := "ok", http.StatusOK
	for _, probe := range h.probes {
		if err := probe.Check(c.Request.Context()); err != nil {
			checks[probe.Name] = err.Error()
			status, code = "degraded", http.StatusServiceUnavailable
			continue
		}
		checks[probe.Name] = "ok"
	}
	c.JSON(code, gin.H{"status": status, "checks": checks})
}
