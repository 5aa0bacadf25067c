package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/busbuddy-api/internal/service"
	"github.com/noah-isme/busbuddy-api/pkg/jobs"
	"github.com/noah-isme/busbuddy-api/pkg/response"
)

type queueStats interface {
	Stats() jobs.Stats
}

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics    *service.MetricsService
	auditQueue queueStats
}

// NewMetricsHandler constructs a metrics handler.
func NewMetricsHandler(metrics *service.MetricsService) *MetricsHandler {
	return &MetricsHandler{metrics: metrics}
}

// WithAuditQueue adds the audit worker queue counters to the snapshot.
func (h *MetricsHandler) WithAuditQueue(q queueStats) *MetricsHandler {
	h.auditQueue = q
	return h
}

// Prometheus serves the Prometheus scrape endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Snapshot godoc
// @Summary In-process metrics snapshot
// @Tags System
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /system/metrics [get]
func (h *MetricsHandler) Snapshot(c *gin.Context) {
	var meta map[string]interface{}
	if h.auditQueue != nil {
		meta = map[string]interface{}{"audit_queue": h.auditQueue.Stats()}
	}
	response.JSON(c, http.StatusOK, h.metrics.Snapshot(), nil, meta)
}

// Health responds with a generic OK payload for readiness and liveness probes.
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
