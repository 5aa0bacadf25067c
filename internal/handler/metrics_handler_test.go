package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/busbuddy-api/internal/service"
	"github.com/noah-isme/busbuddy-api/pkg/jobs"
)

type queueStatsStub struct{ stats jobs.Stats }

func (q queueStatsStub) Stats() jobs.Stats { return q.stats }

func TestMetricsHandlerSnapshotIncludesQueue(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewMetricsHandler(service.NewMetricsService()).
		WithAuditQueue(queueStatsStub{stats: jobs.Stats{Pending: 2, Processed: 9, Failed: 1}})

	c, w := newGinContext(http.MethodGet, "/system/metrics", nil)
	h.Snapshot(c)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Meta struct {
			AuditQueue jobs.Stats `json:"audit_queue"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, jobs.Stats{Pending: 2, Processed: 9, Failed: 1}, body.Meta.AuditQueue)
}

func TestMetricsHandlerPrometheus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	metrics.ObserveHTTPRequest(http.MethodGet, "/routes", http.StatusOK, 0)

	c, w := newGinContext(http.MethodGet, "/metrics", nil)
	NewMetricsHandler(metrics).Prometheus(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/routes")
}
