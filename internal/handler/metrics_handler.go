package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/nexalink-api/internal/service"
	appErrors "github.com/noah-isme/nexalink-api/pkg/errors"
	"github.com/noah-isme/nexalink-api/pkg/jobs"
	"github.com/noah-isme/nexalink-api/pkg/response"
)

// QueueStatser reports background queue counters.
type QueueStatser interface {
	Stats() jobs.Stats
}

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics *service.MetricsService
	queues  []QueueStatser
}

// NewMetricsHandler constructs a metrics handler.
func NewMetricsHandler(metrics *service.MetricsService, queues ...QueueStatser) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, queues: queues}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		response.Error(c, appErrors.ErrServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health responds with an OK payload plus queue backlog for readiness probes.
func (h *MetricsHandler) Health(c *gin.Context) {
	queues := make([]jobs.Stats, 0, len(h.queues))
	for _, q := range h.queues {
		if q != nil {
			queues = append(queues, q.Stats())
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"queues":  queues,
		"metrics": h.metrics.Snapshot(),
	})
}
