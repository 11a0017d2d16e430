package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/noah-isme/nexalink-api/internal/dto"
	appErrors "github.com/noah-isme/nexalink-api/pkg/errors"
	"github.com/noah-isme/nexalink-api/pkg/response"
)

type metricMaintainer interface {
	Verify(ctx context.Context, courseID string) (*dto.MetricVerification, error)
	RecomputeCourse(ctx context.Context, courseID string) (*dto.RecomputeResult, error)
}

// MetricAdminHandler lets administrators check and rebuild derived metrics.
type MetricAdminHandler struct {
	store metricMaintainer
}

// NewMetricAdminHandler constructs the handler.
func NewMetricAdminHandler(store metricMaintainer) *MetricAdminHandler {
	return &MetricAdminHandler{store: store}
}

// Verify godoc
// @Summary Compare cached attendance percentages with a fresh computation
// @Tags Metrics
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /metrics/courses/{id}/verify [get]
func (h *MetricAdminHandler) Verify(c *gin.Context) {
	courseID, err := courseParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	report, err := h.store.Verify(c.Request.Context(), courseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Recompute godoc
// @Summary Recompute attendance percentages and IA totals of a course
// @Tags Metrics
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /metrics/courses/{id}/recompute [post]
func (h *MetricAdminHandler) Recompute(c *gin.Context) {
	courseID, err := courseParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.store.RecomputeCourse(c.Request.Context(), courseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

func courseParam(c *gin.Context) (string, error) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", appErrors.Invalid("id", "id must be a valid UUID")
	}
	return id, nil
}
