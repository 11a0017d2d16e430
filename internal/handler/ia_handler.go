package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/nexalink-api/internal/access"
	"github.com/noah-isme/nexalink-api/internal/dto"
	"github.com/noah-isme/nexalink-api/internal/models"
	appErrors "github.com/noah-isme/nexalink-api/pkg/errors"
	"github.com/noah-isme/nexalink-api/pkg/response"
)

type iaService interface {
	BulkMarks(ctx context.Context, scope access.Scope, req dto.BulkIAMarksRequest) (*dto.BulkWriteResponse, error)
	Totals(ctx context.Context, scope access.Scope, query dto.AnalyticsQuery) ([]models.IATotal, error)
}

// IAHandler exposes internal assessment marks.
type IAHandler struct {
	service iaService
}

// NewIAHandler constructs the handler.
func NewIAHandler(service iaService) *IAHandler {
	return &IAHandler{service: service}
}

// BulkMarks godoc
// @Summary Record IA marks for many students
// @Tags IA Marks
// @Accept json
// @Produce json
// @Param payload body dto.BulkIAMarksRequest true "IA marks"
// @Success 200 {object} response.Envelope
// @Router /ia-marks/bulk [post]
func (h *IAHandler) BulkMarks(c *gin.Context) {
	scope := scopeFromContext(c)
	if scope == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.BulkIAMarksRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.BulkMarks(c.Request.Context(), scope, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Totals godoc
// @Summary Cached IA totals
// @Tags IA Marks
// @Produce json
// @Param course_id query string false "Course ID"
// @Param student_id query string false "Student ID"
// @Success 200 {object} response.Envelope
// @Router /ia-marks/totals [get]
func (h *IAHandler) Totals(c *gin.Context) {
	scope := scopeFromContext(c)
	if scope == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	query, err := bindAnalyticsQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	rows, err := h.service.Totals(c.Request.Context(), scope, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}
