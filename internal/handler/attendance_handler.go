package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/nexalink-api/internal/access"
	"github.com/noah-isme/nexalink-api/internal/dto"
	"github.com/noah-isme/nexalink-api/internal/models"
	appErrors "github.com/noah-isme/nexalink-api/pkg/errors"
	"github.com/noah-isme/nexalink-api/pkg/response"
)

type attendanceService interface {
	BulkMark(ctx context.Context, scope access.Scope, req dto.BulkAttendanceRequest) (*dto.BulkWriteResponse, error)
	Statistics(ctx context.Context, scope access.Scope, query dto.AnalyticsQuery) (*dto.AttendanceStatistics, error)
	Percentages(ctx context.Context, scope access.Scope, query dto.AnalyticsQuery) ([]models.AttendancePercentage, error)
}

// AttendanceHandler exposes attendance writes and statistics.
type AttendanceHandler struct {
	service attendanceService
}

// NewAttendanceHandler constructs the handler.
func NewAttendanceHandler(service attendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: service}
}

// Statistics godoc
// @Summary Attendance statistics
// @Tags Attendance
// @Produce json
// @Param course_id query string false "Course ID"
// @Param student_id query string false "Student ID"
// @Param start_date query string false "From date (YYYY-MM-DD)"
// @Param end_date query string false "To date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /attendance/statistics [get]
func (h *AttendanceHandler) Statistics(c *gin.Context) {
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
	start := time.Now()
	stats, err := h.service.Statistics(c.Request.Context(), scope, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondTimed(c, start, stats, false)
}

// BulkMark godoc
// @Summary Mark attendance for many students
// @Description Valid records are committed even when others fail; failures are listed per student.
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body dto.BulkAttendanceRequest true "Attendance records"
// @Success 200 {object} response.Envelope
// @Router /attendance/bulk-mark [post]
func (h *AttendanceHandler) BulkMark(c *gin.Context) {
	scope := scopeFromContext(c)
	if scope == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.BulkAttendanceRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.BulkMark(c.Request.Context(), scope, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Percentages godoc
// @Summary Cached attendance percentages
// @Tags Attendance
// @Produce json
// @Param course_id query string false "Course ID"
// @Param student_id query string false "Student ID"
// @Success 200 {object} response.Envelope
// @Router /attendance/percentages [get]
func (h *AttendanceHandler) Percentages(c *gin.Context) {
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
	rows, err := h.service.Percentages(c.Request.Context(), scope, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}
