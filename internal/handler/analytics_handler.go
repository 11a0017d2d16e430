package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/nexalink-api/internal/access"
	"github.com/noah-isme/nexalink-api/internal/dto"
	appErrors "github.com/noah-isme/nexalink-api/pkg/errors"
	"github.com/noah-isme/nexalink-api/pkg/response"
)

type analyticsService interface {
	Attendance(ctx context.Context, scope access.Scope, query dto.AnalyticsQuery) (*dto.AttendanceAnalytics, bool, error)
	Performance(ctx context.Context, scope access.Scope, query dto.AnalyticsQuery) (*dto.PerformanceAnalytics, bool, error)
	Engagement(ctx context.Context, scope access.Scope, query dto.AnalyticsQuery) (*dto.EngagementAnalytics, bool, error)
	Feedback(ctx context.Context, scope access.Scope, query dto.AnalyticsQuery) (*dto.FeedbackAnalytics, bool, error)
}

// AnalyticsHandler exposes the scoped analytics views.
type AnalyticsHandler struct {
	analytics analyticsService
}

// NewAnalyticsHandler constructs the analytics handler.
func NewAnalyticsHandler(analytics analyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// Attendance godoc
// @Summary Attendance analytics
// @Tags Analytics
// @Produce json
// @Param course_id query string false "Course ID"
// @Param student_id query string false "Student ID"
// @Param start_date query string false "From date (YYYY-MM-DD)"
// @Param end_date query string false "To date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /analytics/attendance [get]
func (h *AnalyticsHandler) Attendance(c *gin.Context) {
	serveView(c, h.analytics, func(ctx context.Context, scope access.Scope, q dto.AnalyticsQuery) (interface{}, bool, error) {
		return h.analytics.Attendance(ctx, scope, q)
	})
}

// Performance godoc
// @Summary Performance analytics
// @Tags Analytics
// @Produce json
// @Param course_id query string false "Course ID"
// @Param student_id query string false "Student ID"
// @Param score_type query string false "quiz, assignment, exam or project"
// @Param start_date query string false "From date (YYYY-MM-DD)"
// @Param end_date query string false "To date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /analytics/performance [get]
func (h *AnalyticsHandler) Performance(c *gin.Context) {
	serveView(c, h.analytics, func(ctx context.Context, scope access.Scope, q dto.AnalyticsQuery) (interface{}, bool, error) {
		return h.analytics.Performance(ctx, scope, q)
	})
}

// Engagement godoc
// @Summary Engagement analytics
// @Tags Analytics
// @Produce json
// @Param user_id query string false "User ID"
// @Param user_type query string false "student, faculty or admin"
// @Param action query string false "Action"
// @Param start_date query string false "From date (YYYY-MM-DD)"
// @Param end_date query string false "To date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /analytics/engagement [get]
func (h *AnalyticsHandler) Engagement(c *gin.Context) {
	serveView(c, h.analytics, func(ctx context.Context, scope access.Scope, q dto.AnalyticsQuery) (interface{}, bool, error) {
		return h.analytics.Engagement(ctx, scope, q)
	})
}

// Feedback godoc
// @Summary Feedback analytics
// @Tags Analytics
// @Produce json
// @Param course_id query string false "Course ID"
// @Param faculty_id query string false "Faculty ID"
// @Param start_date query string false "From date (YYYY-MM-DD)"
// @Param end_date query string false "To date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /analytics/feedback [get]
func (h *AnalyticsHandler) Feedback(c *gin.Context) {
	serveView(c, h.analytics, func(ctx context.Context, scope access.Scope, q dto.AnalyticsQuery) (interface{}, bool, error) {
		return h.analytics.Feedback(ctx, scope, q)
	})
}

type viewFunc func(ctx context.Context, scope access.Scope, query dto.AnalyticsQuery) (interface{}, bool, error)

func serveView(c *gin.Context, svc analyticsService, view viewFunc) {
	if svc == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
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
	result, cacheHit, err := view(c.Request.Context(), scope, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondTimed(c, start, result, cacheHit)
}
