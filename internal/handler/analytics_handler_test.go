package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/nexalink-api/internal/access"
	"github.com/noah-isme/nexalink-api/internal/dto"
	appErrors "github.com/noah-isme/nexalink-api/pkg/errors"
)

type analyticsServiceFake struct {
	lastQuery dto.AnalyticsQuery
	lastScope access.Scope
	hit       bool
	err       error
}

func (f *analyticsServiceFake) record(scope access.Scope, q dto.AnalyticsQuery) {
	f.lastScope = scope
	f.lastQuery = q
}

func (f *analyticsServiceFake) Attendance(_ context.Context, scope access.Scope, q dto.AnalyticsQuery) (*dto.AttendanceAnalytics, bool, error) {
	f.record(scope, q)
	if f.err != nil {
		return nil, false, f.err
	}
	return &dto.AttendanceAnalytics{
		Overall: dto.AttendanceStatistics{Total: 10, Present: 6, Absent: 2, Late: 2, PresentPercentage: 60, AbsentPercentage: 20, LatePercentage: 20},
		ByDate:  []dto.AttendanceDateRow{},
	}, f.hit, nil
}

func (f *analyticsServiceFake) Performance(_ context.Context, scope access.Scope, q dto.AnalyticsQuery) (*dto.PerformanceAnalytics, bool, error) {
	f.record(scope, q)
	return &dto.PerformanceAnalytics{}, f.hit, f.err
}

func (f *analyticsServiceFake) Engagement(_ context.Context, scope access.Scope, q dto.AnalyticsQuery) (*dto.EngagementAnalytics, bool, error) {
	f.record(scope, q)
	return &dto.EngagementAnalytics{}, f.hit, f.err
}

func (f *analyticsServiceFake) Feedback(_ context.Context, scope access.Scope, q dto.AnalyticsQuery) (*dto.FeedbackAnalytics, bool, error) {
	f.record(scope, q)
	return &dto.FeedbackAnalytics{}, f.hit, f.err
}

func TestAnalyticsHandlerRequiresScope(t *testing.T) {
	handler := NewAnalyticsHandler(&analyticsServiceFake{})
	c, w := newGinContext(http.MethodGet, "/analytics/attendance", nil)

	handler.Attendance(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAnalyticsHandlerBindsQueryAndReportsCacheHit(t *testing.T) {
	fake := &analyticsServiceFake{hit: true}
	handler := NewAnalyticsHandler(fake)
	c, w := newGinContext(http.MethodGet, "/analytics/attendance?course_id="+testCourseID+"&start_date=2024-03-01&end_date=2024-03-31", nil)
	scope := &access.AdminScope{UserID: "admin-1"}
	withScope(c, scope)

	handler.Attendance(c)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, testCourseID, fake.lastQuery.CourseID)
	assert.Equal(t, "2024-03-01", fake.lastQuery.StartDate)
	assert.Equal(t, "2024-03-31", fake.lastQuery.EndDate)
	assert.Same(t, scope, fake.lastScope)

	var payload dto.AttendanceAnalytics
	env := decodeEnvelope(t, w, &payload)
	assert.Equal(t, 60.0, payload.Overall.PresentPercentage)
	assert.Nil(t, payload.ByCourse)
	assert.Equal(t, true, env.Meta["cache_hit"])
	assert.Contains(t, env.Meta, "processing_time_ms")
}

func TestAnalyticsHandlerPropagatesAuthorizationError(t *testing.T) {
	fake := &analyticsServiceFake{err: appErrors.Clone(appErrors.ErrForbidden, "students may only access their own records")}
	handler := NewAnalyticsHandler(fake)
	c, w := newGinContext(http.MethodGet, "/analytics/attendance?student_id="+testStudentID, nil)
	withScope(c, &access.StudentScope{UserID: "u1", StudentID: "other"})

	handler.Attendance(c)

	require.Equal(t, http.StatusForbidden, w.Code)
	env := decodeEnvelope(t, w, nil)
	require.NotNil(t, env.Error)
	assert.Equal(t, appErrors.ErrForbidden.Code, env.Error.Code)
}

func TestAnalyticsHandlerRoutesEachView(t *testing.T) {
	fake := &analyticsServiceFake{}
	handler := NewAnalyticsHandler(fake)
	views := map[string]gin.HandlerFunc{
		"performance": handler.Performance,
		"engagement":  handler.Engagement,
		"feedback":    handler.Feedback,
	}
	for name, view := range views {
		c, w := newGinContext(http.MethodGet, "/analytics/"+name+"?action=login", nil)
		withScope(c, &access.AdminScope{UserID: "admin-1"})

		view(c)

		assert.Equal(t, http.StatusOK, w.Code, name)
		assert.Equal(t, "login", fake.lastQuery.Action, name)
	}
}
