package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/nexalink-api/internal/access"
	"github.com/noah-isme/nexalink-api/internal/dto"
	"github.com/noah-isme/nexalink-api/internal/models"
)

type attendanceServiceFake struct {
	lastBulk  dto.BulkAttendanceRequest
	lastQuery dto.AnalyticsQuery
	bulk      *dto.BulkWriteResponse
	err       error
}

func (f *attendanceServiceFake) BulkMark(_ context.Context, _ access.Scope, req dto.BulkAttendanceRequest) (*dto.BulkWriteResponse, error) {
	f.lastBulk = req
	return f.bulk, f.err
}

func (f *attendanceServiceFake) Statistics(_ context.Context, _ access.Scope, q dto.AnalyticsQuery) (*dto.AttendanceStatistics, error) {
	f.lastQuery = q
	return &dto.AttendanceStatistics{Total: 10, Present: 6, Absent: 2, Late: 2, PresentPercentage: 60, AbsentPercentage: 20, LatePercentage: 20}, f.err
}

func (f *attendanceServiceFake) Percentages(_ context.Context, _ access.Scope, q dto.AnalyticsQuery) ([]models.AttendancePercentage, error) {
	f.lastQuery = q
	return []models.AttendancePercentage{{StudentID: testStudentID, CourseID: testCourseID, Percentage: 75}}, f.err
}

type iaServiceFake struct {
	lastBulk dto.BulkIAMarksRequest
}

func (f *iaServiceFake) BulkMarks(_ context.Context, _ access.Scope, req dto.BulkIAMarksRequest) (*dto.BulkWriteResponse, error) {
	f.lastBulk = req
	return &dto.BulkWriteResponse{CreatedCount: len(req.Records), Errors: []models.BulkItemError{}, RecomputeErrors: []models.BulkItemError{}}, nil
}

func (f *iaServiceFake) Totals(context.Context, access.Scope, dto.AnalyticsQuery) ([]models.IATotal, error) {
	return []models.IATotal{}, nil
}

func TestAttendanceHandlerBulkMarkRejectsMalformedBody(t *testing.T) {
	fake := &attendanceServiceFake{}
	handler := NewAttendanceHandler(fake)
	c, w := newGinContext(http.MethodPost, "/attendance/bulk-mark", []byte(`{"course_id":`))
	withScope(c, access.NewFacultyScope("u9", "fac-1", []string{testCourseID}))

	handler.BulkMark(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAttendanceHandlerBulkMarkReturnsPartialResult(t *testing.T) {
	fake := &attendanceServiceFake{bulk: &dto.BulkWriteResponse{
		CreatedCount:    2,
		Errors:          []models.BulkItemError{{StudentID: "ghost", Error: "Student not found."}},
		RecomputeErrors: []models.BulkItemError{},
	}}
	handler := NewAttendanceHandler(fake)
	body, err := json.Marshal(dto.BulkAttendanceRequest{
		CourseID: testCourseID,
		Date:     "2024-03-01",
		Records:  []dto.BulkAttendanceRecord{{StudentID: testStudentID, Status: "present"}},
	})
	require.NoError(t, err)
	c, w := newGinContext(http.MethodPost, "/attendance/bulk-mark", body)
	withScope(c, access.NewFacultyScope("u9", "fac-1", []string{testCourseID}))

	handler.BulkMark(c)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "2024-03-01", fake.lastBulk.Date)
	var payload dto.BulkWriteResponse
	decodeEnvelope(t, w, &payload)
	assert.Equal(t, 2, payload.CreatedCount)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "Student not found.", payload.Errors[0].Error)
	assert.NotNil(t, payload.RecomputeErrors)
}

func TestAttendanceHandlerStatistics(t *testing.T) {
	fake := &attendanceServiceFake{}
	handler := NewAttendanceHandler(fake)
	c, w := newGinContext(http.MethodGet, "/attendance/statistics?course_id="+testCourseID, nil)
	withScope(c, &access.AdminScope{UserID: "admin-1"})

	handler.Statistics(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, testCourseID, fake.lastQuery.CourseID)
	var stats dto.AttendanceStatistics
	decodeEnvelope(t, w, &stats)
	assert.Equal(t, 60.0, stats.PresentPercentage)
	assert.Equal(t, 20.0, stats.LatePercentage)
}

func TestAttendanceHandlerPercentages(t *testing.T) {
	handler := NewAttendanceHandler(&attendanceServiceFake{})
	c, w := newGinContext(http.MethodGet, "/attendance/percentages", nil)
	withScope(c, &access.StudentScope{UserID: "u1", StudentID: testStudentID})

	handler.Percentages(c)

	require.Equal(t, http.StatusOK, w.Code)
	var rows []models.AttendancePercentage
	decodeEnvelope(t, w, &rows)
	require.Len(t, rows, 1)
	assert.Equal(t, 75.0, rows[0].Percentage)
}

func TestIAHandlerBulkMarks(t *testing.T) {
	fake := &iaServiceFake{}
	handler := NewIAHandler(fake)
	c, w := newGinContext(http.MethodPost, "/ia-marks/bulk", []byte(`{"component_id":"9e8d7c6b-5a49-4382-9170-6f5e4d3c2b01","records":[{"student_id":"`+testStudentID+`","marks":42.5}]}`))
	withScope(c, &access.AdminScope{UserID: "admin-1"})

	handler.BulkMarks(c)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, fake.lastBulk.Records, 1)
	require.NotNil(t, fake.lastBulk.Records[0].Marks)
	assert.Equal(t, 42.5, *fake.lastBulk.Records[0].Marks)
}

func TestIAHandlerBulkMarksNamesMistypedField(t *testing.T) {
	fake := &iaServiceFake{}
	handler := NewIAHandler(fake)
	c, w := newGinContext(http.MethodPost, "/ia-marks/bulk", []byte(`{"component_id":"9e8d7c6b-5a49-4382-9170-6f5e4d3c2b01","records":[{"student_id":"`+testStudentID+`","marks":"abc"}]}`))
	withScope(c, &access.AdminScope{UserID: "admin-1"})

	handler.BulkMarks(c)

	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	env := decodeEnvelope(t, w, nil)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Contains(t, env.Error.Field, "marks")
	assert.Contains(t, env.Error.Message, "float64")
	assert.Empty(t, fake.lastBulk.Records)
}

func TestIAHandlerTotalsRequiresScope(t *testing.T) {
	handler := NewIAHandler(&iaServiceFake{})
	c, w := newGinContext(http.MethodGet, "/ia-marks/totals", nil)

	handler.Totals(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
