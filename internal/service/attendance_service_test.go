package service

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/nexalink-api/internal/access"
	"github.com/noah-isme/nexalink-api/internal/dto"
	"github.com/noah-isme/nexalink-api/internal/models"
	appErrors "github.com/noah-isme/nexalink-api/pkg/errors"
)

const (
	courseA       = "0b7c2f4e-8a51-4d0a-9a4e-0d3b0c1f6a01"
	courseB       = "0b7c2f4e-8a51-4d0a-9a4e-0d3b0c1f6a02"
	studentA      = "5d2c9a10-1f0e-4b8e-8f6a-3f1d2e4c5b01"
	studentB      = "5d2c9a10-1f0e-4b8e-8f6a-3f1d2e4c5b02"
	studentC      = "5d2c9a10-1f0e-4b8e-8f6a-3f1d2e4c5b03"
	ghost         = "5d2c9a10-1f0e-4b8e-8f6a-3f1d2e4c5b99"
	iaComponentID = "9e8d7c6b-5a49-4382-9170-6f5e4d3c2b01"
)

type attendanceRepoStub struct {
	upserted []models.AttendanceEvent
	counts   map[models.AttendanceStatus]int
	filter   models.RecordFilter
}

func (r *attendanceRepoStub) Upsert(_ context.Context, event *models.AttendanceEvent) error {
	r.upserted = append(r.upserted, *event)
	return nil
}

func (r *attendanceRepoStub) CountByStatus(_ context.Context, filter models.RecordFilter) (map[models.AttendanceStatus]int, error) {
	r.filter = filter
	return r.counts, nil
}

type courseStub map[string]models.Course

func (c courseStub) GetByID(_ context.Context, id string) (*models.Course, error) {
	course, ok := c[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &course, nil
}

type studentStub map[string]bool

func (s studentStub) StudentExists(_ context.Context, id string) (bool, error) {
	return s[id], nil
}

// flakyStudents fails every lookup of the listed students.
type flakyStudents struct {
	studentStub
	failing map[string]bool
}

func (s flakyStudents) StudentExists(ctx context.Context, id string) (bool, error) {
	if s.failing[id] {
		return false, errors.New("connection reset")
	}
	return s.studentStub.StudentExists(ctx, id)
}

type hookRecorder struct {
	changes []models.RecordChange
	err     error
}

func (h *hookRecorder) AfterWrite(_ context.Context, change models.RecordChange) error {
	h.changes = append(h.changes, change)
	return h.err
}

func newAttendanceServiceForTest(repo *attendanceRepoStub, hook *hookRecorder) *AttendanceService {
	return NewAttendanceService(AttendanceServiceParams{
		Repo:        repo,
		Courses:     courseStub{courseA: {ID: courseA, Code: "CS101", FacultyID: "fac-1"}},
		Enrollments: &enrollmentStub{enrolled: map[string]bool{studentA: true, studentB: true}},
		Students:    studentStub{studentA: true, studentB: true, studentC: true},
		Hooks:       NewRecordHooks(nil, hook),
	})
}

func bulkRequest(records ...dto.BulkAttendanceRecord) dto.BulkAttendanceRequest {
	return dto.BulkAttendanceRequest{CourseID: courseA, Date: "2024-03-04", Records: records}
}

func TestAttendanceBulkMarkPartialFailure(t *testing.T) {
	repo := &attendanceRepoStub{}
	hook := &hookRecorder{}
	svc := newAttendanceServiceForTest(repo, hook)
	scope := access.NewFacultyScope("user-fac", "fac-1", []string{courseA})

	resp, err := svc.BulkMark(context.Background(), scope, bulkRequest(
		dto.BulkAttendanceRecord{StudentID: studentA, Status: "present"},
		dto.BulkAttendanceRecord{StudentID: ghost, Status: "absent"},
		dto.BulkAttendanceRecord{StudentID: studentB, Status: "late"},
	))

	require.NoError(t, err)
	assert.Equal(t, 2, resp.CreatedCount)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, ghost, resp.Errors[0].StudentID)
	assert.Equal(t, "Student not found.", resp.Errors[0].Error)
	assert.Empty(t, resp.RecomputeErrors)

	require.Len(t, repo.upserted, 2)
	assert.Equal(t, "user-fac", *repo.upserted[0].MarkedBy)
	require.Len(t, hook.changes, 1)
	assert.Equal(t, models.ChangeAttendance, hook.changes[0].Kind)
	assert.Equal(t, []string{studentA, studentB}, hook.changes[0].StudentIDs)
}

func TestAttendanceBulkMarkLookupFailureIsPerItem(t *testing.T) {
	repo := &attendanceRepoStub{}
	hook := &hookRecorder{}
	svc := newAttendanceServiceForTest(repo, hook)
	svc.students = flakyStudents{studentStub: studentStub{studentA: true, studentB: true}, failing: map[string]bool{studentB: true}}

	resp, err := svc.BulkMark(context.Background(), &access.AdminScope{UserID: "admin"}, bulkRequest(
		dto.BulkAttendanceRecord{StudentID: studentA, Status: "present"},
		dto.BulkAttendanceRecord{StudentID: studentB, Status: "absent"},
	))

	require.NoError(t, err)
	assert.Equal(t, 1, resp.CreatedCount)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, studentB, resp.Errors[0].StudentID)
	assert.Equal(t, "Failed to verify student.", resp.Errors[0].Error)
	require.Len(t, repo.upserted, 1)
	require.Len(t, hook.changes, 1)
	assert.Equal(t, []string{studentA}, hook.changes[0].StudentIDs)
}

func TestAttendanceBulkMarkRejectsUnenrolledStudent(t *testing.T) {
	repo := &attendanceRepoStub{}
	hook := &hookRecorder{}
	svc := newAttendanceServiceForTest(repo, hook)

	resp, err := svc.BulkMark(context.Background(), &access.AdminScope{UserID: "admin"}, bulkRequest(
		dto.BulkAttendanceRecord{StudentID: studentC, Status: "present"},
	))

	require.NoError(t, err)
	assert.Equal(t, 0, resp.CreatedCount)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "Student is not enrolled in this course.", resp.Errors[0].Error)
	assert.Empty(t, hook.changes)
}

func TestAttendanceBulkMarkSurfacesRecomputeFailures(t *testing.T) {
	hook := &hookRecorder{err: &RecomputeError{CourseID: courseA, Kind: models.ChangeAttendance, Failures: []models.BulkItemError{{StudentID: studentB, Error: "failed to update attendance percentage"}}}}
	svc := newAttendanceServiceForTest(&attendanceRepoStub{}, hook)

	resp, err := svc.BulkMark(context.Background(), &access.AdminScope{UserID: "admin"}, bulkRequest(
		dto.BulkAttendanceRecord{StudentID: studentA, Status: "present"},
	))

	require.NoError(t, err)
	assert.Equal(t, 1, resp.CreatedCount)
	require.Len(t, resp.RecomputeErrors, 1)
	assert.Equal(t, studentB, resp.RecomputeErrors[0].StudentID)
}

func TestAttendanceBulkMarkRequestErrors(t *testing.T) {
	svc := newAttendanceServiceForTest(&attendanceRepoStub{}, &hookRecorder{})
	admin := &access.AdminScope{UserID: "admin"}
	ctx := context.Background()

	cases := []struct {
		name   string
		scope  access.Scope
		req    dto.BulkAttendanceRequest
		status int
	}{
		{"bad status", admin, bulkRequest(dto.BulkAttendanceRecord{StudentID: studentA, Status: "excused"}), http.StatusBadRequest},
		{"bad date", admin, dto.BulkAttendanceRequest{CourseID: courseA, Date: "04/03/2024", Records: []dto.BulkAttendanceRecord{{StudentID: studentA, Status: "present"}}}, http.StatusBadRequest},
		{"malformed student", admin, bulkRequest(dto.BulkAttendanceRecord{StudentID: "42", Status: "present"}), http.StatusBadRequest},
		{"no records", admin, bulkRequest(), http.StatusBadRequest},
		{"unknown course", admin, dto.BulkAttendanceRequest{CourseID: courseB, Date: "2024-03-04", Records: []dto.BulkAttendanceRecord{{StudentID: studentA, Status: "present"}}}, http.StatusNotFound},
		{"untaught course", access.NewFacultyScope("u", "fac-2", []string{courseB}), bulkRequest(dto.BulkAttendanceRecord{StudentID: studentA, Status: "present"}), http.StatusForbidden},
		{"student writer", &access.StudentScope{UserID: "u", StudentID: studentA}, bulkRequest(dto.BulkAttendanceRecord{StudentID: studentA, Status: "present"}), http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.BulkMark(ctx, tc.scope, tc.req)
			require.Error(t, err)
			assert.Equal(t, tc.status, appErrors.FromError(err).Status)
		})
	}
}

func TestAttendanceStatisticsSixTwoTwo(t *testing.T) {
	repo := &attendanceRepoStub{counts: map[models.AttendanceStatus]int{
		models.AttendanceStatusPresent: 6,
		models.AttendanceStatusAbsent:  2,
		models.AttendanceStatusLate:    2,
	}}
	svc := newAttendanceServiceForTest(repo, &hookRecorder{})

	stats, err := svc.Statistics(context.Background(), &access.AdminScope{UserID: "admin"}, dto.AnalyticsQuery{CourseID: courseA})

	require.NoError(t, err)
	assert.Equal(t, 10, stats.Total)
	assert.Equal(t, 60.0, stats.PresentPercentage)
	assert.Equal(t, 20.0, stats.AbsentPercentage)
	assert.Equal(t, 20.0, stats.LatePercentage)
	assert.Equal(t, courseA, repo.filter.CourseID)
}

func TestAttendanceStatisticsScoping(t *testing.T) {
	repo := &attendanceRepoStub{}
	svc := newAttendanceServiceForTest(repo, &hookRecorder{})
	student := &access.StudentScope{UserID: "user-a", StudentID: studentA}

	_, err := svc.Statistics(context.Background(), student, dto.AnalyticsQuery{StudentID: studentB})
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, appErrors.FromError(err).Status)

	stats, err := svc.Statistics(context.Background(), student, dto.AnalyticsQuery{})
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Total)
	assert.Equal(t, 0.0, stats.PresentPercentage)
	assert.Equal(t, studentA, repo.filter.StudentID)
}

func TestAttendanceStatisticsRejectsInvertedRange(t *testing.T) {
	svc := newAttendanceServiceForTest(&attendanceRepoStub{}, &hookRecorder{})

	_, err := svc.Statistics(context.Background(), &access.AdminScope{UserID: "admin"}, dto.AnalyticsQuery{StartDate: "2024-03-10", EndDate: "2024-03-01"})

	require.Error(t, err)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrValidation.Code))
}

func TestRecordHooksReportsPlainHookFailurePerStudent(t *testing.T) {
	hooks := NewRecordHooks(nil, &hookRecorder{err: errors.New("redis down")}, nil)

	failures := hooks.Fire(context.Background(), models.RecordChange{Kind: models.ChangeIAMarks, CourseID: courseA, StudentIDs: []string{studentA, studentB}})

	require.Len(t, failures, 2)
	assert.Equal(t, "derived metrics could not be refreshed", failures[1].Error)
}
