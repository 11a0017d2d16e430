package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/nexalink-api/internal/aggregation"
	"github.com/noah-isme/nexalink-api/internal/dto"
	"github.com/noah-isme/nexalink-api/internal/models"
	appErrors "github.com/noah-isme/nexalink-api/pkg/errors"
)

type attendanceTallyReader interface {
	TallyByStudent(ctx context.Context, courseID string) ([]models.AttendanceTally, error)
}

type activeEnrollmentReader interface {
	ListActiveStudentIDs(ctx context.Context, courseID string) ([]string, error)
}

type iaMarkReader interface {
	ListComponents(ctx context.Context, courseID string) ([]models.IAComponent, error)
	ListMarksByCourse(ctx context.Context, courseID string) ([]models.IAMark, error)
}

type metricRepository interface {
	UpsertAttendancePercentage(ctx context.Context, row models.AttendancePercentage) error
	UpsertIATotal(ctx context.Context, row models.IATotal) error
	ListAttendancePercentages(ctx context.Context, filter models.RecordFilter) ([]models.AttendancePercentage, error)
}

// RecomputeError lists the students whose derived row could not be refreshed.
// Rows of other students in the course were written.
type RecomputeError struct {
	CourseID string
	Kind     models.ChangeKind
	Failures []models.BulkItemError
}

func (e *RecomputeError) Error() string {
	ids := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		ids = append(ids, f.StudentID)
	}
	return fmt.Sprintf("recompute %s for course %s failed for %d student(s): %s", e.Kind, e.CourseID, len(e.Failures), strings.Join(ids, ","))
}

// MetricStore keeps AttendancePercentage and IATotal rows consistent with raw records.
type MetricStore struct {
	attendance  attendanceTallyReader
	enrollments activeEnrollmentReader
	ia          iaMarkReader
	repo        metricRepository
	metrics     *MetricsService
	logger      *zap.Logger
	now         func() time.Time
}

// MetricStoreParams groups constructor dependencies.
type MetricStoreParams struct {
	Attendance  attendanceTallyReader
	Enrollments activeEnrollmentReader
	IA          iaMarkReader
	Repo        metricRepository
	Metrics     *MetricsService
	Logger      *zap.Logger
}

// NewMetricStore constructs the store.
func NewMetricStore(params MetricStoreParams) *MetricStore {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MetricStore{
		attendance:  params.Attendance,
		enrollments: params.Enrollments,
		ia:          params.IA,
		repo:        params.Repo,
		metrics:     params.Metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// AttendancePercentageOf returns (present + late) / total * 100, or 0 without events.
func AttendancePercentageOf(t models.AttendanceTally) float64 {
	return aggregation.Percentage(t.Present+t.Late, t.Total)
}

// AfterWrite refreshes the derived metric matching the kind of change.
func (s *MetricStore) AfterWrite(ctx context.Context, change models.RecordChange) error {
	switch change.Kind {
	case models.ChangeAttendance:
		return s.RecomputeAttendance(ctx, change.CourseID)
	case models.ChangeIAMarks:
		return s.RecomputeIATotals(ctx, change.CourseID)
	default:
		return nil
	}
}

// RecomputeAttendance writes one row per actively enrolled student of the course.
func (s *MetricStore) RecomputeAttendance(ctx context.Context, courseID string) error {
	students, err := s.enrollments.ListActiveStudentIDs(ctx, courseID)
	if err != nil {
		s.metrics.RecordRecompute(models.ChangeAttendance, false)
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}
	tallies, err := s.attendance.TallyByStudent(ctx, courseID)
	if err != nil {
		s.metrics.RecordRecompute(models.ChangeAttendance, false)
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to tally attendance")
	}
	byStudent := make(map[string]models.AttendanceTally, len(tallies))
	for _, t := range tallies {
		byStudent[t.StudentID] = t
	}

	now := s.now().UTC()
	var failures []models.BulkItemError
	for _, studentID := range students {
		row := models.AttendancePercentage{
			StudentID:  studentID,
			CourseID:   courseID,
			Percentage: AttendancePercentageOf(byStudent[studentID]),
			UpdatedAt:  now,
		}
		if err := s.repo.UpsertAttendancePercentage(ctx, row); err != nil {
			failures = append(failures, models.BulkItemError{StudentID: studentID, Error: "failed to update attendance percentage"})
			s.logger.Debug("attendance percentage upsert failed", zap.String("course_id", courseID), zap.String("student_id", studentID), zap.Error(err))
		}
	}
	return s.finish(models.ChangeAttendance, courseID, failures)
}

// RecomputeIATotals writes one row per student with at least one mark in the course.
// The denominator is the weightage of every component, marked or not.
func (s *MetricStore) RecomputeIATotals(ctx context.Context, courseID string) error {
	components, err := s.ia.ListComponents(ctx, courseID)
	if err != nil {
		s.metrics.RecordRecompute(models.ChangeIAMarks, false)
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load ia components")
	}
	marks, err := s.ia.ListMarksByCourse(ctx, courseID)
	if err != nil {
		s.metrics.RecordRecompute(models.ChangeIAMarks, false)
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load ia marks")
	}

	byID := make(map[string]models.IAComponent, len(components))
	outOf := 0.0
	for _, c := range components {
		byID[c.ID] = c
		outOf += c.Weightage
	}

	marksByStudent := make(map[string][]models.IAMark)
	for _, m := range marks {
		marksByStudent[m.StudentID] = append(marksByStudent[m.StudentID], m)
	}
	students := make([]string, 0, len(marksByStudent))
	for id := range marksByStudent {
		students = append(students, id)
	}
	sort.Strings(students)

	now := s.now().UTC()
	var failures []models.BulkItemError
	for _, studentID := range students {
		total, err := weightedTotal(marksByStudent[studentID], byID)
		if err != nil {
			failures = append(failures, models.BulkItemError{StudentID: studentID, Error: err.Error()})
			continue
		}
		row := models.IATotal{
			StudentID:  studentID,
			CourseID:   courseID,
			TotalMarks: aggregation.Round2(total),
			OutOf:      aggregation.Round2(outOf),
			UpdatedAt:  now,
		}
		if outOf > 0 {
			row.Percentage = aggregation.Round2(total / outOf * 100)
		}
		if err := s.repo.UpsertIATotal(ctx, row); err != nil {
			failures = append(failures, models.BulkItemError{StudentID: studentID, Error: "failed to update ia total"})
			s.logger.Debug("ia total upsert failed", zap.String("course_id", courseID), zap.String("student_id", studentID), zap.Error(err))
		}
	}
	return s.finish(models.ChangeIAMarks, courseID, failures)
}

func weightedTotal(marks []models.IAMark, components map[string]models.IAComponent) (float64, error) {
	total := 0.0
	for _, m := range marks {
		c, ok := components[m.ComponentID]
		if !ok {
			return 0, fmt.Errorf("IA component %s not found", m.ComponentID)
		}
		if c.MaxMarks <= 0 {
			return 0, fmt.Errorf("IA component %s has no maximum marks", c.Name)
		}
		total += m.Marks / c.MaxMarks * c.Weightage
	}
	return total, nil
}

func (s *MetricStore) finish(kind models.ChangeKind, courseID string, failures []models.BulkItemError) error {
	s.metrics.RecordRecompute(kind, len(failures) == 0)
	if len(failures) == 0 {
		return nil
	}
	s.logger.Warn("metric recompute partially failed",
		zap.String("kind", string(kind)),
		zap.String("course_id", courseID),
		zap.Int("failures", len(failures)),
	)
	return &RecomputeError{CourseID: courseID, Kind: kind, Failures: failures}
}

// VerifyCourse recomputes attendance percentages in memory and reports rows that differ from the cache.
func (s *MetricStore) VerifyCourse(ctx context.Context, courseID string) (int, []models.MetricDrift, error) {
	students, err := s.enrollments.ListActiveStudentIDs(ctx, courseID)
	if err != nil {
		return 0, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}
	tallies, err := s.attendance.TallyByStudent(ctx, courseID)
	if err != nil {
		return 0, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to tally attendance")
	}
	cached, err := s.repo.ListAttendancePercentages(ctx, models.RecordFilter{CourseID: courseID})
	if err != nil {
		return 0, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance percentages")
	}

	byStudent := make(map[string]models.AttendanceTally, len(tallies))
	for _, t := range tallies {
		byStudent[t.StudentID] = t
	}
	stored := make(map[string]float64, len(cached))
	for _, row := range cached {
		stored[row.StudentID] = row.Percentage
	}

	drift := make([]models.MetricDrift, 0)
	for _, studentID := range students {
		expected := AttendancePercentageOf(byStudent[studentID])
		value, ok := stored[studentID]
		if ok && value == expected {
			continue
		}
		entry := models.MetricDrift{StudentID: studentID, Expected: expected}
		if ok {
			v := value
			entry.Cached = &v
		}
		drift = append(drift, entry)
	}
	return len(students), drift, nil
}

// Verify wraps VerifyCourse into the response payload.
func (s *MetricStore) Verify(ctx context.Context, courseID string) (*dto.MetricVerification, error) {
	checked, drift, err := s.VerifyCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return &dto.MetricVerification{CourseID: courseID, Checked: checked, Drift: drift}, nil
}

// RecomputeCourse refreshes both derived metrics of a course. Per-student failures are
// returned in the result; any other failure aborts.
func (s *MetricStore) RecomputeCourse(ctx context.Context, courseID string) (*dto.RecomputeResult, error) {
	result := &dto.RecomputeResult{CourseID: courseID, RecomputeErrors: []models.BulkItemError{}}
	for _, recompute := range []func(context.Context, string) error{s.RecomputeAttendance, s.RecomputeIATotals} {
		err := recompute(ctx, courseID)
		if err == nil {
			continue
		}
		var partial *RecomputeError
		if !errors.As(err, &partial) {
			return nil, err
		}
		result.RecomputeErrors = append(result.RecomputeErrors, partial.Failures...)
	}
	return result, nil
}
