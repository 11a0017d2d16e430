package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/nexalink-api/internal/access"
	"github.com/noah-isme/nexalink-api/internal/aggregation"
	"github.com/noah-isme/nexalink-api/internal/dto"
	"github.com/noah-isme/nexalink-api/internal/models"
	appErrors "github.com/noah-isme/nexalink-api/pkg/errors"
)

type attendanceRepository interface {
	Upsert(ctx context.Context, event *models.AttendanceEvent) error
	CountByStatus(ctx context.Context, filter models.RecordFilter) (map[models.AttendanceStatus]int, error)
}

type courseReader interface {
	GetByID(ctx context.Context, id string) (*models.Course, error)
}

type enrollmentChecker interface {
	IsEnrolled(ctx context.Context, studentID, courseID string) (bool, error)
}

type studentChecker interface {
	StudentExists(ctx context.Context, studentID string) (bool, error)
}

type attendancePercentageLister interface {
	ListAttendancePercentages(ctx context.Context, filter models.RecordFilter) ([]models.AttendancePercentage, error)
}

const (
	msgStudentNotFound = "Student not found."
	msgNotEnrolled     = "Student is not enrolled in this course."

	msgStudentLookupFailed = "Failed to verify student."
)

// AttendanceService records attendance and reports status statistics.
type AttendanceService struct {
	repo        attendanceRepository
	courses     courseReader
	enrollments enrollmentChecker
	students    studentChecker
	percentages attendancePercentageLister
	hooks       *RecordHooks
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
}

// AttendanceServiceParams groups constructor dependencies.
type AttendanceServiceParams struct {
	Repo        attendanceRepository
	Courses     courseReader
	Enrollments enrollmentChecker
	Students    studentChecker
	Percentages attendancePercentageLister
	Hooks       *RecordHooks
	Metrics     *MetricsService
	Validator   *validator.Validate
	Logger      *zap.Logger
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(params AttendanceServiceParams) *AttendanceService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{
		repo:        params.Repo,
		courses:     params.Courses,
		enrollments: params.Enrollments,
		students:    params.Students,
		percentages: params.Percentages,
		hooks:       params.Hooks,
		metrics:     params.Metrics,
		validator:   wireValidator(params.Validator),
		logger:      logger,
	}
}

// BulkMark upserts attendance for every valid item and refreshes derived metrics for the course.
// Invalid items are reported individually and do not block the rest.
func (s *AttendanceService) BulkMark(ctx context.Context, scope access.Scope, req dto.BulkAttendanceRequest) (*dto.BulkWriteResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		return nil, err
	}
	course, err := s.courses.GetByID(ctx, req.CourseID)
	if err != nil {
		return nil, notFoundOr(err, "course not found", "failed to load course")
	}
	if err := scope.AuthorizeCourseWrite(course.ID); err != nil {
		return nil, err
	}

	actor := scope.Subject()
	result := &dto.BulkWriteResponse{Errors: []models.BulkItemError{}, RecomputeErrors: []models.BulkItemError{}}
	written := make([]string, 0, len(req.Records))
	for _, item := range req.Records {
		if msg := checkStudent(ctx, s.students, s.enrollments, s.logger, item.StudentID, course.ID); msg != "" {
			result.Errors = append(result.Errors, models.BulkItemError{StudentID: item.StudentID, Error: msg})
			continue
		}
		event := &models.AttendanceEvent{
			StudentID: item.StudentID,
			CourseID:  course.ID,
			Date:      *date,
			Status:    models.AttendanceStatus(item.Status),
			MarkedBy:  &actor,
			Remarks:   item.Remarks,
		}
		if err := s.repo.Upsert(ctx, event); err != nil {
			s.logger.Error("attendance upsert failed", zap.String("course_id", course.ID), zap.String("student_id", item.StudentID), zap.Error(err))
			result.Errors = append(result.Errors, models.BulkItemError{StudentID: item.StudentID, Error: "Failed to record attendance."})
			continue
		}
		written = append(written, item.StudentID)
	}
	result.CreatedCount = len(written)
	s.metrics.RecordBulkItems(models.ChangeAttendance, result.CreatedCount, len(result.Errors))

	if len(written) > 0 {
		result.RecomputeErrors = s.hooks.Fire(ctx, models.RecordChange{
			Kind:       models.ChangeAttendance,
			CourseID:   course.ID,
			StudentIDs: written,
			ActorID:    actor,
		})
	}
	return result, nil
}

// checkStudent returns a per-item message when the student cannot be written in the course.
// Lookup failures are reported on the item so the rest of the batch still commits.
func checkStudent(ctx context.Context, students studentChecker, enrollments enrollmentChecker, logger *zap.Logger, studentID, courseID string) string {
	exists, err := students.StudentExists(ctx, studentID)
	if err != nil {
		logger.Error("student lookup failed", zap.String("student_id", studentID), zap.Error(err))
		return msgStudentLookupFailed
	}
	if !exists {
		return msgStudentNotFound
	}
	enrolled, err := enrollments.IsEnrolled(ctx, studentID, courseID)
	if err != nil {
		logger.Error("enrollment lookup failed", zap.String("student_id", studentID), zap.String("course_id", courseID), zap.Error(err))
		return msgStudentLookupFailed
	}
	if !enrolled {
		return msgNotEnrolled
	}
	return ""
}

// Statistics counts attendance per status within the caller's scope.
func (s *AttendanceService) Statistics(ctx context.Context, scope access.Scope, query dto.AnalyticsQuery) (*dto.AttendanceStatistics, error) {
	filter, err := recordFilter(s.validator, query)
	if err != nil {
		return nil, err
	}
	filter, err = scope.Narrow(filter)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	counts, err := s.repo.CountByStatus(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count attendance")
	}
	s.metrics.ObserveDBQuery("attendance_statistics", time.Since(start))
	stats := StatisticsFromCounts(counts[models.AttendanceStatusPresent], counts[models.AttendanceStatusAbsent], counts[models.AttendanceStatusLate])
	return &stats, nil
}

// Percentages lists cached attendance percentages within the caller's scope.
func (s *AttendanceService) Percentages(ctx context.Context, scope access.Scope, query dto.AnalyticsQuery) ([]models.AttendancePercentage, error) {
	filter, err := recordFilter(s.validator, query)
	if err != nil {
		return nil, err
	}
	filter, err = scope.Narrow(filter)
	if err != nil {
		return nil, err
	}
	rows, err := s.percentages.ListAttendancePercentages(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance percentages")
	}
	return rows, nil
}

// StatisticsFromCounts derives the status shares of a population.
func StatisticsFromCounts(present, absent, late int) dto.AttendanceStatistics {
	total := present + absent + late
	return dto.AttendanceStatistics{
		Total:             total,
		Present:           present,
		Absent:            absent,
		Late:              late,
		PresentPercentage: aggregation.Percentage(present, total),
		AbsentPercentage:  aggregation.Percentage(absent, total),
		LatePercentage:    aggregation.Percentage(late, total),
	}
}
