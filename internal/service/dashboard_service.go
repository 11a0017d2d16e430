package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/nexalink-api/internal/access"
	"github.com/noah-isme/nexalink-api/internal/aggregation"
	"github.com/noah-isme/nexalink-api/internal/dto"
	"github.com/noah-isme/nexalink-api/internal/models"
	"github.com/noah-isme/nexalink-api/internal/repository"
	appErrors "github.com/noah-isme/nexalink-api/pkg/errors"
)

type dashboardCourseReader interface {
	ListForStudent(ctx context.Context, studentID string) ([]models.Course, error)
	ListByFaculty(ctx context.Context, facultyID string) ([]models.Course, error)
	Count(ctx context.Context) (int, error)
}

type dashboardAttendanceReader interface {
	List(ctx context.Context, filter models.RecordFilter) ([]models.AttendanceEvent, error)
	CountByStatus(ctx context.Context, filter models.RecordFilter) (map[models.AttendanceStatus]int, error)
}

type dashboardFeedbackReader interface {
	List(ctx context.Context, filter models.RecordFilter) ([]models.FeedbackRecord, error)
	Totals(ctx context.Context, filter models.RecordFilter) (repository.FeedbackTotals, error)
	CountByStatus(ctx context.Context, filter models.RecordFilter, status models.FeedbackStatus) (int, error)
}

type dashboardEngagementReader interface {
	Recent(ctx context.Context, userID string, limit int) ([]models.EngagementEvent, error)
	Count(ctx context.Context) (int, error)
}

type dashboardEnrollmentReader interface {
	CountActiveByCourse(ctx context.Context, courseIDs []string) (map[string]int, error)
}

type profileCounter interface {
	CountStudents(ctx context.Context) (int, error)
	CountFaculty(ctx context.Context) (int, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL         time.Duration
	RecentLimit      int
	AdminRecentLimit int
	AdminParallelism int
}

// DashboardService composes the role-specific dashboard.
type DashboardService struct {
	courses     dashboardCourseReader
	attendance  dashboardAttendanceReader
	performance performanceLister
	percentages attendancePercentageLister
	feedback    dashboardFeedbackReader
	engagement  dashboardEngagementReader
	enrollments dashboardEnrollmentReader
	profiles    profileCounter
	cache       *CacheService
	logger      *zap.Logger
	now         func() time.Time
	cfg         DashboardServiceConfig
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Courses     dashboardCourseReader
	Attendance  dashboardAttendanceReader
	Performance performanceLister
	Percentages attendancePercentageLister
	Feedback    dashboardFeedbackReader
	Engagement  dashboardEngagementReader
	Enrollments dashboardEnrollmentReader
	Profiles    profileCounter
	Cache       *CacheService
	Logger      *zap.Logger
	Config      DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.RecentLimit <= 0 {
		cfg.RecentLimit = 5
	}
	if cfg.AdminRecentLimit <= 0 {
		cfg.AdminRecentLimit = 10
	}
	if cfg.AdminParallelism <= 0 {
		cfg.AdminParallelism = 4
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		courses:     params.Courses,
		attendance:  params.Attendance,
		performance: params.Performance,
		percentages: params.Percentages,
		feedback:    params.Feedback,
		engagement:  params.Engagement,
		enrollments: params.Enrollments,
		profiles:    params.Profiles,
		cache:       params.Cache,
		logger:      logger,
		now:         time.Now,
		cfg:         cfg,
	}
}

// Compose returns the dashboard for the scope. The boolean reports a cache hit.
// refresh skips the cache read but still stores the fresh composite.
func (s *DashboardService) Compose(ctx context.Context, scope access.Scope, refresh bool) (dto.Dashboard, bool, error) {
	cacheKey := fmt.Sprintf("dash:%s:%s", scope.Role(), scope.Subject())
	var (
		result dto.Dashboard
		err    error
	)
	switch sc := scope.(type) {
	case *access.StudentScope:
		if !refresh {
			var cached dto.StudentDashboard
			if s.tryCache(ctx, cacheKey, &cached) {
				return &cached, true, nil
			}
		}
		result, err = s.student(ctx, sc)
	case *access.FacultyScope:
		if !refresh {
			var cached dto.FacultyDashboard
			if s.tryCache(ctx, cacheKey, &cached) {
				return &cached, true, nil
			}
		}
		result, err = s.faculty(ctx, sc)
	case *access.AdminScope:
		if !refresh {
			var cached dto.AdminDashboard
			if s.tryCache(ctx, cacheKey, &cached) {
				return &cached, true, nil
			}
		}
		result, err = s.admin(ctx, sc)
	default:
		return nil, false, appErrors.Clone(appErrors.ErrForbidden, "unsupported scope")
	}
	if err != nil {
		return nil, false, err
	}
	s.persistCache(ctx, cacheKey, result)
	return result, false, nil
}

func (s *DashboardService) tryCache(ctx context.Context, key string, dest interface{}) bool {
	hit, err := s.cache.Get(ctx, key, dest)
	return err == nil && hit
}

func (s *DashboardService) persistCache(ctx context.Context, key string, value interface{}) {
	if err := s.cache.Set(ctx, key, value, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *DashboardService) student(ctx context.Context, scope *access.StudentScope) (*dto.StudentDashboard, error) {
	own := models.RecordFilter{StudentID: scope.StudentID}

	counts, err := s.attendance.CountByStatus(ctx, own)
	if err != nil {
		return nil, internalError(err, "failed to load attendance")
	}
	total := counts[models.AttendanceStatusPresent] + counts[models.AttendanceStatusAbsent] + counts[models.AttendanceStatusLate]
	present := counts[models.AttendanceStatusPresent] + counts[models.AttendanceStatusLate]

	records, err := s.performance.List(ctx, own)
	if err != nil {
		return nil, internalError(err, "failed to load performance")
	}
	ratio := func(r models.PerformanceRecord) (float64, float64) { return r.Score, r.MaxScore }
	overall := aggregation.Summarize(records, aggregation.Grouping[models.PerformanceRecord, int]{Ratio: ratio})
	byCourse := make(map[string]float64)
	for _, g := range aggregation.Aggregate(records, aggregation.Grouping[models.PerformanceRecord, string]{
		Key:   func(r models.PerformanceRecord) string { return r.CourseID },
		Ratio: ratio,
	}) {
		byCourse[g.Key] = g.Average
	}

	courses, err := s.courses.ListForStudent(ctx, scope.StudentID)
	if err != nil {
		return nil, internalError(err, "failed to load courses")
	}
	percentages, err := s.percentages.ListAttendancePercentages(ctx, own)
	if err != nil {
		return nil, internalError(err, "failed to load attendance percentages")
	}
	attendanceByCourse := make(map[string]float64, len(percentages))
	for _, p := range percentages {
		attendanceByCourse[p.CourseID] = p.Percentage
	}

	summaries := make([]dto.StudentCourseSummary, 0, len(courses))
	for _, c := range courses {
		summaries = append(summaries, dto.StudentCourseSummary{
			ID:                    c.ID,
			Code:                  c.Code,
			Name:                  c.Name,
			AttendancePercentage:  attendanceByCourse[c.ID],
			PerformancePercentage: byCourse[c.ID],
		})
	}

	recent, err := s.recent(ctx, scope.UserID, s.cfg.RecentLimit, false)
	if err != nil {
		return nil, err
	}

	return &dto.StudentDashboard{
		Role: models.RoleStudent,
		Attendance: dto.StudentAttendance{
			Percentage:   aggregation.Percentage(present, total),
			TotalClasses: total,
			Present:      present,
			Absent:       total - present,
		},
		Performance:      dto.StudentPerformance{Average: overall.Average},
		Courses:          summaries,
		RecentActivities: recent,
		GeneratedAt:      s.now().UTC(),
	}, nil
}

func (s *DashboardService) faculty(ctx context.Context, scope *access.FacultyScope) (*dto.FacultyDashboard, error) {
	courses, err := s.courses.ListByFaculty(ctx, scope.FacultyID)
	if err != nil {
		return nil, internalError(err, "failed to load courses")
	}
	ids := make([]string, 0, len(courses))
	for _, c := range courses {
		ids = append(ids, c.ID)
	}
	taught := models.RecordFilter{RestrictCourses: true, CourseIDs: ids}

	students, err := s.enrollments.CountActiveByCourse(ctx, ids)
	if err != nil {
		return nil, internalError(err, "failed to count enrollments")
	}

	events, err := s.attendance.List(ctx, taught)
	if err != nil {
		return nil, internalError(err, "failed to load attendance")
	}
	attendance := make(map[string]float64)
	for _, g := range aggregation.Aggregate(events, aggregation.Grouping[models.AttendanceEvent, string]{
		Key:        func(e models.AttendanceEvent) string { return e.CourseID },
		Category:   func(e models.AttendanceEvent) string { return string(e.Status) },
		Categories: models.AttendanceStatuses,
	}) {
		attended := g.Category(string(models.AttendanceStatusPresent)).Count + g.Category(string(models.AttendanceStatusLate)).Count
		attendance[g.Key] = aggregation.Percentage(attended, g.Count)
	}

	feedbackFilter := taught
	feedbackFilter.FacultyID = scope.FacultyID
	feedback, err := s.feedback.List(ctx, feedbackFilter)
	if err != nil {
		return nil, internalError(err, "failed to load feedback")
	}
	feedbackByCourse := make(map[string]aggregation.Group[string])
	for _, g := range aggregation.Aggregate(feedback, aggregation.Grouping[models.FeedbackRecord, string]{
		Key:   func(f models.FeedbackRecord) string { return f.CourseID },
		Value: func(f models.FeedbackRecord) float64 { return float64(f.Rating) },
	}) {
		feedbackByCourse[g.Key] = g
	}
	// Pending feedback follows the instructor, not the courses currently assigned.
	pending, err := s.feedback.CountByStatus(ctx, models.RecordFilter{FacultyID: scope.FacultyID}, models.FeedbackStatusPending)
	if err != nil {
		return nil, internalError(err, "failed to count pending feedback")
	}

	summaries := make([]dto.FacultyCourseSummary, 0, len(courses))
	for _, c := range courses {
		fb := feedbackByCourse[c.ID]
		summaries = append(summaries, dto.FacultyCourseSummary{
			ID:                   c.ID,
			Code:                 c.Code,
			Name:                 c.Name,
			Students:             students[c.ID],
			AttendancePercentage: attendance[c.ID],
			FeedbackCount:        fb.Count,
			AvgRating:            fb.Average,
		})
	}

	recent, err := s.recent(ctx, scope.UserID, s.cfg.RecentLimit, false)
	if err != nil {
		return nil, err
	}

	return &dto.FacultyDashboard{
		Role:             models.RoleFaculty,
		Courses:          summaries,
		PendingFeedback:  pending,
		RecentActivities: recent,
		GeneratedAt:      s.now().UTC(),
	}, nil
}

func (s *DashboardService) admin(ctx context.Context, _ *access.AdminScope) (*dto.AdminDashboard, error) {
	var (
		students, faculty, courses, engagement int
		counts                                 map[models.AttendanceStatus]int
		feedback                               repository.FeedbackTotals
		recent                                 []dto.ActivitySummary
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.AdminParallelism)
	g.Go(func() (err error) {
		students, err = s.profiles.CountStudents(gctx)
		return wrapInternal(err, "failed to count students")
	})
	g.Go(func() (err error) {
		faculty, err = s.profiles.CountFaculty(gctx)
		return wrapInternal(err, "failed to count faculty")
	})
	g.Go(func() (err error) {
		courses, err = s.courses.Count(gctx)
		return wrapInternal(err, "failed to count courses")
	})
	g.Go(func() (err error) {
		counts, err = s.attendance.CountByStatus(gctx, models.RecordFilter{})
		return wrapInternal(err, "failed to count attendance")
	})
	g.Go(func() (err error) {
		feedback, err = s.feedback.Totals(gctx, models.RecordFilter{})
		return wrapInternal(err, "failed to total feedback")
	})
	g.Go(func() (err error) {
		engagement, err = s.engagement.Count(gctx)
		return wrapInternal(err, "failed to count engagement")
	})
	g.Go(func() (err error) {
		recent, err = s.recent(gctx, "", s.cfg.AdminRecentLimit, true)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := counts[models.AttendanceStatusPresent] + counts[models.AttendanceStatusAbsent] + counts[models.AttendanceStatusLate]
	present := counts[models.AttendanceStatusPresent] + counts[models.AttendanceStatusLate]
	return &dto.AdminDashboard{
		Role:             models.RoleAdmin,
		Users:            dto.UserCounts{Students: students, Faculty: faculty},
		Courses:          courses,
		Attendance:       dto.AdminAttendance{Percentage: aggregation.Percentage(present, total), Total: total},
		Feedback:         dto.AdminFeedback{Total: feedback.Total, AvgRating: aggregation.Round2(feedback.AvgRating)},
		Engagement:       dto.AdminEngagement{Total: engagement},
		RecentActivities: recent,
		GeneratedAt:      s.now().UTC(),
	}, nil
}

func (s *DashboardService) recent(ctx context.Context, userID string, limit int, withUser bool) ([]dto.ActivitySummary, error) {
	events, err := s.engagement.Recent(ctx, userID, limit)
	if err != nil {
		return nil, internalError(err, "failed to load recent activity")
	}
	out := make([]dto.ActivitySummary, 0, len(events))
	for _, e := range events {
		item := dto.ActivitySummary{Action: e.Action, Resource: e.Resource, Timestamp: e.Timestamp}
		if withUser {
			item.UserType = string(e.UserType)
			item.UserEmail = e.UserEmail
		}
		out = append(out, item)
	}
	return out, nil
}

func internalError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func wrapInternal(err error, message string) error {
	if err == nil {
		return nil
	}
	return internalError(err, message)
}
