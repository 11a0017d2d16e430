package service

import (
	"cmp"
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/nexalink-api/internal/access"
	"github.com/noah-isme/nexalink-api/internal/aggregation"
	"github.com/noah-isme/nexalink-api/internal/dto"
	"github.com/noah-isme/nexalink-api/internal/models"
	appErrors "github.com/noah-isme/nexalink-api/pkg/errors"
)

const (
	analyticsCachePattern = "analytics*"
	dashboardCachePattern = "dash*"
	topUsersLimit         = 10
)

type attendanceEventLister interface {
	List(ctx context.Context, filter models.RecordFilter) ([]models.AttendanceEvent, error)
}

type performanceLister interface {
	List(ctx context.Context, filter models.RecordFilter) ([]models.PerformanceRecord, error)
}

type engagementLister interface {
	List(ctx context.Context, filter models.RecordFilter) ([]models.EngagementEvent, error)
}

type feedbackLister interface {
	List(ctx context.Context, filter models.RecordFilter) ([]models.FeedbackRecord, error)
}

// Visibility controls which peer-level breakdowns a caller may receive.
type Visibility struct {
	Peers    bool
	AllUsers bool
}

// VisibilityOf reads the visibility of a resolved scope.
func VisibilityOf(scope access.Scope) Visibility {
	return Visibility{Peers: scope.SeesPeers(), AllUsers: scope.SeesAllUsers()}
}

// VisibilityForRole returns the visibility a scope of the role would have.
func VisibilityForRole(role models.UserRole) Visibility {
	switch role {
	case models.RoleAdmin:
		return Visibility{Peers: true, AllUsers: true}
	case models.RoleFaculty:
		return Visibility{Peers: true}
	default:
		return Visibility{}
	}
}

func (v Visibility) key() string {
	return "p=" + strconv.FormatBool(v.Peers) + "|a=" + strconv.FormatBool(v.AllUsers)
}

// AnalyticsService computes attendance, performance, engagement and feedback rollups.
// Raw rows are fetched through the narrowed filter and grouped by the aggregation engine.
type AnalyticsService struct {
	attendance  attendanceEventLister
	performance performanceLister
	engagement  engagementLister
	feedback    feedbackLister
	cache       *CacheService
	cacheTTL    time.Duration
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
}

// AnalyticsServiceParams groups constructor dependencies.
type AnalyticsServiceParams struct {
	Attendance  attendanceEventLister
	Performance performanceLister
	Engagement  engagementLister
	Feedback    feedbackLister
	Cache       *CacheService
	CacheTTL    time.Duration
	Metrics     *MetricsService
	Validator   *validator.Validate
	Logger      *zap.Logger
}

// NewAnalyticsService constructs an analytics service.
func NewAnalyticsService(params AnalyticsServiceParams) *AnalyticsService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{
		attendance:  params.Attendance,
		performance: params.Performance,
		engagement:  params.Engagement,
		feedback:    params.Feedback,
		cache:       params.Cache,
		cacheTTL:    params.CacheTTL,
		metrics:     params.Metrics,
		validator:   wireValidator(params.Validator),
		logger:      logger,
	}
}

// Attendance returns attendance analytics. The boolean reports a cache hit.
func (s *AnalyticsService) Attendance(ctx context.Context, scope access.Scope, query dto.AnalyticsQuery) (*dto.AttendanceAnalytics, bool, error) {
	filter, err := s.narrow(scope, query)
	if err != nil {
		return nil, false, err
	}
	vis := VisibilityOf(scope)
	return cachedView(ctx, s, "attendance", scope.Role(), filter, vis, func() (*dto.AttendanceAnalytics, error) {
		return s.AttendanceFor(ctx, filter, vis)
	})
}

// Performance returns performance analytics. The boolean reports a cache hit.
func (s *AnalyticsService) Performance(ctx context.Context, scope access.Scope, query dto.AnalyticsQuery) (*dto.PerformanceAnalytics, bool, error) {
	filter, err := s.narrow(scope, query)
	if err != nil {
		return nil, false, err
	}
	vis := VisibilityOf(scope)
	return cachedView(ctx, s, "performance", scope.Role(), filter, vis, func() (*dto.PerformanceAnalytics, error) {
		return s.PerformanceFor(ctx, filter, vis)
	})
}

// Engagement returns engagement analytics. The boolean reports a cache hit.
func (s *AnalyticsService) Engagement(ctx context.Context, scope access.Scope, query dto.AnalyticsQuery) (*dto.EngagementAnalytics, bool, error) {
	filter, err := s.narrow(scope, query)
	if err != nil {
		return nil, false, err
	}
	vis := VisibilityOf(scope)
	return cachedView(ctx, s, "engagement", scope.Role(), filter, vis, func() (*dto.EngagementAnalytics, error) {
		return s.EngagementFor(ctx, filter, vis)
	})
}

// Feedback returns feedback analytics. The boolean reports a cache hit.
func (s *AnalyticsService) Feedback(ctx context.Context, scope access.Scope, query dto.AnalyticsQuery) (*dto.FeedbackAnalytics, bool, error) {
	filter, err := s.narrow(scope, query)
	if err != nil {
		return nil, false, err
	}
	vis := VisibilityOf(scope)
	return cachedView(ctx, s, "feedback", scope.Role(), filter, vis, func() (*dto.FeedbackAnalytics, error) {
		return s.FeedbackFor(ctx, filter, vis)
	})
}

func (s *AnalyticsService) narrow(scope access.Scope, query dto.AnalyticsQuery) (models.RecordFilter, error) {
	filter, err := recordFilter(s.validator, query)
	if err != nil {
		return filter, err
	}
	return scope.Narrow(filter)
}

func cachedView[T any](ctx context.Context, s *AnalyticsService, view string, role models.UserRole, filter models.RecordFilter, vis Visibility, compute func() (*T, error)) (*T, bool, error) {
	parts := append([]string{view, string(role), vis.key()}, filter.CacheKeyParts()...)
	cacheKey := makeAnalyticsCacheKey(parts...)
	var cached T
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		return &cached, true, nil
	}
	result, err := compute()
	if err != nil {
		return nil, false, err
	}
	_ = s.cache.Set(ctx, cacheKey, result, s.cacheTTL)
	return result, false, nil
}

// AttendanceFor computes attendance analytics over an already narrowed filter.
func (s *AnalyticsService) AttendanceFor(ctx context.Context, filter models.RecordFilter, vis Visibility) (*dto.AttendanceAnalytics, error) {
	events, err := s.fetchAttendance(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer s.observe("attendance", time.Now())

	status := func(e models.AttendanceEvent) string { return string(e.Status) }
	result := &dto.AttendanceAnalytics{
		Overall: statsFromGroup(aggregation.Summarize(events, aggregation.Grouping[models.AttendanceEvent, int]{
			Category: status, Categories: models.AttendanceStatuses,
		})),
		ByDate: make([]dto.AttendanceDateRow, 0),
	}
	for _, g := range aggregation.Aggregate(events, aggregation.Grouping[models.AttendanceEvent, string]{
		Key:      func(e models.AttendanceEvent) string { return aggregation.DateKey(e.Date) },
		Category: status, Categories: models.AttendanceStatuses,
	}) {
		result.ByDate = append(result.ByDate, dto.AttendanceDateRow{Date: g.Key, AttendanceStatistics: statsFromGroup(g)})
	}

	if filter.CourseID == "" {
		labels := make(map[string]models.AttendanceEvent)
		for _, e := range events {
			labels[e.CourseID] = e
		}
		rows := make([]dto.AttendanceCourseRow, 0)
		for _, g := range aggregation.Aggregate(events, aggregation.Grouping[models.AttendanceEvent, string]{
			Key:      func(e models.AttendanceEvent) string { return e.CourseID },
			Category: status, Categories: models.AttendanceStatuses,
		}) {
			label := labels[g.Key]
			rows = append(rows, dto.AttendanceCourseRow{CourseID: g.Key, CourseCode: label.CourseCode, CourseName: label.CourseName, AttendanceStatistics: statsFromGroup(g)})
		}
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].CourseCode < rows[j].CourseCode })
		result.ByCourse = &rows
	}

	if filter.StudentID == "" && vis.Peers {
		names := make(map[string]string)
		for _, e := range events {
			names[e.StudentID] = e.Student
		}
		rows := make([]dto.AttendanceStudentRow, 0)
		for _, g := range aggregation.Aggregate(events, aggregation.Grouping[models.AttendanceEvent, string]{
			Key:      func(e models.AttendanceEvent) string { return e.StudentID },
			Category: status, Categories: models.AttendanceStatuses,
		}) {
			rows = append(rows, dto.AttendanceStudentRow{StudentID: g.Key, StudentName: names[g.Key], AttendanceStatistics: statsFromGroup(g)})
		}
		result.ByStudent = &rows
	}
	return result, nil
}

// PerformanceFor computes performance analytics over an already narrowed filter.
func (s *AnalyticsService) PerformanceFor(ctx context.Context, filter models.RecordFilter, vis Visibility) (*dto.PerformanceAnalytics, error) {
	start := time.Now()
	records, err := s.performance.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load performance records")
	}
	s.metrics.ObserveDBQuery("analytics_performance", time.Since(start))
	defer s.observe("performance", time.Now())

	ratio := func(r models.PerformanceRecord) (float64, float64) { return r.Score, r.MaxScore }
	overall := aggregation.Summarize(records, aggregation.Grouping[models.PerformanceRecord, int]{Ratio: ratio})
	result := &dto.PerformanceAnalytics{
		Overall: dto.PerformanceOverall{
			Total:    overall.Count,
			AvgScore: overall.Average,
			MinScore: overall.Minimum,
			MaxScore: overall.Maximum,
			Excluded: overall.Excluded,
		},
		ByType: make([]dto.PerformanceTypeRow, 0),
		ByDate: make([]dto.PerformanceDateRow, 0),
	}
	for _, g := range aggregation.Aggregate(records, aggregation.Grouping[models.PerformanceRecord, string]{
		Key:   func(r models.PerformanceRecord) string { return string(r.ScoreType) },
		Ratio: ratio,
	}) {
		result.ByType = append(result.ByType, dto.PerformanceTypeRow{
			ScoreType: models.ScoreType(g.Key), Count: g.Count, AvgScore: g.Average, MinScore: g.Minimum, MaxScore: g.Maximum,
		})
	}
	for _, g := range aggregation.Aggregate(records, aggregation.Grouping[models.PerformanceRecord, string]{
		Key:   func(r models.PerformanceRecord) string { return aggregation.DateKey(r.Date) },
		Ratio: ratio,
	}) {
		result.ByDate = append(result.ByDate, dto.PerformanceDateRow{Date: g.Key, Count: g.Count, AvgScore: g.Average})
	}

	if filter.CourseID == "" {
		labels := make(map[string]models.PerformanceRecord)
		for _, r := range records {
			labels[r.CourseID] = r
		}
		rows := make([]dto.PerformanceCourseRow, 0)
		for _, g := range aggregation.Aggregate(records, aggregation.Grouping[models.PerformanceRecord, string]{
			Key:   func(r models.PerformanceRecord) string { return r.CourseID },
			Ratio: ratio,
		}) {
			label := labels[g.Key]
			rows = append(rows, dto.PerformanceCourseRow{CourseID: g.Key, CourseCode: label.CourseCode, CourseName: label.CourseName, Count: g.Count, AvgScore: g.Average})
		}
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].CourseCode < rows[j].CourseCode })
		result.ByCourse = &rows
	}

	if filter.StudentID == "" && vis.Peers {
		names := make(map[string]string)
		for _, r := range records {
			names[r.StudentID] = r.StudentName
		}
		rows := make([]dto.PerformanceStudentRow, 0)
		for _, g := range aggregation.Aggregate(records, aggregation.Grouping[models.PerformanceRecord, string]{
			Key:   func(r models.PerformanceRecord) string { return r.StudentID },
			Ratio: ratio,
		}) {
			rows = append(rows, dto.PerformanceStudentRow{StudentID: g.Key, StudentName: names[g.Key], Count: g.Count, AvgScore: g.Average})
		}
		result.ByStudent = &rows
	}
	return result, nil
}

// EngagementFor computes engagement analytics over an already narrowed filter.
func (s *AnalyticsService) EngagementFor(ctx context.Context, filter models.RecordFilter, vis Visibility) (*dto.EngagementAnalytics, error) {
	start := time.Now()
	events, err := s.engagement.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load engagement records")
	}
	s.metrics.ObserveDBQuery("analytics_engagement", time.Since(start))
	defer s.observe("engagement", time.Now())

	result := &dto.EngagementAnalytics{
		Overall: dto.EngagementOverall{
			TotalRecords:  len(events),
			UniqueUsers:   aggregation.Distinct(events, func(e models.EngagementEvent) string { return e.UserID }),
			UniqueActions: aggregation.Distinct(events, func(e models.EngagementEvent) string { return e.Action }),
		},
		ByAction:   make([]dto.ActionCount, 0),
		ByUserType: make([]dto.UserTypeCount, 0),
		ByHour:     make([]dto.HourCount, 0),
		ByDay:      make([]dto.DayCount, 0),
	}
	for _, g := range aggregation.Aggregate(events, aggregation.Grouping[models.EngagementEvent, string]{
		Key:    func(e models.EngagementEvent) string { return e.Action },
		Ranked: true,
	}) {
		result.ByAction = append(result.ByAction, dto.ActionCount{Action: g.Key, Count: g.Count})
	}
	for _, g := range aggregation.Aggregate(events, aggregation.Grouping[models.EngagementEvent, string]{
		Key: func(e models.EngagementEvent) string { return string(e.UserType) },
	}) {
		result.ByUserType = append(result.ByUserType, dto.UserTypeCount{UserType: g.Key, Count: g.Count})
	}
	for _, g := range aggregation.Aggregate(events, aggregation.Grouping[models.EngagementEvent, int]{
		Key: func(e models.EngagementEvent) int { return aggregation.HourKey(e.Timestamp) },
	}) {
		result.ByHour = append(result.ByHour, dto.HourCount{Hour: g.Key, Count: g.Count})
	}
	for _, g := range aggregation.Aggregate(events, aggregation.Grouping[models.EngagementEvent, int]{
		Key: func(e models.EngagementEvent) int { return aggregation.DayKey(e.Timestamp) },
	}) {
		result.ByDay = append(result.ByDay, dto.DayCount{Day: g.Key, Count: g.Count})
	}

	if vis.AllUsers {
		users := make(map[string]models.EngagementEvent)
		for _, e := range events {
			users[e.UserID] = e
		}
		top := make([]dto.TopUser, 0, topUsersLimit)
		for _, g := range aggregation.Aggregate(events, aggregation.Grouping[models.EngagementEvent, string]{
			Key:    func(e models.EngagementEvent) string { return e.UserID },
			Ranked: true,
			Limit:  topUsersLimit,
		}) {
			u := users[g.Key]
			top = append(top, dto.TopUser{UserID: g.Key, Email: u.UserEmail, UserType: string(u.UserType), Count: g.Count})
		}
		result.TopUsers = &top
	}
	return result, nil
}

// FeedbackFor computes feedback analytics over an already narrowed filter.
func (s *AnalyticsService) FeedbackFor(ctx context.Context, filter models.RecordFilter, vis Visibility) (*dto.FeedbackAnalytics, error) {
	start := time.Now()
	records, err := s.feedback.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load feedback")
	}
	s.metrics.ObserveDBQuery("analytics_feedback", time.Since(start))
	defer s.observe("feedback", time.Now())

	rating := func(f models.FeedbackRecord) float64 { return float64(f.Rating) }
	overall := aggregation.Summarize(records, aggregation.Grouping[models.FeedbackRecord, int]{
		Category:   func(f models.FeedbackRecord) string { return string(f.Status) },
		Categories: models.FeedbackStatuses,
		Value:      rating,
	})
	result := &dto.FeedbackAnalytics{
		Overall: dto.FeedbackOverall{
			TotalFeedback:  overall.Count,
			AvgRating:      overall.Average,
			PendingCount:   overall.Category(string(models.FeedbackStatusPending)).Count,
			RespondedCount: overall.Category(string(models.FeedbackStatusResponded)).Count,
			ResolvedCount:  overall.Category(string(models.FeedbackStatusResolved)).Count,
		},
		BySentiment: make([]dto.SentimentRow, 0),
		ByStatus:    make([]dto.StatusShare, 0, len(overall.Categories)),
		ByRating:    make([]dto.RatingShare, 0, 5),
	}
	for _, c := range overall.Categories {
		result.ByStatus = append(result.ByStatus, dto.StatusShare{Status: c.Category, Count: c.Count, Percentage: c.Percentage})
	}
	ratings := aggregation.Summarize(records, aggregation.Grouping[models.FeedbackRecord, int]{
		Category:   func(f models.FeedbackRecord) string { return strconv.Itoa(f.Rating) },
		Categories: []string{"1", "2", "3", "4", "5"},
	})
	for _, c := range ratings.Categories {
		value, err := strconv.Atoi(c.Category)
		if err != nil {
			continue
		}
		result.ByRating = append(result.ByRating, dto.RatingShare{Rating: value, Count: c.Count, Percentage: c.Percentage})
	}
	for _, g := range aggregation.Aggregate(records, aggregation.Grouping[models.FeedbackRecord, string]{
		Key:   sentimentOf,
		Value: rating,
	}) {
		result.BySentiment = append(result.BySentiment, dto.SentimentRow{Sentiment: g.Key, Count: g.Count, AvgRating: g.Average})
	}

	if filter.CourseID == "" {
		labels := make(map[string]models.FeedbackRecord)
		for _, f := range records {
			labels[f.CourseID] = f
		}
		rows := make([]dto.FeedbackCourseRow, 0)
		for _, g := range aggregation.Aggregate(records, aggregation.Grouping[models.FeedbackRecord, string]{
			Key:   func(f models.FeedbackRecord) string { return f.CourseID },
			Value: rating,
		}) {
			label := labels[g.Key]
			rows = append(rows, dto.FeedbackCourseRow{CourseID: g.Key, CourseCode: label.CourseCode, CourseName: label.CourseName, Count: g.Count, AvgRating: g.Average})
		}
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].CourseCode < rows[j].CourseCode })
		result.ByCourse = &rows
	}

	if filter.FacultyID == "" && vis.AllUsers {
		names := make(map[string]string)
		for _, f := range records {
			names[f.FacultyID] = f.FacultyName
		}
		rows := make([]dto.FacultyRatingRow, 0)
		for _, g := range aggregation.Aggregate(records, aggregation.Grouping[models.FeedbackRecord, string]{
			Key:   func(f models.FeedbackRecord) string { return f.FacultyID },
			Value: rating,
		}) {
			rows = append(rows, dto.FacultyRatingRow{FacultyID: g.Key, FacultyName: names[g.Key], Count: g.Count, AvgRating: g.Average})
		}
		result.ByFaculty = &rows
	}
	return result, nil
}

func (s *AnalyticsService) fetchAttendance(ctx context.Context, filter models.RecordFilter) ([]models.AttendanceEvent, error) {
	start := time.Now()
	events, err := s.attendance.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}
	s.metrics.ObserveDBQuery("analytics_attendance", time.Since(start))
	return events, nil
}

func (s *AnalyticsService) observe(view string, start time.Time) {
	s.metrics.ObserveAggregation(view, time.Since(start))
}

func sentimentOf(f models.FeedbackRecord) string {
	if f.Sentiment == nil || *f.Sentiment == "" {
		return models.SentimentUnknown
	}
	return *f.Sentiment
}

func statsFromGroup[K cmp.Ordered](g aggregation.Group[K]) dto.AttendanceStatistics {
	return StatisticsFromCounts(
		g.Category(string(models.AttendanceStatusPresent)).Count,
		g.Category(string(models.AttendanceStatusAbsent)).Count,
		g.Category(string(models.AttendanceStatusLate)).Count,
	)
}

func makeAnalyticsCacheKey(parts ...string) string {
	var builder strings.Builder
	builder.Grow(len(parts) * 16)
	builder.WriteString("analytics")
	for _, part := range parts {
		if part == "" {
			continue
		}
		builder.WriteByte(':')
		builder.WriteString(strings.ReplaceAll(part, ":", "|"))
	}
	return builder.String()
}
