package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/nexalink-api/internal/access"
	"github.com/noah-isme/nexalink-api/internal/dto"
	"github.com/noah-isme/nexalink-api/internal/models"
	appErrors "github.com/noah-isme/nexalink-api/pkg/errors"
)

const facultyA = "3a9e5b7c-1d2f-4e6a-8b0c-9d1e2f3a4b01"

type recordListerStub[T any] struct {
	rows       []T
	err        error
	calls      int
	lastFilter models.RecordFilter
}

func (s *recordListerStub[T]) List(_ context.Context, filter models.RecordFilter) ([]T, error) {
	s.calls++
	s.lastFilter = filter
	if s.err != nil {
		return nil, s.err
	}
	return s.rows, nil
}

type memoryCache struct {
	entries map[string][]byte
	deleted []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]byte{}}
}

func (m *memoryCache) Get(_ context.Context, key string, dest interface{}) error {
	payload, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (m *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = payload
	return nil
}

func (m *memoryCache) DeleteByPattern(_ context.Context, pattern string) error {
	m.deleted = append(m.deleted, pattern)
	m.entries = map[string][]byte{}
	return nil
}

type analyticsFixture struct {
	attendance  *recordListerStub[models.AttendanceEvent]
	performance *recordListerStub[models.PerformanceRecord]
	engagement  *recordListerStub[models.EngagementEvent]
	feedback    *recordListerStub[models.FeedbackRecord]
	cache       *memoryCache
	service     *AnalyticsService
}

func newAnalyticsFixture(withCache bool) *analyticsFixture {
	f := &analyticsFixture{
		attendance:  &recordListerStub[models.AttendanceEvent]{rows: sampleAttendance()},
		performance: &recordListerStub[models.PerformanceRecord]{},
		engagement:  &recordListerStub[models.EngagementEvent]{},
		feedback:    &recordListerStub[models.FeedbackRecord]{},
		cache:       newMemoryCache(),
	}
	f.service = NewAnalyticsService(AnalyticsServiceParams{
		Attendance:  f.attendance,
		Performance: f.performance,
		Engagement:  f.engagement,
		Feedback:    f.feedback,
		Cache:       NewCacheService(f.cache, nil, time.Minute, nil, withCache),
		CacheTTL:    time.Minute,
	})
	return f
}

func sampleAttendance() []models.AttendanceEvent {
	day := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	statuses := []models.AttendanceStatus{
		models.AttendanceStatusPresent, models.AttendanceStatusPresent, models.AttendanceStatusPresent,
		models.AttendanceStatusPresent, models.AttendanceStatusPresent, models.AttendanceStatusPresent,
		models.AttendanceStatusAbsent, models.AttendanceStatusAbsent,
		models.AttendanceStatusLate, models.AttendanceStatusLate,
	}
	events := make([]models.AttendanceEvent, 0, len(statuses))
	for i, status := range statuses {
		course, code := courseA, "CS101"
		if i%2 == 1 {
			course, code = courseB, "CS201"
		}
		student := studentA
		if i >= 5 {
			student = studentB
		}
		events = append(events, models.AttendanceEvent{
			StudentID:  student,
			CourseID:   course,
			CourseCode: code,
			Date:       day.AddDate(0, 0, i%3),
			Status:     status,
		})
	}
	return events
}

func requireAppStatus(t *testing.T, err error, status int) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, status, appErrors.FromError(err).Status)
}

func TestAnalyticsAttendanceOverallForAdmin(t *testing.T) {
	f := newAnalyticsFixture(false)

	result, hit, err := f.service.Attendance(context.Background(), &access.AdminScope{UserID: "admin-1"}, dto.AnalyticsQuery{})

	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 10, result.Overall.Total)
	assert.Equal(t, 60.0, result.Overall.PresentPercentage)
	assert.Equal(t, 20.0, result.Overall.AbsentPercentage)
	assert.Equal(t, 20.0, result.Overall.LatePercentage)
	require.Len(t, result.ByDate, 3)
	assert.Equal(t, "2024-03-01", result.ByDate[0].Date)
	require.NotNil(t, result.ByCourse)
	require.Len(t, *result.ByCourse, 2)
	assert.Equal(t, "CS101", (*result.ByCourse)[0].CourseCode)
	require.NotNil(t, result.ByStudent)
	assert.Len(t, *result.ByStudent, 2)
}

func TestAnalyticsAttendanceOmitsCourseBreakdownWhenFiltered(t *testing.T) {
	f := newAnalyticsFixture(false)

	result, _, err := f.service.Attendance(context.Background(), &access.AdminScope{UserID: "admin-1"}, dto.AnalyticsQuery{CourseID: courseA})

	require.NoError(t, err)
	assert.Equal(t, courseA, f.attendance.lastFilter.CourseID)
	assert.Nil(t, result.ByCourse)
	assert.NotNil(t, result.ByStudent)
}

func TestAnalyticsStudentSeesOnlyOwnRecords(t *testing.T) {
	f := newAnalyticsFixture(false)
	scope := &access.StudentScope{UserID: "user-1", StudentID: studentA}

	result, _, err := f.service.Attendance(context.Background(), scope, dto.AnalyticsQuery{})

	require.NoError(t, err)
	assert.Equal(t, studentA, f.attendance.lastFilter.StudentID)
	assert.Nil(t, result.ByStudent)
	assert.NotNil(t, result.ByCourse)
}

func TestAnalyticsStudentCannotQueryPeer(t *testing.T) {
	f := newAnalyticsFixture(false)
	scope := &access.StudentScope{UserID: "user-1", StudentID: studentA}

	_, _, err := f.service.Attendance(context.Background(), scope, dto.AnalyticsQuery{StudentID: studentB})

	requireAppStatus(t, err, http.StatusForbidden)
	assert.Zero(t, f.attendance.calls)
}

func TestAnalyticsFacultyRestrictedToTaughtCourses(t *testing.T) {
	f := newAnalyticsFixture(false)
	scope := access.NewFacultyScope("user-9", facultyA, []string{courseA})

	_, _, err := f.service.Performance(context.Background(), scope, dto.AnalyticsQuery{CourseID: courseB})
	requireAppStatus(t, err, http.StatusForbidden)

	_, _, err = f.service.Performance(context.Background(), scope, dto.AnalyticsQuery{})
	require.NoError(t, err)
	assert.True(t, f.performance.lastFilter.RestrictCourses)
	assert.Equal(t, []string{courseA}, f.performance.lastFilter.CourseIDs)
}

func TestAnalyticsRejectsMalformedQuery(t *testing.T) {
	f := newAnalyticsFixture(false)

	_, _, err := f.service.Feedback(context.Background(), &access.AdminScope{UserID: "admin-1"}, dto.AnalyticsQuery{StartDate: "03/01/2024"})

	requireAppStatus(t, err, http.StatusBadRequest)
	assert.Zero(t, f.feedback.calls)
}

func TestAnalyticsPerformanceSkipsZeroMaxInRatios(t *testing.T) {
	f := newAnalyticsFixture(false)
	day := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)
	f.performance.rows = []models.PerformanceRecord{
		{StudentID: studentA, CourseID: courseA, ScoreType: models.ScoreTypeQuiz, Score: 8, MaxScore: 10, Date: day},
		{StudentID: studentA, CourseID: courseA, ScoreType: models.ScoreTypeQuiz, Score: 4, MaxScore: 0, Date: day},
		{StudentID: studentB, CourseID: courseA, ScoreType: models.ScoreTypeExam, Score: 30, MaxScore: 60, Date: day},
	}

	result, _, err := f.service.Performance(context.Background(), &access.AdminScope{UserID: "admin-1"}, dto.AnalyticsQuery{})

	require.NoError(t, err)
	assert.Equal(t, 3, result.Overall.Total)
	assert.Equal(t, 1, result.Overall.Excluded)
	assert.Equal(t, 65.0, result.Overall.AvgScore)
	assert.Equal(t, 50.0, result.Overall.MinScore)
	assert.Equal(t, 80.0, result.Overall.MaxScore)
	require.Len(t, result.ByType, 2)
	assert.Equal(t, models.ScoreTypeExam, result.ByType[0].ScoreType)
}

func TestAnalyticsPerformanceScoreTypeFilter(t *testing.T) {
	f := newAnalyticsFixture(true)
	admin := &access.AdminScope{UserID: "admin-1"}

	_, _, err := f.service.Performance(context.Background(), admin, dto.AnalyticsQuery{ScoreType: "homework"})
	requireAppStatus(t, err, http.StatusBadRequest)
	assert.Zero(t, f.performance.calls)

	_, _, err = f.service.Performance(context.Background(), admin, dto.AnalyticsQuery{ScoreType: "quiz"})
	require.NoError(t, err)
	assert.Equal(t, models.ScoreTypeQuiz, f.performance.lastFilter.ScoreType)

	_, hit, err := f.service.Performance(context.Background(), admin, dto.AnalyticsQuery{ScoreType: "exam"})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, models.ScoreTypeExam, f.performance.lastFilter.ScoreType)
	assert.Equal(t, 2, f.performance.calls)
}

func TestAnalyticsEngagementTopUsersOnlyForAdmin(t *testing.T) {
	f := newAnalyticsFixture(false)
	at := time.Date(2024, time.March, 3, 9, 0, 0, 0, time.UTC)
	f.engagement.rows = []models.EngagementEvent{
		{UserID: "u1", UserEmail: "a@example.edu", UserType: models.RoleStudent, Action: "GET /analytics/attendance", Timestamp: at},
		{UserID: "u1", UserEmail: "a@example.edu", UserType: models.RoleStudent, Action: "GET /dashboard", Timestamp: at},
		{UserID: "u2", UserEmail: "b@example.edu", UserType: models.RoleFaculty, Action: "GET /dashboard", Timestamp: at.Add(time.Hour)},
	}

	admin, _, err := f.service.Engagement(context.Background(), &access.AdminScope{UserID: "admin-1"}, dto.AnalyticsQuery{})
	require.NoError(t, err)
	assert.Equal(t, 3, admin.Overall.TotalRecords)
	assert.Equal(t, 2, admin.Overall.UniqueUsers)
	assert.Equal(t, 2, admin.Overall.UniqueActions)
	assert.Equal(t, "GET /dashboard", admin.ByAction[0].Action)
	require.NotNil(t, admin.TopUsers)
	assert.Equal(t, "u1", (*admin.TopUsers)[0].UserID)
	assert.Equal(t, 2, (*admin.TopUsers)[0].Count)

	faculty, _, err := f.service.Engagement(context.Background(), access.NewFacultyScope("u2", facultyA, nil), dto.AnalyticsQuery{})
	require.NoError(t, err)
	assert.Nil(t, faculty.TopUsers)
	assert.Equal(t, "u2", f.engagement.lastFilter.UserID)
}

func TestAnalyticsFeedbackFacultyRankingOnlyForAdmin(t *testing.T) {
	f := newAnalyticsFixture(false)
	positive := "positive"
	f.feedback.rows = []models.FeedbackRecord{
		{CourseID: courseA, FacultyID: facultyA, Rating: 5, Status: models.FeedbackStatusResolved, Sentiment: &positive},
		{CourseID: courseA, FacultyID: facultyA, Rating: 3, Status: models.FeedbackStatusPending},
		{CourseID: courseB, FacultyID: "fac-2", Rating: 4, Status: models.FeedbackStatusPending},
	}

	admin, _, err := f.service.Feedback(context.Background(), &access.AdminScope{UserID: "admin-1"}, dto.AnalyticsQuery{})
	require.NoError(t, err)
	assert.Equal(t, 3, admin.Overall.TotalFeedback)
	assert.Equal(t, 4.0, admin.Overall.AvgRating)
	assert.Equal(t, 2, admin.Overall.PendingCount)
	assert.Equal(t, 1, admin.Overall.ResolvedCount)
	require.Len(t, admin.ByRating, 5)
	assert.Equal(t, 0, admin.ByRating[0].Count)
	require.Len(t, admin.BySentiment, 2)
	assert.Equal(t, "positive", admin.BySentiment[0].Sentiment)
	assert.Equal(t, models.SentimentUnknown, admin.BySentiment[1].Sentiment)
	require.NotNil(t, admin.ByFaculty)
	assert.Len(t, *admin.ByFaculty, 2)

	faculty, _, err := f.service.Feedback(context.Background(), access.NewFacultyScope("user-9", facultyA, []string{courseA}), dto.AnalyticsQuery{})
	require.NoError(t, err)
	assert.Nil(t, faculty.ByFaculty)
	assert.Equal(t, facultyA, f.feedback.lastFilter.FacultyID)
}

func TestAnalyticsServesRepeatQueriesFromCache(t *testing.T) {
	f := newAnalyticsFixture(true)
	admin := &access.AdminScope{UserID: "admin-1"}

	first, hit, err := f.service.Attendance(context.Background(), admin, dto.AnalyticsQuery{})
	require.NoError(t, err)
	assert.False(t, hit)

	second, hit, err := f.service.Attendance(context.Background(), admin, dto.AnalyticsQuery{})
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first.Overall, second.Overall)
	assert.Equal(t, 1, f.attendance.calls)

	student := &access.StudentScope{UserID: "user-1", StudentID: studentA}
	_, hit, err = f.service.Attendance(context.Background(), student, dto.AnalyticsQuery{})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, f.attendance.calls)
}

func TestAnalyticsWrapsRepositoryFailure(t *testing.T) {
	f := newAnalyticsFixture(false)
	f.engagement.err = errors.New("connection reset")

	_, _, err := f.service.Engagement(context.Background(), &access.AdminScope{UserID: "admin-1"}, dto.AnalyticsQuery{})

	requireAppStatus(t, err, http.StatusInternalServerError)
}
