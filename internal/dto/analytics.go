package dto

import "github.com/noah-isme/nexalink-api/internal/models"

// AnalyticsQuery carries the optional filters accepted by analytics endpoints.
type AnalyticsQuery struct {
	CourseID  string `form:"course_id" validate:"omitempty,uuid"`
	StudentID string `form:"student_id" validate:"omitempty,uuid"`
	FacultyID string `form:"faculty_id" validate:"omitempty,uuid"`
	UserID    string `form:"user_id" validate:"omitempty,uuid"`
	UserType  string `form:"user_type" validate:"omitempty,oneof=student faculty admin"`
	Action    string `form:"action" validate:"omitempty,max=120"`
	ScoreType string `form:"score_type" validate:"omitempty,oneof=quiz assignment exam project"`
	StartDate string `form:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `form:"end_date" validate:"omitempty,datetime=2006-01-02"`
}

// AttendanceAnalytics groups attendance events across dimensions.
type AttendanceAnalytics struct {
	Overall   AttendanceStatistics    `json:"overall"`
	ByDate    []AttendanceDateRow     `json:"by_date"`
	ByCourse  *[]AttendanceCourseRow  `json:"by_course,omitempty"`
	ByStudent *[]AttendanceStudentRow `json:"by_student,omitempty"`
}

// AttendanceDateRow is the status breakdown for one day.
type AttendanceDateRow struct {
	Date string `json:"date"`
	AttendanceStatistics
}

// AttendanceCourseRow is the status breakdown for one course.
type AttendanceCourseRow struct {
	CourseID   string `json:"course_id"`
	CourseCode string `json:"course_code"`
	CourseName string `json:"course_name"`
	AttendanceStatistics
}

// AttendanceStudentRow is the status breakdown for one student.
type AttendanceStudentRow struct {
	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name"`
	AttendanceStatistics
}

// PerformanceAnalytics summarises scored assessments.
type PerformanceAnalytics struct {
	Overall   PerformanceOverall       `json:"overall"`
	ByType    []PerformanceTypeRow     `json:"by_type"`
	ByDate    []PerformanceDateRow     `json:"by_date"`
	ByCourse  *[]PerformanceCourseRow  `json:"by_course,omitempty"`
	ByStudent *[]PerformanceStudentRow `json:"by_student,omitempty"`
}

// PerformanceOverall holds ratio statistics over every record. Excluded counts records with a zero max score.
type PerformanceOverall struct {
	Total    int     `json:"total"`
	AvgScore float64 `json:"avg_score"`
	MinScore float64 `json:"min_score"`
	MaxScore float64 `json:"max_score"`
	Excluded int     `json:"excluded"`
}

// PerformanceTypeRow aggregates one score type.
type PerformanceTypeRow struct {
	ScoreType models.ScoreType `json:"score_type"`
	Count     int              `json:"count"`
	AvgScore  float64          `json:"avg_score"`
	MinScore  float64          `json:"min_score"`
	MaxScore  float64          `json:"max_score"`
}

// PerformanceDateRow aggregates one day.
type PerformanceDateRow struct {
	Date     string  `json:"date"`
	Count    int     `json:"count"`
	AvgScore float64 `json:"avg_score"`
}

// PerformanceCourseRow aggregates one course.
type PerformanceCourseRow struct {
	CourseID   string  `json:"course_id"`
	CourseCode string  `json:"course_code"`
	CourseName string  `json:"course_name"`
	Count      int     `json:"count"`
	AvgScore   float64 `json:"avg_score"`
}

// PerformanceStudentRow aggregates one student.
type PerformanceStudentRow struct {
	StudentID   string  `json:"student_id"`
	StudentName string  `json:"student_name"`
	Count       int     `json:"count"`
	AvgScore    float64 `json:"avg_score"`
}

// EngagementAnalytics summarises user activity.
type EngagementAnalytics struct {
	Overall    EngagementOverall `json:"overall"`
	ByAction   []ActionCount     `json:"by_action"`
	ByUserType []UserTypeCount   `json:"by_user_type"`
	ByHour     []HourCount       `json:"by_hour"`
	ByDay      []DayCount        `json:"by_day"`
	TopUsers   *[]TopUser        `json:"top_users,omitempty"`
}

// EngagementOverall counts records and distinct users and actions.
type EngagementOverall struct {
	TotalRecords  int `json:"total_records"`
	UniqueUsers   int `json:"unique_users"`
	UniqueActions int `json:"unique_actions"`
}

// ActionCount is the number of events for one action.
type ActionCount struct {
	Action string `json:"action"`
	Count  int    `json:"count"`
}

// UserTypeCount is the number of events for one role.
type UserTypeCount struct {
	UserType string `json:"user_type"`
	Count    int    `json:"count"`
}

// HourCount is the number of events in one UTC hour of day.
type HourCount struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

// DayCount is the number of events on one weekday, 0 = Sunday.
type DayCount struct {
	Day   int `json:"day"`
	Count int `json:"count"`
}

// TopUser ranks the most active users.
type TopUser struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	UserType string `json:"user_type"`
	Count    int    `json:"count"`
}

// FeedbackAnalytics summarises course feedback.
type FeedbackAnalytics struct {
	Overall     FeedbackOverall      `json:"overall"`
	BySentiment []SentimentRow       `json:"by_sentiment"`
	ByCourse    *[]FeedbackCourseRow `json:"by_course,omitempty"`
	ByFaculty   *[]FacultyRatingRow  `json:"by_faculty,omitempty"`
	ByStatus    []StatusShare        `json:"by_status"`
	ByRating    []RatingShare        `json:"by_rating"`
}

// FeedbackOverall counts feedback per status with the mean rating.
type FeedbackOverall struct {
	TotalFeedback  int     `json:"total_feedback"`
	AvgRating      float64 `json:"avg_rating"`
	PendingCount   int     `json:"pending_count"`
	RespondedCount int     `json:"responded_count"`
	ResolvedCount  int     `json:"resolved_count"`
}

// SentimentRow aggregates one sentiment class.
type SentimentRow struct {
	Sentiment string  `json:"sentiment"`
	Count     int     `json:"count"`
	AvgRating float64 `json:"avg_rating"`
}

// FeedbackCourseRow aggregates one course.
type FeedbackCourseRow struct {
	CourseID   string  `json:"course_id"`
	CourseCode string  `json:"course_code"`
	CourseName string  `json:"course_name"`
	Count      int     `json:"count"`
	AvgRating  float64 `json:"avg_rating"`
}

// FacultyRatingRow aggregates one instructor.
type FacultyRatingRow struct {
	FacultyID   string  `json:"faculty_id"`
	FacultyName string  `json:"faculty_name"`
	Count       int     `json:"count"`
	AvgRating   float64 `json:"avg_rating"`
}

// StatusShare is the count and share of one feedback status.
type StatusShare struct {
	Status     string  `json:"status"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// RatingShare is the count and share of one star rating.
type RatingShare struct {
	Rating     int     `json:"rating"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}
