package dto

import (
	"time"

	"github.com/noah-isme/nexalink-api/internal/models"
)

// Dashboard is implemented by the role-specific dashboard payloads.
type Dashboard interface {
	DashboardRole() models.UserRole
}

// ActivitySummary is one entry of the recent activity feed.
type ActivitySummary struct {
	Action    string    `json:"action"`
	Resource  string    `json:"resource"`
	UserType  string    `json:"user_type,omitempty"`
	UserEmail string    `json:"user_email,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// StudentDashboard is the composite shown to a student.
type StudentDashboard struct {
	Role             models.UserRole        `json:"role"`
	Attendance       StudentAttendance      `json:"attendance"`
	Performance      StudentPerformance     `json:"performance"`
	Courses          []StudentCourseSummary `json:"courses"`
	RecentActivities []ActivitySummary      `json:"recent_activities"`
	GeneratedAt      time.Time              `json:"generated_at"`
}

// StudentAttendance totals a student's attendance. Late counts as present.
type StudentAttendance struct {
	Percentage   float64 `json:"percentage"`
	TotalClasses int     `json:"total_classes"`
	Present      int     `json:"present"`
	Absent       int     `json:"absent"`
}

// StudentPerformance is the student's mean score percentage.
type StudentPerformance struct {
	Average float64 `json:"average"`
}

// StudentCourseSummary is one enrolled course.
type StudentCourseSummary struct {
	ID                    string  `json:"id"`
	Code                  string  `json:"code"`
	Name                  string  `json:"name"`
	AttendancePercentage  float64 `json:"attendance_percentage"`
	PerformancePercentage float64 `json:"performance_percentage"`
}

// DashboardRole implements Dashboard.
func (d *StudentDashboard) DashboardRole() models.UserRole { return models.RoleStudent }

// FacultyDashboard is the composite shown to an instructor.
type FacultyDashboard struct {
	Role             models.UserRole        `json:"role"`
	Courses          []FacultyCourseSummary `json:"courses"`
	PendingFeedback  int                    `json:"pending_feedback"`
	RecentActivities []ActivitySummary      `json:"recent_activities"`
	GeneratedAt      time.Time              `json:"generated_at"`
}

// FacultyCourseSummary is one taught course.
type FacultyCourseSummary struct {
	ID                   string  `json:"id"`
	Code                 string  `json:"code"`
	Name                 string  `json:"name"`
	Students             int     `json:"students"`
	AttendancePercentage float64 `json:"attendance_percentage"`
	FeedbackCount        int     `json:"feedback_count"`
	AvgRating            float64 `json:"avg_rating"`
}

// DashboardRole implements Dashboard.
func (d *FacultyDashboard) DashboardRole() models.UserRole { return models.RoleFaculty }

// AdminDashboard is the institution-wide composite.
type AdminDashboard struct {
	Role             models.UserRole   `json:"role"`
	Users            UserCounts        `json:"users"`
	Courses          int               `json:"courses"`
	Attendance       AdminAttendance   `json:"attendance"`
	Feedback         AdminFeedback     `json:"feedback"`
	Engagement       AdminEngagement   `json:"engagement"`
	RecentActivities []ActivitySummary `json:"recent_activities"`
	GeneratedAt      time.Time         `json:"generated_at"`
}

// UserCounts counts profiles per role.
type UserCounts struct {
	Students int `json:"students"`
	Faculty  int `json:"faculty"`
}

// AdminAttendance is the institution attendance rate.
type AdminAttendance struct {
	Percentage float64 `json:"percentage"`
	Total      int     `json:"total"`
}

// AdminFeedback totals all feedback.
type AdminFeedback struct {
	Total     int     `json:"total"`
	AvgRating float64 `json:"avg_rating"`
}

// AdminEngagement totals recorded activity.
type AdminEngagement struct {
	Total int `json:"total"`
}

// DashboardRole implements Dashboard.
func (d *AdminDashboard) DashboardRole() models.UserRole { return models.RoleAdmin }
