package models

import "time"

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "present"
	AttendanceStatusAbsent  AttendanceStatus = "absent"
	AttendanceStatusLate    AttendanceStatus = "late"
)

// AttendanceStatuses lists statuses in lexical order.
var AttendanceStatuses = []string{
	string(AttendanceStatusAbsent),
	string(AttendanceStatusLate),
	string(AttendanceStatusPresent),
}

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent, AttendanceStatusLate:
		return true
	default:
		return false
	}
}

// Attended reports whether the status counts toward attendance percentage.
func (s AttendanceStatus) Attended() bool {
	return s == AttendanceStatusPresent || s == AttendanceStatusLate
}

// AttendanceEvent is one student's status for a course on a date.
type AttendanceEvent struct {
	ID         string           `db:"id" json:"id"`
	StudentID  string           `db:"student_id" json:"student_id"`
	CourseID   string           `db:"course_id" json:"course_id"`
	CourseCode string           `db:"course_code" json:"course_code,omitempty"`
	CourseName string           `db:"course_name" json:"course_name,omitempty"`
	Student    string           `db:"student_name" json:"student_name,omitempty"`
	Date       time.Time        `db:"date" json:"date"`
	Status     AttendanceStatus `db:"status" json:"status"`
	MarkedBy   *string          `db:"marked_by" json:"marked_by,omitempty"`
	Remarks    *string          `db:"remarks" json:"remarks,omitempty"`
}

// AttendanceTally holds status counts for one student in one course.
type AttendanceTally struct {
	StudentID string `db:"student_id"`
	Total     int    `db:"total"`
	Present   int    `db:"present"`
	Absent    int    `db:"absent"`
	Late      int    `db:"late"`
}

// AttendancePercentage is the cached attendance ratio per student and course.
type AttendancePercentage struct {
	StudentID  string    `db:"student_id" json:"student_id"`
	CourseID   string    `db:"course_id" json:"course_id"`
	Percentage float64   `db:"percentage" json:"percentage"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}
