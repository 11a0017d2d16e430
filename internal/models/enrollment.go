package models

// Enrollment links a student to a course.
type Enrollment struct {
	ID        string `db:"id" json:"id"`
	StudentID string `db:"student_id" json:"student_id"`
	CourseID  string `db:"course_id" json:"course_id"`
	IsActive  bool   `db:"is_active" json:"is_active"`
}
