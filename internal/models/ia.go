package models

import "time"

// IAComponent is a graded internal assessment component of a course.
type IAComponent struct {
	ID        string  `db:"id" json:"id"`
	CourseID  string  `db:"course_id" json:"course_id"`
	Name      string  `db:"name" json:"name"`
	MaxMarks  float64 `db:"max_marks" json:"max_marks"`
	Weightage float64 `db:"weightage" json:"weightage"`
	Order     int     `db:"order" json:"order"`
}

// IAMark is a student's score on one component.
type IAMark struct {
	ID          string  `db:"id" json:"id"`
	StudentID   string  `db:"student_id" json:"student_id"`
	ComponentID string  `db:"component_id" json:"component_id"`
	Marks       float64 `db:"marks" json:"marks"`
	MarkedBy    *string `db:"marked_by" json:"marked_by,omitempty"`
	Remarks     *string `db:"remarks" json:"remarks,omitempty"`
}

// IATotal is the cached weighted IA total per student and course.
type IATotal struct {
	StudentID  string    `db:"student_id" json:"student_id"`
	CourseID   string    `db:"course_id" json:"course_id"`
	TotalMarks float64   `db:"total_marks" json:"total_marks"`
	OutOf      float64   `db:"out_of" json:"out_of"`
	Percentage float64   `db:"percentage" json:"percentage"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}
