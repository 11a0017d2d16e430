package models

import "time"

// ScoreType classifies a performance record.
type ScoreType string

const (
	ScoreTypeQuiz       ScoreType = "quiz"
	ScoreTypeAssignment ScoreType = "assignment"
	ScoreTypeExam       ScoreType = "exam"
	ScoreTypeProject    ScoreType = "project"
)

// PerformanceRecord is one scored assessment for a student in a course.
type PerformanceRecord struct {
	ID          string    `db:"id" json:"id"`
	StudentID   string    `db:"student_id" json:"student_id"`
	StudentName string    `db:"student_name" json:"student_name,omitempty"`
	CourseID    string    `db:"course_id" json:"course_id"`
	CourseCode  string    `db:"course_code" json:"course_code,omitempty"`
	CourseName  string    `db:"course_name" json:"course_name,omitempty"`
	ScoreType   ScoreType `db:"score_type" json:"score_type"`
	Score       float64   `db:"score" json:"score"`
	MaxScore    float64   `db:"max_score" json:"max_score"`
	Date        time.Time `db:"date" json:"date"`
}
