package models

import "time"

// FeedbackStatus tracks how feedback has been handled.
type FeedbackStatus string

const (
	FeedbackStatusPending   FeedbackStatus = "pending"
	FeedbackStatusResponded FeedbackStatus = "responded"
	FeedbackStatusResolved  FeedbackStatus = "resolved"
)

// FeedbackStatuses lists statuses in lexical order.
var FeedbackStatuses = []string{
	string(FeedbackStatusPending),
	string(FeedbackStatusResolved),
	string(FeedbackStatusResponded),
}

// SentimentUnknown is used as the grouping key when sentiment has not been classified.
const SentimentUnknown = "unclassified"

// FeedbackRecord is a student's rating of a course and its instructor.
type FeedbackRecord struct {
	ID          string         `db:"id" json:"id"`
	StudentID   string         `db:"student_id" json:"student_id"`
	CourseID    string         `db:"course_id" json:"course_id"`
	CourseCode  string         `db:"course_code" json:"course_code,omitempty"`
	CourseName  string         `db:"course_name" json:"course_name,omitempty"`
	FacultyID   string         `db:"faculty_id" json:"faculty_id"`
	FacultyName string         `db:"faculty_name" json:"faculty_name,omitempty"`
	Rating      int            `db:"rating" json:"rating"`
	Status      FeedbackStatus `db:"status" json:"status"`
	Sentiment   *string        `db:"sentiment" json:"sentiment,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}
