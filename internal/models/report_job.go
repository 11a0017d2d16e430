package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ReportType enumerates supported analytics report categories.
type ReportType string

const (
	ReportTypeAttendance  ReportType = "attendance"
	ReportTypePerformance ReportType = "performance"
	ReportTypeEngagement  ReportType = "engagement"
	ReportTypeFeedback    ReportType = "feedback"
)

// ReportFormat enumerates supported export formats.
type ReportFormat string

const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

// ReportStatus captures background job lifecycle states.
type ReportStatus string

const (
	ReportStatusQueued     ReportStatus = "QUEUED"
	ReportStatusProcessing ReportStatus = "PROCESSING"
	ReportStatusFinished   ReportStatus = "FINISHED"
	ReportStatusFailed     ReportStatus = "FAILED"
)

// ReportJob persisted background job metadata.
type ReportJob struct {
	ID           string          `db:"id" json:"id"`
	Type         ReportType      `db:"type" json:"type"`
	Params       ReportJobParams `db:"params" json:"params"`
	Status       ReportStatus    `db:"status" json:"status"`
	Progress     int             `db:"progress" json:"progress"`
	ResultURL    *string         `db:"result_url" json:"result_url,omitempty"`
	CreatedBy    string          `db:"created_by" json:"created_by"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	FinishedAt   *time.Time      `db:"finished_at" json:"finished_at,omitempty"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
}

// ReportJobParams stores the scoped filter captured at submission time, persisted as JSONB.
type ReportJobParams struct {
	Format          ReportFormat `json:"format"`
	Role            UserRole     `json:"role"`
	CourseID        string       `json:"course_id,omitempty"`
	StudentID       string       `json:"student_id,omitempty"`
	FacultyID       string       `json:"faculty_id,omitempty"`
	UserID          string       `json:"user_id,omitempty"`
	DateFrom        string       `json:"date_from,omitempty"`
	DateTo          string       `json:"date_to,omitempty"`
	RestrictCourses bool         `json:"restrict_courses,omitempty"`
	CourseIDs       []string     `json:"course_ids,omitempty"`
}

// Filter rebuilds the record filter captured in the params.
func (p ReportJobParams) Filter() (RecordFilter, error) {
	filter := RecordFilter{
		CourseID:        p.CourseID,
		StudentID:       p.StudentID,
		FacultyID:       p.FacultyID,
		UserID:          p.UserID,
		RestrictCourses: p.RestrictCourses,
		CourseIDs:       p.CourseIDs,
	}
	if p.DateFrom != "" {
		parsed, err := time.Parse("2006-01-02", p.DateFrom)
		if err != nil {
			return filter, fmt.Errorf("parse date_from: %w", err)
		}
		filter.DateFrom = &parsed
	}
	if p.DateTo != "" {
		parsed, err := time.Parse("2006-01-02", p.DateTo)
		if err != nil {
			return filter, fmt.Errorf("parse date_to: %w", err)
		}
		filter.DateTo = &parsed
	}
	return filter, nil
}

// Value marshals params to JSON for persistence.
func (p ReportJobParams) Value() (driver.Value, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal report job params: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the params struct.
func (p *ReportJobParams) Scan(value interface{}) error {
	if value == nil {
		*p = ReportJobParams{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for ReportJobParams", value)
	}
	if len(data) == 0 {
		*p = ReportJobParams{}
		return nil
	}
	if err := json.Unmarshal(data, p); err != nil {
		return fmt.Errorf("unmarshal report job params: %w", err)
	}
	return nil
}
