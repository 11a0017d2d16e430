package dto

import (
	"time"

	"github.com/noah-isme/nexalink-api/internal/models"
)

// ReportRequest captures the POST /reports payload.
type ReportRequest struct {
	Type      models.ReportType   `json:"type" validate:"required,oneof=attendance performance engagement feedback"`
	Format    models.ReportFormat `json:"format" validate:"required,oneof=csv pdf"`
	CourseID  string              `json:"course_id,omitempty" validate:"omitempty,uuid"`
	StudentID string              `json:"student_id,omitempty" validate:"omitempty,uuid"`
	FacultyID string              `json:"faculty_id,omitempty" validate:"omitempty,uuid"`
	StartDate string              `json:"start_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string              `json:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// ReportJobResponse is returned after enqueueing a report.
type ReportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ReportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ReportStatusResponse exposes job progress metadata.
type ReportStatusResponse struct {
	ID         string              `json:"id"`
	Type       models.ReportType   `json:"type"`
	Status     models.ReportStatus `json:"status"`
	Progress   int                 `json:"progress"`
	ResultURL  *string             `json:"result_url,omitempty"`
	Error      *string             `json:"error,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
	FinishedAt *time.Time          `json:"finished_at,omitempty"`
}
