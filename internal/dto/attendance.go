package dto

import "github.com/noah-isme/nexalink-api/internal/models"

// BulkAttendanceRequest marks attendance for many students of one course on one date.
type BulkAttendanceRequest struct {
	CourseID string                 `json:"course_id" validate:"required,uuid"`
	Date     string                 `json:"date" validate:"required,datetime=2006-01-02"`
	Records  []BulkAttendanceRecord `json:"records" validate:"required,min=1,dive"`
}

// BulkAttendanceRecord is one student's status within a bulk request.
type BulkAttendanceRecord struct {
	StudentID string  `json:"student_id" validate:"required,uuid"`
	Status    string  `json:"status" validate:"required,oneof=present absent late"`
	Remarks   *string `json:"remarks,omitempty" validate:"omitempty,max=500"`
}

// BulkIAMarksRequest records marks for many students on one IA component.
type BulkIAMarksRequest struct {
	ComponentID string             `json:"component_id" validate:"required,uuid"`
	Records     []BulkIAMarkRecord `json:"records" validate:"required,min=1,dive"`
}

// BulkIAMarkRecord is one student's mark within a bulk request. Range is checked per item.
type BulkIAMarkRecord struct {
	StudentID string   `json:"student_id" validate:"required,uuid"`
	Marks     *float64 `json:"marks" validate:"required"`
	Remarks   *string  `json:"remarks,omitempty" validate:"omitempty,max=500"`
}

// BulkWriteResponse reports the committed subset of a bulk write.
type BulkWriteResponse struct {
	CreatedCount    int                    `json:"created_count"`
	Errors          []models.BulkItemError `json:"errors"`
	RecomputeErrors []models.BulkItemError `json:"recompute_errors"`
}

// AttendanceStatistics is the status breakdown of a set of attendance events.
type AttendanceStatistics struct {
	Total             int     `json:"total"`
	Present           int     `json:"present"`
	Absent            int     `json:"absent"`
	Late              int     `json:"late"`
	PresentPercentage float64 `json:"present_percentage"`
	AbsentPercentage  float64 `json:"absent_percentage"`
	LatePercentage    float64 `json:"late_percentage"`
}
