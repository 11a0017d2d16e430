package dto

import "github.com/noah-isme/nexalink-api/internal/models"

// MetricVerification compares cached attendance percentages with a fresh computation.
type MetricVerification struct {
	CourseID string               `json:"course_id"`
	Checked  int                  `json:"checked"`
	Drift    []models.MetricDrift `json:"drift"`
}

// RecomputeResult reports a forced recomputation of a course's derived metrics.
type RecomputeResult struct {
	CourseID        string                 `json:"course_id"`
	RecomputeErrors []models.BulkItemError `json:"recompute_errors"`
}
