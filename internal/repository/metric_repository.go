package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/nexalink-api/internal/models"
)

// MetricRepository persists cached attendance percentages and IA totals.
type MetricRepository struct {
	db *sqlx.DB
}

// NewMetricRepository constructs the repository.
func NewMetricRepository(db *sqlx.DB) *MetricRepository {
	return &MetricRepository{db: db}
}

var metricFilterColumns = filterColumns{
	course:  "m.course_id",
	student: "m.student_id",
}

// UpsertAttendancePercentage overwrites the cached row for (student, course).
func (r *MetricRepository) UpsertAttendancePercentage(ctx context.Context, row models.AttendancePercentage) error {
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO attendance_percentages (student_id, course_id, percentage, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (student_id, course_id)
DO UPDATE SET percentage = EXCLUDED.percentage, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.ExecContext(ctx, query, row.StudentID, row.CourseID, row.Percentage, row.UpdatedAt); err != nil {
		return fmt.Errorf("upsert attendance percentage: %w", err)
	}
	return nil
}

// UpsertIATotal overwrites the cached row for (student, course).
func (r *MetricRepository) UpsertIATotal(ctx context.Context, row models.IATotal) error {
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO ia_totals (student_id, course_id, total_marks, out_of, percentage, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (student_id, course_id)
DO UPDATE SET total_marks = EXCLUDED.total_marks, out_of = EXCLUDED.out_of, percentage = EXCLUDED.percentage, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.ExecContext(ctx, query, row.StudentID, row.CourseID, row.TotalMarks, row.OutOf, row.Percentage, row.UpdatedAt); err != nil {
		return fmt.Errorf("upsert ia total: %w", err)
	}
	return nil
}

// ListAttendancePercentages returns cached attendance rows for the filter.
func (r *MetricRepository) ListAttendancePercentages(ctx context.Context, filter models.RecordFilter) ([]models.AttendancePercentage, error) {
	b := &whereBuilder{}
	applyRecordFilter(b, filter, metricFilterColumns)
	query := `SELECT m.student_id, m.course_id, m.percentage, m.updated_at FROM attendance_percentages m` + b.clause() + ` ORDER BY m.course_id, m.student_id`
	rows := make([]models.AttendancePercentage, 0)
	if err := r.db.SelectContext(ctx, &rows, query, b.args...); err != nil {
		return nil, fmt.Errorf("list attendance percentages: %w", err)
	}
	return rows, nil
}

// ListIATotals returns cached IA totals for the filter.
func (r *MetricRepository) ListIATotals(ctx context.Context, filter models.RecordFilter) ([]models.IATotal, error) {
	b := &whereBuilder{}
	applyRecordFilter(b, filter, metricFilterColumns)
	query := `SELECT m.student_id, m.course_id, m.total_marks, m.out_of, m.percentage, m.updated_at FROM ia_totals m` + b.clause() + ` ORDER BY m.course_id, m.student_id`
	rows := make([]models.IATotal, 0)
	if err := r.db.SelectContext(ctx, &rows, query, b.args...); err != nil {
		return nil, fmt.Errorf("list ia totals: %w", err)
	}
	return rows, nil
}
