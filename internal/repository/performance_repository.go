package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/nexalink-api/internal/models"
)

// PerformanceRepository reads scored assessments.
type PerformanceRepository struct {
	db *sqlx.DB
}

// NewPerformanceRepository constructs the repository.
func NewPerformanceRepository(db *sqlx.DB) *PerformanceRepository {
	return &PerformanceRepository{db: db}
}

// List returns performance records matching the filter.
func (r *PerformanceRepository) List(ctx context.Context, filter models.RecordFilter) ([]models.PerformanceRecord, error) {
	b := &whereBuilder{}
	applyRecordFilter(b, filter, filterColumns{course: "p.course_id", student: "p.student_id", scoreType: "p.score_type", date: "p.date"})
	query := `SELECT p.id, p.student_id, COALESCE(TRIM(u.first_name || ' ' || u.last_name), '') AS student_name,
p.course_id, c.code AS course_code, c.name AS course_name,
p.score_type, p.score, p.max_score, p.date
FROM performance_records p
JOIN courses c ON c.id = p.course_id
LEFT JOIN students s ON s.id = p.student_id
LEFT JOIN users u ON u.id = s.user_id` + b.clause() + ` ORDER BY p.date, p.id`
	records := make([]models.PerformanceRecord, 0)
	if err := r.db.SelectContext(ctx, &records, query, b.args...); err != nil {
		return nil, fmt.Errorf("list performance records: %w", err)
	}
	return records, nil
}
