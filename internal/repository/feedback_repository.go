package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/nexalink-api/internal/models"
)

// FeedbackRepository reads course feedback.
type FeedbackRepository struct {
	db *sqlx.DB
}

// NewFeedbackRepository constructs the repository.
func NewFeedbackRepository(db *sqlx.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

var feedbackFilterColumns = filterColumns{
	course:    "f.course_id",
	student:   "f.student_id",
	faculty:   "f.faculty_id",
	date:      "f.created_at",
	timestamp: true,
}

// List returns feedback matching the filter.
func (r *FeedbackRepository) List(ctx context.Context, filter models.RecordFilter) ([]models.FeedbackRecord, error) {
	b := &whereBuilder{}
	applyRecordFilter(b, filter, feedbackFilterColumns)
	query := `SELECT f.id, f.student_id, f.course_id, c.code AS course_code, c.name AS course_name,
f.faculty_id, COALESCE(TRIM(u.first_name || ' ' || u.last_name), '') AS faculty_name,
f.rating, f.status, f.sentiment, f.created_at
FROM feedback f
JOIN courses c ON c.id = f.course_id
LEFT JOIN faculty fa ON fa.id = f.faculty_id
LEFT JOIN users u ON u.id = fa.user_id` + b.clause() + ` ORDER BY f.created_at, f.id`
	records := make([]models.FeedbackRecord, 0)
	if err := r.db.SelectContext(ctx, &records, query, b.args...); err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	return records, nil
}

// FeedbackTotals is the count and mean rating of a feedback population.
type FeedbackTotals struct {
	Total     int     `db:"total"`
	AvgRating float64 `db:"avg_rating"`
}

// Totals returns the count and average rating for the filter.
func (r *FeedbackRepository) Totals(ctx context.Context, filter models.RecordFilter) (FeedbackTotals, error) {
	b := &whereBuilder{}
	applyRecordFilter(b, filter, feedbackFilterColumns)
	query := `SELECT COUNT(*) AS total, COALESCE(AVG(f.rating), 0) AS avg_rating FROM feedback f` + b.clause()
	var totals FeedbackTotals
	if err := r.db.GetContext(ctx, &totals, query, b.args...); err != nil {
		return FeedbackTotals{}, fmt.Errorf("feedback totals: %w", err)
	}
	return totals, nil
}

// CountByStatus counts feedback with the given status matching the filter.
func (r *FeedbackRepository) CountByStatus(ctx context.Context, filter models.RecordFilter, status models.FeedbackStatus) (int, error) {
	b := &whereBuilder{}
	applyRecordFilter(b, filter, feedbackFilterColumns)
	b.add("f.status = $%d", string(status))
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM feedback f`+b.clause(), b.args...); err != nil {
		return 0, fmt.Errorf("count feedback by status: %w", err)
	}
	return count, nil
}
