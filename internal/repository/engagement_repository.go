package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/nexalink-api/internal/models"
)

// EngagementRepository appends and reads engagement events.
type EngagementRepository struct {
	db *sqlx.DB
}

// NewEngagementRepository constructs the repository.
func NewEngagementRepository(db *sqlx.DB) *EngagementRepository {
	return &EngagementRepository{db: db}
}

var engagementFilterColumns = filterColumns{
	user:      "e.user_id",
	userType:  "e.user_type",
	action:    "e.action",
	date:      "e.timestamp",
	timestamp: true,
}

const engagementSelect = `SELECT e.id, e.user_id, COALESCE(u.email, '') AS user_email, e.user_type, e.action, e.resource, e.timestamp, e.metadata
FROM engagement_records e
LEFT JOIN users u ON u.id = e.user_id`

// Create appends an event.
func (r *EngagementRepository) Create(ctx context.Context, event *models.EngagementEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	const query = `INSERT INTO engagement_records (id, user_id, user_type, action, resource, timestamp, metadata)
VALUES (:id, :user_id, :user_type, :action, :resource, :timestamp, :metadata)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("create engagement record: %w", err)
	}
	return nil
}

// List returns events matching the filter ordered by time.
func (r *EngagementRepository) List(ctx context.Context, filter models.RecordFilter) ([]models.EngagementEvent, error) {
	b := &whereBuilder{}
	applyRecordFilter(b, filter, engagementFilterColumns)
	query := engagementSelect + b.clause() + ` ORDER BY e.timestamp, e.id`
	events := make([]models.EngagementEvent, 0)
	if err := r.db.SelectContext(ctx, &events, query, b.args...); err != nil {
		return nil, fmt.Errorf("list engagement records: %w", err)
	}
	return events, nil
}

// Recent returns the newest events, optionally for a single user.
func (r *EngagementRepository) Recent(ctx context.Context, userID string, limit int) ([]models.EngagementEvent, error) {
	if limit <= 0 {
		limit = 5
	}
	b := &whereBuilder{}
	if userID != "" {
		b.add("e.user_id = $%d", userID)
	}
	query := engagementSelect + b.clause() + fmt.Sprintf(" ORDER BY e.timestamp DESC, e.id LIMIT $%d", len(b.args)+1)
	args := append(b.args, limit)
	events := make([]models.EngagementEvent, 0)
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, fmt.Errorf("recent engagement records: %w", err)
	}
	return events, nil
}

// Count returns the number of events.
func (r *EngagementRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM engagement_records`); err != nil {
		return 0, fmt.Errorf("count engagement records: %w", err)
	}
	return total, nil
}
