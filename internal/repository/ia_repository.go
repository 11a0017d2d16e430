package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/nexalink-api/internal/models"
)

// IARepository persists internal assessment components and marks.
type IARepository struct {
	db *sqlx.DB
}

// NewIARepository constructs the repository.
func NewIARepository(db *sqlx.DB) *IARepository {
	return &IARepository{db: db}
}

// GetComponent returns a component by id.
func (r *IARepository) GetComponent(ctx context.Context, id string) (*models.IAComponent, error) {
	const query = `SELECT id, course_id, name, max_marks, weightage, "order" FROM ia_components WHERE id = $1`
	var component models.IAComponent
	if err := r.db.GetContext(ctx, &component, query, id); err != nil {
		return nil, fmt.Errorf("get ia component: %w", err)
	}
	return &component, nil
}

// ListComponents returns the components of a course ordered by position.
func (r *IARepository) ListComponents(ctx context.Context, courseID string) ([]models.IAComponent, error) {
	const query = `SELECT id, course_id, name, max_marks, weightage, "order" FROM ia_components WHERE course_id = $1 ORDER BY "order"`
	components := make([]models.IAComponent, 0)
	if err := r.db.SelectContext(ctx, &components, query, courseID); err != nil {
		return nil, fmt.Errorf("list ia components: %w", err)
	}
	return components, nil
}

// UpsertMark writes the mark keyed by (student, component).
func (r *IARepository) UpsertMark(ctx context.Context, mark *models.IAMark) error {
	if mark.ID == "" {
		mark.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	const query = `INSERT INTO ia_marks (id, student_id, component_id, marks, marked_by, remarks, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
ON CONFLICT (student_id, component_id)
DO UPDATE SET marks = EXCLUDED.marks, marked_by = EXCLUDED.marked_by, remarks = EXCLUDED.remarks, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.ExecContext(ctx, query, mark.ID, mark.StudentID, mark.ComponentID, mark.Marks, mark.MarkedBy, mark.Remarks, now); err != nil {
		return fmt.Errorf("upsert ia mark: %w", err)
	}
	return nil
}

// ListMarksByCourse returns every mark recorded against components of the course.
func (r *IARepository) ListMarksByCourse(ctx context.Context, courseID string) ([]models.IAMark, error) {
	const query = `SELECT m.id, m.student_id, m.component_id, m.marks, m.marked_by, m.remarks
FROM ia_marks m
JOIN ia_components c ON c.id = m.component_id
WHERE c.course_id = $1
ORDER BY m.student_id, c."order"`
	marks := make([]models.IAMark, 0)
	if err := r.db.SelectContext(ctx, &marks, query, courseID); err != nil {
		return nil, fmt.Errorf("list ia marks: %w", err)
	}
	return marks, nil
}
