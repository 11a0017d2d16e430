package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ProfileRepository reads student and faculty profiles.
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository constructs the repository.
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// StudentExists reports whether a student profile exists.
func (r *ProfileRepository) StudentExists(ctx context.Context, studentID string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM students WHERE id = $1)`, studentID); err != nil {
		return false, fmt.Errorf("check student: %w", err)
	}
	return exists, nil
}

// CountStudents returns the number of student profiles.
func (r *ProfileRepository) CountStudents(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM students`); err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return total, nil
}

// CountFaculty returns the number of faculty profiles.
func (r *ProfileRepository) CountFaculty(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM faculty`); err != nil {
		return 0, fmt.Errorf("count faculty: %w", err)
	}
	return total, nil
}
