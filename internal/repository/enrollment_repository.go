package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// EnrollmentRepository reads active student enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// ListActiveStudentIDs returns students actively enrolled in the course.
func (r *EnrollmentRepository) ListActiveStudentIDs(ctx context.Context, courseID string) ([]string, error) {
	const query = `SELECT student_id FROM enrollments WHERE course_id = $1 AND is_active = TRUE ORDER BY student_id`
	ids := make([]string, 0)
	if err := r.db.SelectContext(ctx, &ids, query, courseID); err != nil {
		return nil, fmt.Errorf("list enrolled students: %w", err)
	}
	return ids, nil
}

// IsEnrolled reports whether the student has an active enrollment in the course.
func (r *EnrollmentRepository) IsEnrolled(ctx context.Context, studentID, courseID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2 AND is_active = TRUE)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, studentID, courseID); err != nil {
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return exists, nil
}

type courseCount struct {
	CourseID string `db:"course_id"`
	Total    int    `db:"total"`
}

// CountActiveByCourse returns active enrollment counts keyed by course id.
func (r *EnrollmentRepository) CountActiveByCourse(ctx context.Context, courseIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(courseIDs))
	if len(courseIDs) == 0 {
		return counts, nil
	}
	const query = `SELECT course_id, COUNT(*) AS total FROM enrollments
WHERE course_id = ANY($1) AND is_active = TRUE
GROUP BY course_id`
	rows := make([]courseCount, 0)
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(courseIDs)); err != nil {
		return nil, fmt.Errorf("count enrollments: %w", err)
	}
	for _, row := range rows {
		counts[row.CourseID] = row.Total
	}
	return counts, nil
}
