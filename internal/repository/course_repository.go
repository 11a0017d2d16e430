package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/nexalink-api/internal/models"
)

const courseColumns = "id, code, name, department, credits, faculty_id, semester, is_active"

// CourseRepository reads courses and instructor assignments.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// GetByID returns a course or sql.ErrNoRows wrapped.
func (r *CourseRepository) GetByID(ctx context.Context, id string) (*models.Course, error) {
	query := "SELECT " + courseColumns + " FROM courses WHERE id = $1"
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, fmt.Errorf("get course: %w", err)
	}
	return &course, nil
}

// ListTaughtCourseIDs returns ids of courses assigned to the faculty member.
func (r *CourseRepository) ListTaughtCourseIDs(ctx context.Context, facultyID string) ([]string, error) {
	const query = `SELECT id FROM courses WHERE faculty_id = $1 ORDER BY id`
	ids := make([]string, 0)
	if err := r.db.SelectContext(ctx, &ids, query, facultyID); err != nil {
		return nil, fmt.Errorf("list taught course ids: %w", err)
	}
	return ids, nil
}

// ListByFaculty returns the courses taught by a faculty member ordered by code.
func (r *CourseRepository) ListByFaculty(ctx context.Context, facultyID string) ([]models.Course, error) {
	query := "SELECT " + courseColumns + " FROM courses WHERE faculty_id = $1 ORDER BY code"
	courses := make([]models.Course, 0)
	if err := r.db.SelectContext(ctx, &courses, query, facultyID); err != nil {
		return nil, fmt.Errorf("list faculty courses: %w", err)
	}
	return courses, nil
}

// ListForStudent returns courses with an active enrollment for the student ordered by code.
func (r *CourseRepository) ListForStudent(ctx context.Context, studentID string) ([]models.Course, error) {
	const query = `SELECT c.id, c.code, c.name, c.department, c.credits, c.faculty_id, c.semester, c.is_active
FROM courses c
JOIN enrollments e ON e.course_id = c.id
WHERE e.student_id = $1 AND e.is_active = TRUE
ORDER BY c.code`
	courses := make([]models.Course, 0)
	if err := r.db.SelectContext(ctx, &courses, query, studentID); err != nil {
		return nil, fmt.Errorf("list student courses: %w", err)
	}
	return courses, nil
}

// ListIDs returns every course id, used by full metric rebuilds.
func (r *CourseRepository) ListIDs(ctx context.Context) ([]string, error) {
	ids := make([]string, 0)
	if err := r.db.SelectContext(ctx, &ids, `SELECT id FROM courses ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list course ids: %w", err)
	}
	return ids, nil
}

// Count returns the number of courses.
func (r *CourseRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM courses`); err != nil {
		return 0, fmt.Errorf("count courses: %w", err)
	}
	return total, nil
}
