package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/nexalink-api/internal/models"
)

// AttendanceRepository persists attendance events.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

var attendanceFilterColumns = filterColumns{
	course:  "a.course_id",
	student: "a.student_id",
	date:    "a.date",
}

// Upsert writes the event keyed by (student, course, date), overwriting status and remarks.
func (r *AttendanceRepository) Upsert(ctx context.Context, event *models.AttendanceEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	const query = `INSERT INTO attendance_records (id, student_id, course_id, date, status, marked_by, remarks, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
ON CONFLICT (student_id, course_id, date)
DO UPDATE SET status = EXCLUDED.status, marked_by = EXCLUDED.marked_by, remarks = EXCLUDED.remarks, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.ExecContext(ctx, query, event.ID, event.StudentID, event.CourseID, event.Date, event.Status, event.MarkedBy, event.Remarks, now); err != nil {
		return fmt.Errorf("upsert attendance: %w", err)
	}
	return nil
}

// List returns events matching the filter with course and student labels.
func (r *AttendanceRepository) List(ctx context.Context, filter models.RecordFilter) ([]models.AttendanceEvent, error) {
	b := &whereBuilder{}
	applyRecordFilter(b, filter, attendanceFilterColumns)
	query := `SELECT a.id, a.student_id, a.course_id, c.code AS course_code, c.name AS course_name,
COALESCE(TRIM(u.first_name || ' ' || u.last_name), '') AS student_name,
a.date, a.status, a.marked_by, a.remarks
FROM attendance_records a
JOIN courses c ON c.id = a.course_id
LEFT JOIN students s ON s.id = a.student_id
LEFT JOIN users u ON u.id = s.user_id` + b.clause() + " ORDER BY a.date, a.student_id"
	events := make([]models.AttendanceEvent, 0)
	if err := r.db.SelectContext(ctx, &events, query, b.args...); err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return events, nil
}

// TallyByStudent returns per-student status counts for a course.
func (r *AttendanceRepository) TallyByStudent(ctx context.Context, courseID string) ([]models.AttendanceTally, error) {
	const query = `SELECT student_id,
COUNT(*) AS total,
COUNT(*) FILTER (WHERE status = 'present') AS present,
COUNT(*) FILTER (WHERE status = 'absent') AS absent,
COUNT(*) FILTER (WHERE status = 'late') AS late
FROM attendance_records WHERE course_id = $1
GROUP BY student_id`
	rows := make([]models.AttendanceTally, 0)
	if err := r.db.SelectContext(ctx, &rows, query, courseID); err != nil {
		return nil, fmt.Errorf("tally attendance: %w", err)
	}
	return rows, nil
}

// CountByStatus returns event counts per status for the filter.
func (r *AttendanceRepository) CountByStatus(ctx context.Context, filter models.RecordFilter) (map[models.AttendanceStatus]int, error) {
	b := &whereBuilder{}
	applyRecordFilter(b, filter, attendanceFilterColumns)
	query := `SELECT a.status, COUNT(*) AS total FROM attendance_records a` + b.clause() + ` GROUP BY a.status`
	var rows []struct {
		Status models.AttendanceStatus `db:"status"`
		Total  int                     `db:"total"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, b.args...); err != nil {
		return nil, fmt.Errorf("count attendance by status: %w", err)
	}
	counts := make(map[models.AttendanceStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}
