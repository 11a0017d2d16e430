package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/nexalink-api/internal/models"
)

func TestAttendanceRepositoryUpsertOverwritesOnConflict(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (student_id, course_id, date)")).
		WithArgs(sqlmock.AnyArg(), "stu-1", "course-1", date, models.AttendanceStatusLate, nil, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	event := &models.AttendanceEvent{StudentID: "stu-1", CourseID: "course-1", Date: date, Status: models.AttendanceStatusLate}
	require.NoError(t, repo.Upsert(context.Background(), event))
	assert.NotEmpty(t, event.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryListAppliesFacultyRestriction(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "student_id", "course_id", "course_code", "course_name", "student_name", "date", "status", "marked_by", "remarks"}).
		AddRow("att-1", "stu-1", "course-1", "CS101", "Intro", "Ada L", from, "present", nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE a.course_id = ANY($1) AND a.date >= $2 ORDER BY a.date, a.student_id")).
		WithArgs(pq.Array([]string{"course-1", "course-2"}), from).
		WillReturnRows(rows)

	events, err := repo.List(context.Background(), models.RecordFilter{
		RestrictCourses: true,
		CourseIDs:       []string{"course-1", "course-2"},
		FacultyID:       "fac-1",
		DateFrom:        &from,
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "CS101", events[0].CourseCode)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryTallyByStudent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM attendance_records WHERE course_id = $1")).
		WithArgs("course-1").
		WillReturnRows(sqlmock.NewRows([]string{"student_id", "total", "present", "absent", "late"}).AddRow("stu-1", 4, 2, 1, 1))

	tallies, err := repo.TallyByStudent(context.Background(), "course-1")
	require.NoError(t, err)
	require.Len(t, tallies, 1)
	assert.Equal(t, 4, tallies[0].Total)
	assert.Equal(t, 1, tallies[0].Late)
	require.NoError(t, mock.ExpectationsWereMet())
}
