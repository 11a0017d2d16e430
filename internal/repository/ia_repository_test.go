package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/nexalink-api/internal/models"
)

func TestIARepositoryGetComponentNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewIARepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM ia_components WHERE id = $1")).
		WithArgs("comp-x").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetComponent(context.Background(), "comp-x")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIARepositoryUpsertMark(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewIARepository(db)

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (student_id, component_id)")).
		WithArgs(sqlmock.AnyArg(), "stu-1", "comp-1", 17.5, sqlmock.AnyArg(), nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	actor := "fac-user"
	require.NoError(t, repo.UpsertMark(context.Background(), &models.IAMark{StudentID: "stu-1", ComponentID: "comp-1", Marks: 17.5, MarkedBy: &actor}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIARepositoryListComponentsOrdered(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewIARepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE course_id = $1 ORDER BY "order"`)).
		WithArgs("course-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "course_id", "name", "max_marks", "weightage", "order"}).
			AddRow("comp-1", "course-1", "Quiz 1", 10.0, 10.0, 1).
			AddRow("comp-2", "course-1", "Midterm", 50.0, 30.0, 2))

	components, err := repo.ListComponents(context.Background(), "course-1")
	require.NoError(t, err)
	require.Len(t, components, 2)
	assert.Equal(t, 30.0, components[1].Weightage)
	require.NoError(t, mock.ExpectationsWereMet())
}
