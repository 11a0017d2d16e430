package service

import (
	"context"
	"database/sql"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/nexalink-api/internal/access"
	"github.com/noah-isme/nexalink-api/internal/dto"
	"github.com/noah-isme/nexalink-api/internal/models"
	appErrors "github.com/noah-isme/nexalink-api/pkg/errors"
)

type iaRepoStub struct {
	components map[string]models.IAComponent
	marks      []models.IAMark
}

func (r *iaRepoStub) GetComponent(_ context.Context, id string) (*models.IAComponent, error) {
	c, ok := r.components[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &c, nil
}

func (r *iaRepoStub) UpsertMark(_ context.Context, mark *models.IAMark) error {
	r.marks = append(r.marks, *mark)
	return nil
}

func markValue(v float64) *float64 { return &v }

func newIAServiceForTest(repo *iaRepoStub, hook *hookRecorder) *IAService {
	return NewIAService(IAServiceParams{
		Repo:        repo,
		Enrollments: &enrollmentStub{enrolled: map[string]bool{studentA: true, studentB: true}},
		Students:    studentStub{studentA: true, studentB: true},
		Hooks:       NewRecordHooks(nil, hook),
	})
}

func iaRepoWithComponent() *iaRepoStub {
	return &iaRepoStub{components: map[string]models.IAComponent{
		iaComponentID: {ID: iaComponentID, CourseID: courseA, Name: "IA1", MaxMarks: 50, Weightage: 40},
	}}
}

func TestIABulkMarksOutOfRangeIsPerItem(t *testing.T) {
	repo := iaRepoWithComponent()
	hook := &hookRecorder{}
	svc := newIAServiceForTest(repo, hook)

	resp, err := svc.BulkMarks(context.Background(), access.NewFacultyScope("u", "fac-1", []string{courseA}), dto.BulkIAMarksRequest{
		ComponentID: iaComponentID,
		Records: []dto.BulkIAMarkRecord{
			{StudentID: studentA, Marks: markValue(51)},
			{StudentID: studentB, Marks: markValue(50)},
			{StudentID: ghost, Marks: markValue(-1)},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, resp.CreatedCount)
	require.Len(t, resp.Errors, 2)
	assert.Equal(t, "Marks must be between 0 and 50.", resp.Errors[0].Error)
	assert.Equal(t, ghost, resp.Errors[1].StudentID)
	require.Len(t, repo.marks, 1)
	assert.Equal(t, studentB, repo.marks[0].StudentID)
	require.Len(t, hook.changes, 1)
	assert.Equal(t, models.ChangeIAMarks, hook.changes[0].Kind)
	assert.Equal(t, courseA, hook.changes[0].CourseID)
}

func TestIABulkMarksLookupFailureStillRecomputes(t *testing.T) {
	repo := iaRepoWithComponent()
	hook := &hookRecorder{}
	svc := newIAServiceForTest(repo, hook)
	svc.students = flakyStudents{studentStub: studentStub{studentA: true, studentB: true}, failing: map[string]bool{studentB: true}}

	resp, err := svc.BulkMarks(context.Background(), &access.AdminScope{UserID: "admin"}, dto.BulkIAMarksRequest{
		ComponentID: iaComponentID,
		Records: []dto.BulkIAMarkRecord{
			{StudentID: studentA, Marks: markValue(40)},
			{StudentID: studentB, Marks: markValue(30)},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, resp.CreatedCount)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "Failed to verify student.", resp.Errors[0].Error)
	require.Len(t, repo.marks, 1)
	require.Len(t, hook.changes, 1)
	assert.Equal(t, []string{studentA}, hook.changes[0].StudentIDs)
}

func TestIABulkMarksErrors(t *testing.T) {
	svc := newIAServiceForTest(iaRepoWithComponent(), &hookRecorder{})
	ctx := context.Background()

	_, err := svc.BulkMarks(ctx, &access.AdminScope{UserID: "a"}, dto.BulkIAMarksRequest{ComponentID: courseB, Records: []dto.BulkIAMarkRecord{{StudentID: studentA, Marks: markValue(1)}}})
	assert.Equal(t, http.StatusNotFound, appErrors.FromError(err).Status)

	_, err = svc.BulkMarks(ctx, access.NewFacultyScope("u", "fac-2", []string{courseB}), dto.BulkIAMarksRequest{ComponentID: iaComponentID, Records: []dto.BulkIAMarkRecord{{StudentID: studentA, Marks: markValue(1)}}})
	assert.Equal(t, http.StatusForbidden, appErrors.FromError(err).Status)

	_, err = svc.BulkMarks(ctx, &access.AdminScope{UserID: "a"}, dto.BulkIAMarksRequest{ComponentID: iaComponentID, Records: []dto.BulkIAMarkRecord{{StudentID: studentA}}})
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
	assert.Contains(t, appErrors.FromError(err).Message, "marks")
}
