package errors

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorKeepsTypedErrorsThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("load course: %w", Clone(ErrNotFound, "course not found"))

	got := FromError(wrapped)

	assert.Equal(t, http.StatusNotFound, got.Status)
	assert.Equal(t, "course not found", got.Message)
	assert.True(t, IsCode(wrapped, ErrNotFound.Code))
}

func TestFromErrorMasksUnknownErrors(t *testing.T) {
	got := FromError(sql.ErrConnDone)

	assert.Equal(t, ErrInternal.Code, got.Code)
	assert.Equal(t, ErrInternal.Message, got.Message)
	assert.True(t, errors.Is(got, sql.ErrConnDone))
	assert.Nil(t, FromError(nil))
}

func TestCloneDoesNotMutateSentinel(t *testing.T) {
	clone := Clone(ErrForbidden, "course is outside your scope")

	assert.Equal(t, "forbidden", ErrForbidden.Message)
	assert.Equal(t, http.StatusForbidden, clone.Status)
}

func TestInvalidNamesField(t *testing.T) {
	err := Invalid("start_date", "start_date must be a date formatted YYYY-MM-DD")

	assert.Equal(t, ErrValidation.Code, err.Code)
	assert.Equal(t, "start_date", err.Field)
	assert.Equal(t, http.StatusBadRequest, err.Status)
}
