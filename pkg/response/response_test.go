package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/nexalink-api/pkg/errors"
)

func newContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

func TestJSONMergesMeta(t *testing.T) {
	c, w := newContext()

	JSON(c, http.StatusOK, gin.H{"total": 3}, nil,
		map[string]interface{}{"cache_hit": false},
		nil,
		map[string]interface{}{"cache_hit": true, "processing_time_ms": 4},
	)

	var env map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, true, env["meta"]["cache_hit"])
	assert.EqualValues(t, 4, env["meta"]["processing_time_ms"])
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestErrorHidesCauseAndRecordsIt(t *testing.T) {
	c, w := newContext()

	Error(c, errors.New("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection refused")
	require.Len(t, c.Errors, 1)
}

func TestErrorKeepsTypedStatus(t *testing.T) {
	c, w := newContext()

	Error(c, appErrors.Clone(appErrors.ErrForbidden, "course is outside your scope"))

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "course is outside your scope")
	assert.Empty(t, c.Errors)
}
