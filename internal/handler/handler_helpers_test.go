package handler

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/nexalink-api/internal/access"
	"github.com/noah-isme/nexalink-api/internal/middleware"
	appErrors "github.com/noah-isme/nexalink-api/pkg/errors"
)

const (
	testCourseID  = "0b7c2f4e-8a51-4d0a-9a4e-0d3b0c1f6a01"
	testStudentID = "5d2c9a10-1f0e-4b8e-8f6a-3f1d2e4c5b01"
)

type testEnvelope struct {
	Data  json.RawMessage        `json:"data"`
	Error *appErrors.Error       `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

func newGinContext(method, target string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func withScope(c *gin.Context, scope access.Scope) {
	c.Set(middleware.ContextScopeKey, scope)
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder, data interface{}) testEnvelope {
	t.Helper()
	var env testEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	if data != nil {
		require.NotEmpty(t, env.Data, w.Body.String())
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}
