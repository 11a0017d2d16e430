package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/nexalink-api/internal/access"
	"github.com/noah-isme/nexalink-api/internal/models"
	appErrors "github.com/noah-isme/nexalink-api/pkg/errors"
)

type staticValidator struct {
	claims *models.JWTClaims
}

func (v staticValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != "good" || v.claims == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return v.claims, nil
}

type taughtCourses []string

func (t taughtCourses) ListTaughtCourseIDs(context.Context, string) ([]string, error) {
	return t, nil
}

func newScopedRouter(claims *models.JWTClaims, handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(JWT(staticValidator{claims: claims}), Scope(access.NewResolver(taughtCourses{"course-1"})))
	router.GET("/", append(handlers, func(c *gin.Context) {
		scope, ok := ScopeFromContext(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, string(scope.Role()))
	})...)
	return router
}

func serve(router *gin.Engine, header string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestJWTRejectsMissingOrMalformedHeader(t *testing.T) {
	router := newScopedRouter(&models.JWTClaims{UserID: "u1", Role: models.RoleAdmin})

	assert.Equal(t, http.StatusUnauthorized, serve(router, "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, "Token good").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, "Bearer nope").Code)
}

func TestScopeResolvesFacultyScope(t *testing.T) {
	router := newScopedRouter(&models.JWTClaims{UserID: "u2", Role: models.RoleFaculty, ProfileID: "fac-1"})

	recorder := serve(router, "Bearer good")

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "faculty", recorder.Body.String())
}

func TestScopeRejectsUnknownRole(t *testing.T) {
	router := newScopedRouter(&models.JWTClaims{UserID: "u2", Role: "guest"})

	assert.Equal(t, http.StatusForbidden, serve(router, "Bearer good").Code)
}

func TestRequireAdmin(t *testing.T) {
	student := newScopedRouter(&models.JWTClaims{UserID: "u1", Role: models.RoleStudent, ProfileID: "stu-1"}, RequireAdmin())
	admin := newScopedRouter(&models.JWTClaims{UserID: "u3", Role: models.RoleAdmin}, RequireAdmin())

	assert.Equal(t, http.StatusForbidden, serve(student, "Bearer good").Code)
	assert.Equal(t, http.StatusOK, serve(admin, "Bearer good").Code)
}
