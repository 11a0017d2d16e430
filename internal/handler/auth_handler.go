package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/nexalink-api/internal/access"
	"github.com/noah-isme/nexalink-api/internal/dto"
	"github.com/noah-isme/nexalink-api/internal/middleware"
	appErrors "github.com/noah-isme/nexalink-api/pkg/errors"
	"github.com/noah-isme/nexalink-api/pkg/response"
)

// AuthHandler reports who the caller is. Tokens are issued elsewhere.
type AuthHandler struct{}

// NewAuthHandler creates a new handler.
func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

// Me godoc
// @Summary Current session
// @Description Principal from the bearer token and the access scope resolved for it
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	principal, ok := middleware.PrincipalFromContext(c)
	scope := scopeFromContext(c)
	if !ok || scope == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	session := dto.SessionResponse{
		UserID:    principal.UserID,
		Role:      scope.Role(),
		ProfileID: principal.ProfileID,
		SeesPeers: scope.SeesPeers(),
		SeesAll:   scope.SeesAllUsers(),
	}
	if faculty, isFaculty := scope.(*access.FacultyScope); isFaculty {
		session.CourseIDs = faculty.CourseIDs
	}
	response.JSON(c, http.StatusOK, session, nil)
}
