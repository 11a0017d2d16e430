package handler

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/nexalink-api/internal/access"
	"github.com/noah-isme/nexalink-api/internal/dto"
	appErrors "github.com/noah-isme/nexalink-api/pkg/errors"
	"github.com/noah-isme/nexalink-api/pkg/response"
)

type dashboardService interface {
	Compose(ctx context.Context, scope access.Scope, refresh bool) (dto.Dashboard, bool, error)
}

// DashboardHandler wires dashboard service to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Get godoc
// @Summary Role-specific dashboard
// @Tags Dashboard
// @Produce json
// @Param refresh query bool false "Bypass the cached dashboard"
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Get(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	scope := scopeFromContext(c)
	if scope == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	refresh := false
	if raw := strings.TrimSpace(c.Query("refresh")); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, appErrors.Invalid("refresh", "refresh must be a boolean"))
			return
		}
		refresh = parsed
	}
	start := time.Now()
	dashboard, cacheHit, err := h.service.Compose(c.Request.Context(), scope, refresh)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondTimed(c, start, dashboard, cacheHit)
}
