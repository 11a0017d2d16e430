package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/nexalink-api/internal/models"
)

// EngagementRecorder persists engagement events.
type EngagementRecorder interface {
	Record(ctx context.Context, event *models.EngagementEvent) error
}

// Engagement records an event after every successful authenticated write and
// after successful reads of routes under one of the view prefixes. Failed
// recordings are logged and never change the response.
func Engagement(recorder EngagementRecorder, logger *zap.Logger, viewPrefixes ...string) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		start := time.Now().UTC()
		c.Next()

		if recorder == nil || c.Writer.Status() >= 400 {
			return
		}
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		if c.Request.Method == http.MethodGet && !hasAnyPrefix(route, viewPrefixes) {
			return
		}

		principal, ok := PrincipalFromContext(c)
		if !ok {
			return
		}

		err := recorder.Record(c.Request.Context(), &models.EngagementEvent{
			UserID:    principal.UserID,
			UserType:  principal.Role,
			Action:    c.Request.Method + " " + route,
			Resource:  route,
			Timestamp: start,
			Metadata: models.EngagementMetadata{
				"status":     strconv.Itoa(c.Writer.Status()),
				"latency_ms": strconv.FormatInt(time.Since(start).Milliseconds(), 10),
			},
		})
		if err != nil {
			logger.Warn("engagement event not recorded",
				zap.String("user_id", principal.UserID),
				zap.String("route", route),
				zap.Error(err),
			)
		}
	}
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if prefix != "" && strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
