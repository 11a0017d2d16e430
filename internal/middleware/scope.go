package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/nexalink-api/internal/access"
	"github.com/noah-isme/nexalink-api/internal/models"
	appErrors "github.com/noah-isme/nexalink-api/pkg/errors"
	"github.com/noah-isme/nexalink-api/pkg/response"
)

// ContextScopeKey is the gin context key storing the resolved access scope.
const ContextScopeKey = "accessScope"

// ScopeResolver resolves a principal into an access scope.
type ScopeResolver interface {
	Resolve(ctx context.Context, principal models.Principal) (access.Scope, error)
}

// Scope resolves the caller's access scope once per request. It must run after JWT.
func Scope(resolver ScopeResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		scope, err := resolver.Resolve(c.Request.Context(), principal)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Set(ContextScopeKey, scope)
		c.Next()
	}
}

// ScopeFromContext returns the scope stored by Scope.
func ScopeFromContext(c *gin.Context) (access.Scope, bool) {
	value, ok := c.Get(ContextScopeKey)
	if !ok {
		return nil, false
	}
	scope, ok := value.(access.Scope)
	return scope, ok && scope != nil
}

// RequireAdmin blocks every scope except AdminScope.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		scope, ok := ScopeFromContext(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, admin := scope.(*access.AdminScope); !admin {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "admin access required"))
			c.Abort()
			return
		}
		c.Next()
	}
}
