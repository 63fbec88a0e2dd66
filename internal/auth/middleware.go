package auth

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"airpool/internal/api"
)

const principalKey = "principal"

// Middleware verifies the bearer token via the injected Authenticator
// and stores the resulting Principal in the gin context.
func Middleware(authn Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			api.Fail(c, 401, "Authorization header required")
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || strings.TrimSpace(parts[0]) != "Bearer" {
			api.Fail(c, 401, "invalid authorization header format")
			c.Abort()
			return
		}

		token := strings.TrimSpace(parts[1])
		if token == "" {
			api.Fail(c, 401, "token is empty")
			c.Abort()
			return
		}

		principal, err := authn.Verify(token)
		if err != nil {
			switch {
			case errors.Is(err, ErrTokenExpired):
				api.Fail(c, 401, "token expired")
			case errors.Is(err, ErrInvalidTokenType):
				api.Fail(c, 401, "invalid token type")
			default:
				api.Fail(c, 401, "invalid or malformed token")
			}
			c.Abort()
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// RequireRole rejects requests whose principal role isn't one of the
// allowed roles. "both" satisfies either a driver-only or
// passenger-only requirement.
func RequireRole(allowed ...Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := GetPrincipal(c)
		if !ok {
			api.Fail(c, 401, "authentication required")
			c.Abort()
			return
		}
		for _, r := range allowed {
			if p.Role == r || p.Role == RoleBoth {
				c.Next()
				return
			}
		}
		api.Fail(c, 403, "insufficient permissions")
		c.Abort()
	}
}

// GetPrincipal reads the verified Principal set by Middleware.
func GetPrincipal(c *gin.Context) (Principal, bool) {
	v, exists := c.Get(principalKey)
	if !exists {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok
}
