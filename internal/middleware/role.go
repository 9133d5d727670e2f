package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/estetica-academy/presenciales/pkg/response"
)

// RequireRole lets through only callers whose token carries one of roles.
// Back office routes use it with the storefront "admin" role.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	denied := "this action requires the " + strings.Join(roles, " or ") + " role"
	return func(c *gin.Context) {
		if _, ok := c.Get(ContextUserRole); !ok {
			response.Unauthorized(c, "missing user context")
			c.Abort()
			return
		}
		if _, ok := allowed[c.GetString(ContextUserRole)]; !ok {
			response.Forbidden(c, denied)
			c.Abort()
			return
		}
		c.Next()
	}
}
