package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/estetica-academy/presenciales/internal/auth"
	"github.com/estetica-academy/presenciales/pkg/response"
)

const (
	// ContextUserID is the key for user ID in gin context.
	ContextUserID = "user_id"
	// ContextUserRole is the key for user role in gin context.
	ContextUserRole = "user_role"
	// ContextUserEmail is the key for user email in gin context.
	ContextUserEmail = "user_email"
	// ContextUserName is the key for the display name in gin context.
	ContextUserName = "user_name"
)

// TokenValidator turns a bearer token into claims.
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// JWT returns a middleware that validates the bearer token and sets user claims in context.
func JWT(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		claims, err := validator.Validate(strings.TrimSpace(parts[1]))
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserRole, claims.Role)
		c.Set(ContextUserEmail, claims.Email)
		c.Set(ContextUserName, claims.FullName)
		c.Next()
	}
}

// Identity is the authenticated user as handlers see it.
type Identity struct {
	UserID   uuid.UUID
	Email    string
	FullName string
	Role     string
}

// CurrentIdentity reads the values set by JWT. ok is false outside the middleware.
func CurrentIdentity(c *gin.Context) (Identity, bool) {
	v, exists := c.Get(ContextUserID)
	if !exists {
		return Identity{}, false
	}
	id, ok := v.(uuid.UUID)
	if !ok {
		return Identity{}, false
	}
	return Identity{
		UserID:   id,
		Email:    c.GetString(ContextUserEmail),
		FullName: c.GetString(ContextUserName),
		Role:     c.GetString(ContextUserRole),
	}, true
}
