package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/quizzie/backend/internal/auth"
	"github.com/quizzie/backend/pkg/response"
)

const (
	// ContextUserID is the key for user ID in gin context.
	ContextUserID = auth.ContextUserID
	// ContextUserEmail is the key for user email in gin context.
	ContextUserEmail = "user_email"
)

// TokenValidator validates a bearer token. *auth.JWTService satisfies it.
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// JWT returns a middleware that validates the Authorization bearer token and sets user claims in context.
func JWT(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		authenticate(c, validator, strings.TrimSpace(parts[1]))
	}
}

// JWTFromQuery is like JWT but reads the token from the "token" query parameter.
// Browsers cannot set headers on WebSocket upgrades.
func JWTFromQuery(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			response.Unauthorized(c, "missing token")
			c.Abort()
			return
		}
		authenticate(c, validator, token)
	}
}

func authenticate(c *gin.Context, validator TokenValidator, token string) {
	claims, err := validator.Validate(token)
	if err != nil {
		response.Unauthorized(c, "invalid or expired token")
		c.Abort()
		return
	}
	c.Set(ContextUserID, claims.UserID)
	c.Set(ContextUserEmail, claims.Email)
	c.Next()
}

// UserID returns the authenticated user's id, or "" outside JWT-protected routes.
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}
