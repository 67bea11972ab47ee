package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/git-forum/backend/internal/auth"
)

const (
	UserIDKey   = "user_id"
	UsernameKey = "username"
)

// AuthMiddleware requires a valid bearer token and stores the caller's id
// under "user_id".
func AuthMiddleware(tokens *auth.Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		claims, err := tokens.Parse(strings.TrimSpace(raw))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(UsernameKey, claims.Username)
		c.Next()
	}
}

// OptionalAuth stores the caller's id when a valid token is present and lets
// anonymous requests through.
func OptionalAuth(tokens *auth.Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer "); ok {
			if claims, err := tokens.Parse(strings.TrimSpace(raw)); err == nil {
				c.Set(UserIDKey, claims.UserID)
				c.Set(UsernameKey, claims.Username)
			}
		}
		c.Next()
	}
}
