package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const identityKey = "identity"

// Validator resolves a bearer token to a username.
type Validator interface {
	ValidateToken(token string) (string, error)
}

// TokenFromRequest extracts the bearer token from the Authorization header,
// falling back to the "token" query parameter that browsers use for
// WebSocket upgrades.
func TokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		const prefix = "Bearer "
		if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
			return strings.TrimSpace(header[len(prefix):])
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

// Middleware attaches the identity of a valid token to the request context.
// Requests without a valid token pass through anonymous.
func Middleware(v Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := TokenFromRequest(c.Request); token != "" {
			if username, err := v.ValidateToken(token); err == nil {
				c.Set(identityKey, username)
			}
		}
		c.Next()
	}
}

// RequireIdentity aborts anonymous requests with 401.
func RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if Identity(c) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"code": "UNAUTHORIZED", "message": "Authentication required"},
			})
			return
		}
		c.Next()
	}
}

// Identity returns the authenticated username, or "" for anonymous requests.
func Identity(c *gin.Context) string {
	return c.GetString(identityKey)
}
