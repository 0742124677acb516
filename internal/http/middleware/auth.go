package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/chatstack/go-chat-api/internal/auth"
)

// TokenVerifier validates a session token and returns the authenticated
// subject. The auth package's Issuer satisfies this.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// RequireAuth authenticates the request before any protected handler runs.
//
// The token is taken from the auth cookie first; browser clients never handle
// it directly. An Authorization: Bearer header is accepted as a fallback for
// non-browser clients. On success the Gin context carries "userID" and
// "email"; on failure the request is aborted with the standard 401 envelope.
func RequireAuth(verifier TokenVerifier, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ""
		if cookie, err := c.Request.Cookie(cookieName); err == nil {
			token = cookie.Value
		}
		if token == "" {
			if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
				token = strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
			}
		}
		if token == "" {
			abortUnauthorized(c, "authentication required")
			return
		}

		claims, err := verifier.Verify(token)
		if err != nil {
			abortUnauthorized(c, "invalid or expired token")
			return
		}

		c.Set("userID", claims.UserID)
		c.Set("email", claims.Email)
		c.Next()
	}
}

// abortUnauthorized writes the standard error envelope for a 401. The
// middleware cannot import the handlers package, so the envelope is built
// inline with the same shape.
func abortUnauthorized(c *gin.Context, message string) {
	rid, _ := c.Get(requestIDKey)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"request_id": asString(rid),
		"code":       "unauthorized",
		"message":    message,
	})
}
