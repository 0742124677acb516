// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements idempotency support for message submission. A client
// that retries POST /sessions/:id/messages with the same Idempotency-Key must
// not produce a second user/assistant message pair. The middleware validates
// the header and stashes the normalized key; the replay decision itself is
// made by the handler, which looks the key up under the authenticated
// identity and answers recorded operations without repeating them.
package middleware

import (
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey is the request header clients use to deduplicate
// retries of unsafe operations. The value must be stable across retries of
// the same semantic operation.
const HeaderIdempotencyKey = "Idempotency-Key"

// ctxKeyIdemKey stashes the validated key; read via GetIdempotencyKey.
const ctxKeyIdemKey = "idem.key"

// GetIdempotencyKey returns the validated key stored by IdempotencyValidator.
// Handlers should use this instead of reading the header directly.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyIdemKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// IdempotencyOptions configures header validation. TTL windows belong in the
// storage layer, not here.
type IdempotencyOptions struct {
	// MaxLen caps the accepted key length. Values <= 0 default to 200.
	MaxLen int
	// Pattern restricts allowed characters. Nil selects a conservative
	// token pattern: ^[A-Za-z0-9._~\-:]+$
	Pattern *regexp.Regexp
}

// IdempotencyValidator validates the Idempotency-Key header when present and
// stashes it for the handler. Requests without the header pass through
// untouched; a malformed header is rejected with 400 before any work happens.
func IdempotencyValidator(opts IdempotencyOptions) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pat := opts.Pattern
	if pat == nil {
		pat = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": c.Writer.Header().Get("X-Request-ID"),
				"code":       "bad_idempotency_key",
				"message":    "invalid Idempotency-Key",
			})
			return
		}

		c.Set(ctxKeyIdemKey, key)
		c.Next()
	}
}
