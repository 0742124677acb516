package middleware

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func idemEngine(opts IdempotencyOptions, probe func(c *gin.Context)) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(IdempotencyValidator(opts))
	r.POST("/sessions/:id/messages", func(c *gin.Context) {
		if probe != nil {
			probe(c)
		}
		c.Status(http.StatusOK)
	})
	return r
}

func TestIdempotencyValidator_NoHeaderPassesThrough(t *testing.T) {
	r := idemEngine(IdempotencyOptions{}, func(c *gin.Context) {
		if _, ok := GetIdempotencyKey(c); ok {
			t.Error("key should not be set without header")
		}
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sessions/s1/messages", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestIdempotencyValidator_MalformedKeyRejected(t *testing.T) {
	for _, key := range []string{
		"has spaces",
		"bad//slash",
		strings.Repeat("x", 201),
	} {
		r := idemEngine(IdempotencyOptions{}, nil)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/sessions/s1/messages", nil)
		req.Header.Set(HeaderIdempotencyKey, key)
		r.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("key %q: status = %d, want 400", key, w.Code)
		}
	}
}

func TestIdempotencyValidator_ValidKeyStashed(t *testing.T) {
	var got string
	r := idemEngine(IdempotencyOptions{}, func(c *gin.Context) {
		got, _ = GetIdempotencyKey(c)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sessions/s1/messages", nil)
	req.Header.Set(HeaderIdempotencyKey, "retry-42.a_b~c:d")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got != "retry-42.a_b~c:d" {
		t.Fatalf("stashed key = %q", got)
	}
}

func TestIdempotencyValidator_CustomLimits(t *testing.T) {
	opts := IdempotencyOptions{
		MaxLen:  8,
		Pattern: regexp.MustCompile(`^[0-9]+$`),
	}

	send := func(key string) int {
		r := idemEngine(opts, nil)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/sessions/s1/messages", nil)
		req.Header.Set(HeaderIdempotencyKey, key)
		r.ServeHTTP(w, req)
		return w.Code
	}

	if code := send("12345678"); code != http.StatusOK {
		t.Fatalf("digits within limit = %d", code)
	}
	if code := send("123456789"); code != http.StatusBadRequest {
		t.Fatalf("over limit = %d", code)
	}
	if code := send("abc"); code != http.StatusBadRequest {
		t.Fatalf("pattern mismatch = %d", code)
	}
}
