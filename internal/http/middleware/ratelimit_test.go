package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func rateEngine(rl *RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(rl.Handler())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestRateLimiter_BurstThenReject(t *testing.T) {
	// No replenishment to speak of within the test window.
	rl := NewRateLimiter(0.001, 2, KeyByUserOrIP())
	r := rateEngine(rl)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Fatalf("burst requests rejected: %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Fatalf("third request = %d, want 429", codes[2])
	}
}

func TestRateLimiter_RetryAfterHeader(t *testing.T) {
	rl := NewRateLimiter(0.001, 1, KeyByUserOrIP())
	r := rateEngine(rl)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "10.0.0.2:1234"
		r.ServeHTTP(w, req)
		if i == 1 {
			if w.Code != http.StatusTooManyRequests {
				t.Fatalf("second request = %d", w.Code)
			}
			if w.Header().Get("Retry-After") == "" {
				t.Fatal("missing Retry-After on 429")
			}
		}
	}
}

func TestRateLimiter_KeysAreIndependent(t *testing.T) {
	rl := NewRateLimiter(0.001, 1, KeyByUserOrIP())
	r := rateEngine(rl)

	send := func(addr string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = addr
		r.ServeHTTP(w, req)
		return w.Code
	}

	if code := send("10.0.0.3:1"); code != http.StatusOK {
		t.Fatalf("first client first request = %d", code)
	}
	if code := send("10.0.0.3:1"); code != http.StatusTooManyRequests {
		t.Fatalf("first client second request = %d", code)
	}
	// A different client IP gets its own bucket.
	if code := send("10.0.0.4:1"); code != http.StatusOK {
		t.Fatalf("second client first request = %d", code)
	}
}

func TestKeyByUserOrIP(t *testing.T) {
	keyFn := KeyByUserOrIP()

	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.RemoteAddr = "192.0.2.7:9999"

	if got := keyFn(c); got != "ip:192.0.2.7" {
		t.Fatalf("anonymous key = %q", got)
	}

	c.Set("userID", "u-123")
	if got := keyFn(c); got != "user:u-123" {
		t.Fatalf("authenticated key = %q", got)
	}
}
