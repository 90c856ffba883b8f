package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestRateLimiterPerIP(t *testing.T) {
	rl := NewRateLimiter(5, 3)

	for i := 0; i < 3; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Fatalf("request %d within burst was rejected", i+1)
		}
	}
	if rl.Allow("10.0.0.1") {
		t.Fatal("request over burst was allowed")
	}
	if !rl.Allow("10.0.0.2") {
		t.Fatal("other IP shares the bucket")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/otp", RateLimit(NewRateLimiter(60, 1)), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/otp", nil)
		req.Header.Set("X-Real-IP", "203.0.113.7")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	if code := send(); code != http.StatusOK {
		t.Fatalf("first request: status %d", code)
	}
	if code := send(); code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", code)
	}
}
