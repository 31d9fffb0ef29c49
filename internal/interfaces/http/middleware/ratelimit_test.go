package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubLimiter 可编程的限流器桩
type stubLimiter struct {
	allowed    bool
	remaining  int
	err        error
	allowCalls int
	lastKey    string
}

func (s *stubLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, error) {
	s.allowCalls++
	s.lastKey = key
	return s.allowed, s.err
}

func (s *stubLimiter) Remaining(_ context.Context, _ string, _ int, _ time.Duration) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.remaining, nil
}

func rateLimitedRequest(cfg RateLimitConfig, limiter RateLimiter, clientID string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if clientID != "" {
			c.Set("client_id", clientID)
		}
	})
	r.Use(RateLimit(cfg, limiter))
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimitAllowedSetsHeaders(t *testing.T) {
	limiter := &stubLimiter{allowed: true, remaining: 7}
	cfg := RateLimitConfig{Enabled: true, MaxCalls: 10, Window: time.Minute}

	w := rateLimitedRequest(cfg, limiter, "client-1")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "10", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "7", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "ratelimit:client:client-1", limiter.lastKey)
}

func TestRateLimitExceeded(t *testing.T) {
	limiter := &stubLimiter{allowed: false}
	cfg := RateLimitConfig{Enabled: true, MaxCalls: 10, Window: time.Minute}

	w := rateLimitedRequest(cfg, limiter, "client-1")

	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "10", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.Contains(t, w.Body.String(), "rate limit exceeded")
}

func TestRateLimitFailsOpenOnLimiterError(t *testing.T) {
	limiter := &stubLimiter{err: errors.New("redis down")}
	cfg := RateLimitConfig{Enabled: true, MaxCalls: 10, Window: time.Minute}

	w := rateLimitedRequest(cfg, limiter, "client-1")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("X-RateLimit-Remaining"))
}

func TestRateLimitDisabledSkipsLimiter(t *testing.T) {
	limiter := &stubLimiter{allowed: false}
	cfg := RateLimitConfig{Enabled: false, MaxCalls: 10, Window: time.Minute}

	w := rateLimitedRequest(cfg, limiter, "client-1")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, limiter.allowCalls)
}
