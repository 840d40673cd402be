package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestIPRateLimiterAllowsBurstThenBlocks(t *testing.T) {
	limiter := newIPRateLimiter(1, 2)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	assert.True(t, limiter.allow("10.0.0.1"))
	assert.True(t, limiter.allow("10.0.0.1"))
	assert.False(t, limiter.allow("10.0.0.1"))
	assert.True(t, limiter.allow("10.0.0.2"), "buckets are per client")

	now = now.Add(time.Second)
	assert.True(t, limiter.allow("10.0.0.1"))
}

func TestIPRateLimiterSweepsIdleClients(t *testing.T) {
	limiter := newIPRateLimiter(5, 5)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	limiter.allow("10.0.0.1")
	limiter.allow("10.0.0.2")
	assert.Equal(t, 2, limiter.size())

	now = now.Add(limiterIdleTTL + time.Minute)
	limiter.allow("10.0.0.3")
	assert.Equal(t, 1, limiter.size())
}

func TestIPRateLimiterDisabled(t *testing.T) {
	assert.Nil(t, newIPRateLimiter(0, 10))
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(newIPRateLimiter(1, 1).middleware())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)

	var disabled *ipRateLimiter
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/ping", nil)
	disabled.middleware()(c)
	assert.False(t, c.IsAborted())
}
