package middleware

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/presence-app/presence/internal/metrics"
	"github.com/presence-app/presence/pkg/models"
)

// RateLimiter manages in-process rate limiting for API requests
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	rate     rate.Limit
	burst    int
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(rps int, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(rps),
		burst:    burst,
	}
}

// getLimiter returns a rate limiter for a specific key
func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.RLock()
	limiter, exists := rl.limiters[key]
	rl.mu.RUnlock()

	if exists {
		return limiter
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Double-check after acquiring write lock
	limiter, exists = rl.limiters[key]
	if exists {
		return limiter
	}

	limiter = rate.NewLimiter(rl.rate, rl.burst)
	rl.limiters[key] = limiter

	return limiter
}

// RateLimit middleware limits requests per user or IP
func RateLimit(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get(AuthContextKey)
		var key string

		if exists {
			key = fmt.Sprintf("user:%s", userID)
		} else {
			// Fall back to IP address
			key = fmt.Sprintf("ip:%s", c.ClientIP())
		}

		limiter := rl.getLimiter(key)
		if !limiter.Allow() {
			metrics.RateLimitRejectionsTotal.WithLabelValues("global").Inc()
			c.JSON(http.StatusTooManyRequests, models.Fail("Trop de requêtes, réessayez plus tard"))
			c.Abort()
			return
		}

		c.Next()
	}
}

// WindowCounter is a shared fixed-window counter, backed by Redis in
// production so the window survives restarts and spans replicas.
type WindowCounter interface {
	CheckRateLimit(ctx context.Context, key string, limit int64, window time.Duration) (bool, error)
}

// FixedWindowLimit middleware enforces a fixed-window limit per client IP
// under the given key prefix. Used for the auth and creation endpoints.
func FixedWindowLimit(counter WindowCounter, prefix string, limit int64, window time.Duration, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var key string
		if userID, ok := GetUserID(c); ok {
			key = fmt.Sprintf("%s:user:%s", prefix, userID)
		} else {
			key = fmt.Sprintf("%s:ip:%s", prefix, c.ClientIP())
		}

		allowed, err := counter.CheckRateLimit(c.Request.Context(), key, limit, window)
		if err != nil {
			// A broken counter must not take the API down
			c.Next()
			return
		}

		if !allowed {
			metrics.RateLimitRejectionsTotal.WithLabelValues(prefix).Inc()
			c.JSON(http.StatusTooManyRequests, models.Fail(message))
			c.Abort()
			return
		}

		c.Next()
	}
}
