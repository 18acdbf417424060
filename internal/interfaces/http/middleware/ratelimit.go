package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/docspace/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// RateLimiter is an in-memory fixed-window limiter keyed per caller.
// Billing endpoints use it to keep a misbehaving client from hammering the
// upstream provider.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*windowState
	limit   int
	window  time.Duration
}

type windowState struct {
	tokens    int
	lastReset time.Time
}

// NewRateLimiter creates a limiter allowing limit requests per window
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*windowState),
		limit:   limit,
		window:  window,
	}
	go rl.cleanup()
	return rl
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window * 2)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		for key, s := range rl.clients {
			if now.Sub(s.lastReset) > rl.window*2 {
				delete(rl.clients, key)
			}
		}
		rl.mu.Unlock()
	}
}

// Allow reports whether a request under the given key may proceed
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	s, exists := rl.clients[key]
	if !exists || now.Sub(s.lastReset) >= rl.window {
		rl.clients[key] = &windowState{tokens: rl.limit - 1, lastReset: now}
		return true
	}
	if s.tokens > 0 {
		s.tokens--
		return true
	}
	return false
}

// Remaining returns the remaining requests in the current window
func (rl *RateLimiter) Remaining(key string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	s, exists := rl.clients[key]
	if !exists || time.Since(s.lastReset) >= rl.window {
		return rl.limit
	}
	return s.tokens
}

// RateLimit limits requests per authenticated user, falling back to the
// client IP before authentication.
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := GetUserID(c)
		if key == "" {
			key = c.ClientIP()
		}

		if !limiter.Allow(key) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeRateLimited,
					"Too many requests. Please try again later.", GetRequestID(c)))
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(limiter.Remaining(key)))
		c.Next()
	}
}
