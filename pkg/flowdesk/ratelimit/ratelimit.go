package ratelimit

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/flowdesk/flowdesk/pkg/flowdesk/auth"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// keyedLimiter hands out one token bucket per caller key
type keyedLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func newKeyedLimiter(rps float64, burst int) *keyedLimiter {
	return &keyedLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(rps),
		burst:    burst,
	}
}

func (k *keyedLimiter) get(key string) *rate.Limiter {
	k.mu.Lock()
	defer k.mu.Unlock()
	l, ok := k.limiters[key]
	if !ok {
		l = rate.NewLimiter(k.limit, k.burst)
		k.limiters[key] = l
	}
	return l
}

// PerUser returns middleware limiting each authenticated user independently.
// Requests without an authenticated user fall back to the client IP, so the
// middleware also works ahead of authentication.
func PerUser(rps float64, burst int) gin.HandlerFunc {
	kl := newKeyedLimiter(rps, burst)
	return func(c *gin.Context) {
		key := c.ClientIP()
		if userID, ok := auth.GetUserID(c); ok {
			key = "user:" + strconv.FormatUint(uint64(userID), 10)
		}
		if !kl.get(key).Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// Global returns middleware applying one shared limit across all callers
func Global(rps float64, burst int) gin.HandlerFunc {
	l := rate.NewLimiter(rate.Limit(rps), burst)
	return func(c *gin.Context) {
		if !l.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			c.Abort()
			return
		}
		c.Next()
	}
}
