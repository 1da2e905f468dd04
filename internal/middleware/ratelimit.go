package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RateLimiter counts hits per key. *redisstate.RedisStateRepository implements it.
type RateLimiter interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RateLimit returns a gin middleware limiting each client IP to maxRequests
// per window. The counters live in Redis so every instance shares them.
//   - limiter: counts hits per key, required.
//   - maxRequests: requests allowed in one window.
//   - window: length of the fixed window.
func RateLimit(limiter RateLimiter, maxRequests int, window time.Duration) gin.HandlerFunc {
	// dependencies are checked once at startup
	if limiter == nil {
		panic("RateLimiter cannot be nil for RateLimit middleware")
	}
	if maxRequests <= 0 {
		panic("maxRequests must be positive for RateLimit middleware")
	}
	if window <= 0 {
		panic("window duration must be positive for RateLimit middleware")
	}

	return func(c *gin.Context) {
		// Keyed by client IP. Behind a reverse proxy, gin's trusted proxies
		// must be configured or every request shares the proxy's address.
		key := "ratelimit:" + c.ClientIP()

		// INCR and EXPIRE run in one pipeline inside CheckRateLimit. The
		// window restarts on every hit, so a client that keeps hammering
		// stays blocked until it pauses for a full window.
		exceeded, err := limiter.CheckRateLimit(c.Request.Context(), key, maxRequests, window)
		if err != nil {
			// fail closed: without a counter we cannot tell abuse from traffic
			logrus.WithError(err).Error("RateLimit: check failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Rate limiting error"})
			c.Abort()
			return
		}
		if exceeded {
			// X-RateLimit-* headers could be added here if clients need them
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			c.Abort()
			return
		}
		c.Next() // within the limit
	}
}
