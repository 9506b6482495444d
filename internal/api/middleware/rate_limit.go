// SPDX-License-Identifier: LicenseRef-Regrada-Proprietary

package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Counter is the subset of redis.Cmdable the limiter needs.
type Counter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// RateLimitMiddleware caps requests per client IP in fixed one-minute windows.
type RateLimitMiddleware struct {
	counter Counter
	limit   int
	logger  zerolog.Logger
	now     func() time.Time
}

func NewRateLimitMiddleware(counter Counter, requestsPerMinute int, logger zerolog.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		counter: counter,
		limit:   requestsPerMinute,
		logger:  logger,
		now:     time.Now,
	}
}

func (m *RateLimitMiddleware) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.counter == nil || m.limit <= 0 {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		window := m.now().Unix() / 60 // 1-minute window

		rateLimitKey := fmt.Sprintf("ratelimit:ip:%s:%d", c.ClientIP(), window)

		count, err := m.counter.Incr(ctx, rateLimitKey).Result()
		if err != nil {
			// On Redis error, allow the request (fail open)
			m.logger.Warn().Err(err).Msg("rate limiter unavailable")
			c.Next()
			return
		}

		// Set expiry on first increment
		if count == 1 {
			m.counter.Expire(ctx, rateLimitKey, 2*time.Minute)
		}

		reset := (window + 1) * 60
		c.Header("X-RateLimit-Limit", strconv.Itoa(m.limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(max(0, m.limit-int(count))))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(reset, 10))

		if count > int64(m.limit) {
			c.Header("Retry-After", strconv.FormatInt(reset-m.now().Unix(), 10))
			abortWithError(c, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "Rate limit exceeded")
			return
		}

		c.Next()
	}
}
