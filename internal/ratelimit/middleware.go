package ratelimit

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ZanzyTHEbar/creative-scorer/internal/errors"
)

// Middleware limits requests per client IP under the given scope
func (l *Limiter) Middleware(scope string, r Rate) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		key := fmt.Sprintf("ratelimit:%s:%s", scope, ip)

		result, err := l.Allow(c.Request.Context(), key, r)
		if err != nil {
			slog.Error("Rate limit check failed", "scope", scope, "ip", ip, "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			if l.metrics != nil {
				l.metrics.IncrementRateLimitBlock()
			}
			retryAfter := int(result.RetryAfter.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))

			appErr := errors.NewRateLimitError(strconv.Itoa(retryAfter) + "s")
			c.AbortWithStatusJSON(appErr.HTTPStatus, appErr)
			return
		}

		c.Next()
	}
}
