package middleware

import (
	"math"
	"net/http"
	"strconv"

	"timetable-lookup/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	headerRateLimit     = "X-RateLimit-Limit"
	headerRateRemaining = "X-RateLimit-Remaining"
	headerRateReset     = "X-RateLimit-Reset"

	rateLimitMessage = "Too many requests, please try again later."
)

// RateLimit ограничивает число запросов с одного IP.
// Если лимитер nil или вернул ошибку, запрос пропускается
func RateLimit(limiter services.Limiter, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		allowed, info, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			logger.Warn("rate limiter unavailable, allowing request",
				zap.String("ip", c.ClientIP()),
				zap.Error(err),
			)
			c.Next()
			return
		}

		c.Header(headerRateLimit, strconv.Itoa(info.Limit))
		c.Header(headerRateRemaining, strconv.Itoa(info.Remaining))
		c.Header(headerRateReset, strconv.FormatInt(info.ResetAt.Unix(), 10))

		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(info.RetryAfter.Seconds()))))
			c.String(http.StatusTooManyRequests, rateLimitMessage)
			c.Abort()
			return
		}

		c.Next()
	}
}
