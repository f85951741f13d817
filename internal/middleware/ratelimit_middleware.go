// internal/middleware/ratelimit_middleware.go
package middleware

import (
	"context"
	"strconv"
	"time"

	xerrors "paywall-service/internal/pkg/errors"
	"paywall-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Limiter interface {
	Allow(ctx context.Context, userID int64, endpoint string, maxRequests int64, window time.Duration) (bool, int64, error)
}

// RateLimit caps authenticated calls to endpoint per user. It must run after
// Auth(). When Redis is unavailable requests are let through.
func RateLimit(limiter Limiter, endpoint string, maxRequests int64, window time.Duration, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := GetUserID(c)
		if !ok {
			response.Unauthorized(c, "authentication required")
			return
		}

		allowed, remaining, err := limiter.Allow(c.Request.Context(), userID, endpoint, maxRequests, window)
		if err != nil {
			logger.Warn("rate limiter unavailable",
				zap.Int64("user_id", userID),
				zap.String("endpoint", endpoint),
				zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(maxRequests, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			response.FromError(c, "too many requests", xerrors.ErrRateLimited)
			return
		}
		c.Next()
	}
}
