// internal/pkg/ratelimit/ratelimit.go
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter counts requests per key in fixed Redis windows.
type RateLimiter struct {
	client redis.Cmdable
}

func NewRateLimiter(client redis.Cmdable) *RateLimiter {
	return &RateLimiter{client: client}
}

// Allow records one request by userID against endpoint and reports whether
// it is within maxRequests for the current window, and how many remain.
func (r *RateLimiter) Allow(ctx context.Context, userID int64, endpoint string, maxRequests int64, window time.Duration) (bool, int64, error) {
	key := fmt.Sprintf("ratelimit:api:%d:%s", userID, endpoint)

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("failed to increment API rate limit: %w", err)
	}

	// Set expiration on first hit.
	if count == 1 {
		if err := r.client.Expire(ctx, key, window).Err(); err != nil {
			r.client.Del(ctx, key)
			return false, 0, fmt.Errorf("failed to set API rate limit window: %w", err)
		}
	}

	remaining := max(maxRequests-count, 0)
	return count <= maxRequests, remaining, nil
}
