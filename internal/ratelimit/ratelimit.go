// Package ratelimit provides the per-identity request budget for
// mutating operations, backed by Redis.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ratelimit:"

// Limiter counts requests per identity in fixed windows. A nil Limiter
// or a Limiter without a Redis client allows everything, so deployments
// without Redis keep working.
type Limiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// New creates a limiter allowing limit requests per window.
func New(client *redis.Client, limit int, window time.Duration) *Limiter {
	return &Limiter{client: client, limit: limit, window: window}
}

// Allow consumes one token from the identity's budget and reports
// whether the request may proceed.
func (l *Limiter) Allow(ctx context.Context, identityID string) (bool, error) {
	if l == nil || l.client == nil {
		return true, nil
	}

	key := keyPrefix + identityID

	n, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("ratelimit incr: %w", err)
	}
	if n == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return false, fmt.Errorf("ratelimit expire: %w", err)
		}
	}

	return n <= int64(l.limit), nil
}
