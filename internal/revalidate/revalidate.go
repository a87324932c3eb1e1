// Package revalidate marks cached dashboard and account views stale
// after mutations, so subsequent reads reflect new balances.
package revalidate

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const keyPrefix = "view:"

// Signaler invalidates cached view keys in Redis. A nil Signaler or one
// without a client is a no-op; invalidation is best-effort and never
// fails the mutation that triggered it.
type Signaler struct {
	client *redis.Client
	log    zerolog.Logger
}

// New creates a revalidation signaler.
func New(client *redis.Client, log zerolog.Logger) *Signaler {
	return &Signaler{client: client, log: log}
}

// MarkStale drops the cached entries for the given view paths.
func (s *Signaler) MarkStale(ctx context.Context, paths ...string) {
	if s == nil || s.client == nil || len(paths) == 0 {
		return
	}

	keys := make([]string, len(paths))
	for i, p := range paths {
		keys[i] = keyPrefix + p
	}

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		s.log.Warn().Err(err).Strs("paths", paths).Msg("Failed to invalidate cached views")
	}
}
