package counter

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable marks any failure of the backing store (network error, timeout, server error).
var ErrUnavailable = errors.New("counter store unavailable")

// Store is the minimal atomic counter contract the limiters depend on.
// Implementations must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	SetIfAbsentWithTTL(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Increment(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	TTL(ctx context.Context, key string) (time.Duration, error)
}
