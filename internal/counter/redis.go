package counter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a [Store] backed by a go-redis client. Atomicity is delegated to
// SET NX and INCR; no command here is emulated as read-then-write.
type Redis struct {
	client redis.UniversalClient
}

var _ Store = (*Redis)(nil)

// NewRedis returns a Redis-backed store. A nil client yields a store whose every call
// reports ErrUnavailable.
func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client}
}

func (s *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	if s == nil || s.client == nil {
		return "", false, ErrUnavailable
	}
	value, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return value, true, nil
}

func (s *Redis) SetIfAbsentWithTTL(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	if s == nil || s.client == nil {
		return false, ErrUnavailable
	}
	created, err := s.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return created, nil
}

func (s *Redis) Increment(ctx context.Context, key string) (int64, error) {
	if s == nil || s.client == nil {
		return 0, ErrUnavailable
	}
	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return count, nil
}

func (s *Redis) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if s == nil || s.client == nil {
		return ErrUnavailable
	}
	if err := s.client.Expire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// TTL returns the remaining lifetime of key. Redis reports -2 for a missing key and -1
// for a key without expiry; both surface as -1.
func (s *Redis) TTL(ctx context.Context, key string) (time.Duration, error) {
	if s == nil || s.client == nil {
		return -1, ErrUnavailable
	}
	ttl, err := s.client.TTL(ctx, key).Result()
	if err != nil {
		return -1, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if ttl < 0 {
		return -1, nil
	}
	return ttl, nil
}
