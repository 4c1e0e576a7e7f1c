package rate

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/MrEthical07/waitgate/internal/counter"
)

// Config holds the static (window, limit) pair of one policy.
type Config struct {
	Window time.Duration
	Limit  int
}

// Status is the read-only answer of [Limiter.Check].
type Status struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Limiter is a fixed-window counter over a [counter.Store].
type Limiter struct {
	store  counter.Store
	window time.Duration
	limit  int
	now    func() time.Time
}

// Option customizes a Limiter.
type Option func(*Limiter)

// WithClock overrides the clock used for ResetAt values. It never affects admission.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// New creates a Limiter. Window must be at least one second since Redis expiry has
// second granularity for SET EX.
func New(store counter.Store, cfg Config, opts ...Option) (*Limiter, error) {
	if cfg.Window < time.Second || cfg.Limit <= 0 {
		return nil, fmt.Errorf("%w: window=%s limit=%d", ErrInvalidConfig, cfg.Window, cfg.Limit)
	}
	l := &Limiter{
		store:  store,
		window: cfg.Window,
		limit:  cfg.Limit,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Window returns the configured window length.
func (l *Limiter) Window() time.Duration { return l.window }

// Limit returns the configured maximum count per window.
func (l *Limiter) Limit() int { return l.limit }

// Check reports whether one more use of key would be admitted. It does not mutate the counter.
// On store failure it returns a denied Status together with an ErrUnavailable-wrapped error.
func (l *Limiter) Check(ctx context.Context, key string) (Status, error) {
	now := l.now()

	raw, ok, err := l.store.Get(ctx, key)
	if err != nil {
		return Status{ResetAt: now.Add(l.window)}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !ok {
		return Status{Allowed: true, Remaining: l.limit - 1, ResetAt: now.Add(l.window)}, nil
	}

	count, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return Status{ResetAt: now.Add(l.window)}, fmt.Errorf("%w: corrupt counter %q", ErrUnavailable, raw)
	}

	if count < int64(l.limit) {
		return Status{
			Allowed:   true,
			Remaining: l.limit - int(count) - 1,
			ResetAt:   now.Add(l.window),
		}, nil
	}

	return Status{Allowed: false, Remaining: 0, ResetAt: l.resetAt(ctx, key, now)}, nil
}

// Consume records one use of key, starting the window when the counter is absent.
// Call it exactly once per admitted request, after every gating check has passed.
func (l *Limiter) Consume(ctx context.Context, key string) error {
	created, err := l.store.SetIfAbsentWithTTL(ctx, key, "1", l.window)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if created {
		return nil
	}

	count, err := l.store.Increment(ctx, key)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	// The key expired between SET NX and INCR; INCR recreated it without a TTL.
	if count == 1 {
		if err := l.store.Expire(ctx, key, l.window); err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	return nil
}

// resetAt reads the remaining window of a full counter. A counter without expiry (an INCR
// that recreated the key and whose follow-up EXPIRE was lost) gets a fresh window here, so it
// cannot stay at the limit forever.
func (l *Limiter) resetAt(ctx context.Context, key string, now time.Time) time.Time {
	ttl, err := l.store.TTL(ctx, key)
	if err != nil {
		return now.Add(l.window)
	}
	if ttl < 0 {
		_ = l.store.Expire(ctx, key, l.window)
		return now.Add(l.window)
	}
	if ttl == 0 {
		return now.Add(l.window)
	}
	return now.Add(ttl)
}
