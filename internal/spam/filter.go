package spam

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/waitgate/internal/counter"
	"github.com/MrEthical07/waitgate/internal/rate"
	"go.uber.org/zap"
)

// ErrUnavailable is returned when the counter store cannot answer a check.
var ErrUnavailable = errors.New("spam filter store unavailable")

// Reason explains a rejection.
type Reason string

const (
	ReasonNone   Reason = ""
	ReasonGlobal Reason = "global_reuse"
	ReasonActor  Reason = "actor_reuse"
)

// Verdict is the outcome of [Filter.Evaluate].
type Verdict struct {
	Allowed     bool
	Reason      Reason
	Fingerprint string
	ResetAt     time.Time
}

// Config tunes the two reuse counters.
type Config struct {
	Window      time.Duration
	GlobalLimit int
	ActorLimit  int
	KeyPrefix   string
}

// DefaultConfig returns a one-hour window with 5 global and 2 per-actor reuses.
func DefaultConfig() Config {
	return Config{
		Window:      time.Hour,
		GlobalLimit: 5,
		ActorLimit:  2,
	}
}

const (
	globalNamespace = "webhook:content:"
	actorNamespace  = "webhook:ip-content:"
)

// Filter enforces the global and per-actor reuse caps.
type Filter struct {
	global       *rate.Limiter
	actor        *rate.Limiter
	globalPrefix string
	actorPrefix  string
	logger       *zap.Logger
}

// New creates a Filter over store.
func New(store counter.Store, cfg Config, logger *zap.Logger, opts ...rate.Option) (*Filter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	global, err := rate.New(store, rate.Config{Window: cfg.Window, Limit: cfg.GlobalLimit}, opts...)
	if err != nil {
		return nil, fmt.Errorf("spam global counter: %w", err)
	}
	actor, err := rate.New(store, rate.Config{Window: cfg.Window, Limit: cfg.ActorLimit}, opts...)
	if err != nil {
		return nil, fmt.Errorf("spam actor counter: %w", err)
	}
	return &Filter{
		global:       global,
		actor:        actor,
		globalPrefix: cfg.KeyPrefix + globalNamespace,
		actorPrefix:  cfg.KeyPrefix + actorNamespace,
		logger:       logger,
	}, nil
}

// Prefixes returns the key namespaces owned by the filter.
func (f *Filter) Prefixes() []string {
	return []string{f.globalPrefix, f.actorPrefix}
}

// Evaluate checks the global counter, then the actor counter, and consumes both when neither
// is exhausted.
func (f *Filter) Evaluate(ctx context.Context, text, actor string) (Verdict, error) {
	digest := Fingerprint(text)
	globalKey := f.globalPrefix + digest
	actorKey := f.actorPrefix + strings.TrimSpace(actor) + ":" + digest

	st, err := f.global.Check(ctx, globalKey)
	if err != nil {
		return Verdict{Fingerprint: digest}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !st.Allowed {
		return Verdict{Reason: ReasonGlobal, Fingerprint: digest, ResetAt: st.ResetAt}, nil
	}

	st, err = f.actor.Check(ctx, actorKey)
	if err != nil {
		return Verdict{Fingerprint: digest}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !st.Allowed {
		return Verdict{Reason: ReasonActor, Fingerprint: digest, ResetAt: st.ResetAt}, nil
	}

	if err := f.global.Consume(ctx, globalKey); err != nil {
		f.logger.Warn("spam counter consume failed", zap.String("counter", "global"), zap.String("fingerprint", digest), zap.Error(err))
	}
	if err := f.actor.Consume(ctx, actorKey); err != nil {
		f.logger.Warn("spam counter consume failed", zap.String("counter", "actor"), zap.String("fingerprint", digest), zap.Error(err))
	}

	return Verdict{Allowed: true, Fingerprint: digest}, nil
}
