package waitgate

import (
	"context"
	"fmt"
	"time"

	"github.com/MrEthical07/waitgate/internal/audit"
	"github.com/MrEthical07/waitgate/internal/counter"
	"github.com/MrEthical07/waitgate/internal/limiters"
	"github.com/MrEthical07/waitgate/internal/rate"
	"github.com/MrEthical07/waitgate/internal/spam"
	"github.com/MrEthical07/waitgate/internal/validate"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// HumanVerifier confirms a signup came from a person. Verify returns nil on success.
type HumanVerifier interface {
	Verify(ctx context.Context, token, ip string) error
}

// Builder assembles a Gate. A Builder is single-use.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	logger    *zap.Logger
	auditSink AuditSink
	verifier  HumanVerifier
	now       func() time.Time

	built bool
}

func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the counter store client. A single node, cluster or ring client works.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithHumanVerifier enables bot verification on signups. It runs after the limiter checks
// and before any quota is consumed.
func (b *Builder) WithHumanVerifier(v HumanVerifier) *Builder {
	b.verifier = v
	return b
}

// WithClock overrides the wall clock used for ResetAt and RetryAfter. It never affects
// counter expiry, which Redis owns.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the limiter table, spam filter and audit
// dispatcher. Build performs no Redis round trips.
func (b *Builder) Build() (*Gate, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}
	if b.redis == nil {
		return nil, ErrRedisRequired
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := b.now
	if now == nil {
		now = time.Now
	}

	store := counter.NewRedis(b.redis)
	opts := []rate.Option{rate.WithClock(now)}

	table, err := limiters.New(store, cfg.limiterPolicies(), cfg.KeyPrefix, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	filter, err := spam.New(store, cfg.spamConfig(), logger.Named("spam"), opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := limiters.CheckNamespaces(append(table.Prefixes(), filter.Prefixes()...)...); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	rules, err := validate.Compile(cfg.validationOptions())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	gate := &Gate{
		config:   cfg,
		table:    table,
		spam:     filter,
		rules:    rules,
		verifier: b.verifier,
		metrics:  NewMetrics(cfg.Metrics),
		logger:   logger,
		now:      now,
	}
	gate.audit = audit.NewDispatcher(audit.Config{
		Enabled:     cfg.Audit.Enabled,
		BufferSize:  cfg.Audit.BufferSize,
		DropIfFull:  cfg.Audit.DropIfFull,
		SinkTimeout: cfg.Audit.SinkTimeout,
		MaxBatch:    cfg.Audit.MaxBatch,
	}, b.auditSink)

	b.built = true

	return gate, nil
}
