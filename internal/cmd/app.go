package cmd

import (
	"context"
	"fmt"

	"github.com/MrEthical07/waitgate"
	"github.com/MrEthical07/waitgate/internal/config"
	"github.com/MrEthical07/waitgate/internal/turnstile"
	"github.com/MrEthical07/waitgate/jwt"
	"github.com/MrEthical07/waitgate/notify/discord"
	"github.com/MrEthical07/waitgate/waitlist"
	"github.com/MrEthical07/waitgate/waitlist/sqlstore"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// app holds every wired collaborator of the service.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	redis    redis.UniversalClient
	gate     *waitgate.Gate
	store    *sqlstore.Store
	discord  *discord.Client
	waitlist *waitlist.Service
	tokens   *jwt.Manager
}

func newRedisClient(url string) (redis.UniversalClient, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis.url: %w", err)
	}
	return redis.NewClient(opts), nil
}

func newGate(cfg *config.Config, client redis.UniversalClient, logger *zap.Logger) (*waitgate.Gate, error) {
	b := waitgate.New().
		WithConfig(cfg.GateConfig()).
		WithRedis(client).
		WithLogger(logger.Named("gate"))

	switch cfg.Audit.Sink {
	case config.AuditSinkLogger:
		b.WithAuditSink(waitgate.NewLoggerSink(logger.Named("audit")))
	case config.AuditSinkRedis:
		b.WithAuditSink(waitgate.NewRedisListSink(client, cfg.Redis.Key(cfg.Audit.ListKey), cfg.Audit.ListCap, logger.Named("audit")))
	}
	if cfg.Turnstile.Enabled() {
		b.WithHumanVerifier(turnstile.New(turnstile.Config{
			SecretKey: cfg.Turnstile.SecretKey,
			VerifyURL: cfg.Turnstile.VerifyURL,
			Timeout:   cfg.Turnstile.Timeout,
		}, logger.Named("turnstile")))
	}
	return b.Build()
}

func newTokenManager(cfg config.AdminConfig) (*jwt.Manager, error) {
	return jwt.NewManager(jwt.Config{
		TTL:           cfg.TokenTTL,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    []byte(cfg.SigningKey),
		Issuer:        cfg.Issuer,
		Audience:      cfg.Audience,
	})
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	client, err := newRedisClient(cfg.Redis.URL)
	if err != nil {
		return nil, err
	}
	a.redis = client
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not reachable at startup; gate decisions will fail closed", zap.Error(err))
	}

	if a.gate, err = newGate(cfg, client, logger); err != nil {
		a.Close()
		return nil, err
	}

	if a.store, err = sqlstore.Open(cfg.Database.Driver, cfg.Database.DSN); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.store.Migrate(ctx); err != nil {
		a.Close()
		return nil, err
	}

	a.discord = discord.New(discord.Config{
		WebhookURL: cfg.Discord.WebhookURL,
		Username:   cfg.Discord.Username,
		AvatarURL:  cfg.Discord.AvatarURL,
		Timeout:    cfg.Discord.Timeout,
	}, discord.WithLogger(logger.Named("discord")))
	if !a.discord.Configured() {
		logger.Info("discord webhook not configured, notifications disabled")
	}

	a.waitlist = waitlist.NewService(a.gate, a.store,
		waitlist.WithStatsCache(client, cfg.Redis.Key(waitlist.DefaultStatsKey), 0),
		waitlist.WithNotifier(a.discord),
		waitlist.WithAnalytics(waitlist.NewRedisAnalytics(client, cfg.Redis.Key(waitlist.DefaultAnalyticsKey), 0, logger.Named("analytics"))),
		waitlist.WithLogger(logger.Named("waitlist")),
	)

	if cfg.Admin.Enabled() {
		if a.tokens, err = newTokenManager(cfg.Admin); err != nil {
			a.Close()
			return nil, err
		}
	}
	return a, nil
}

// Close drains background work and releases connections.
func (a *app) Close() {
	if a.waitlist != nil {
		a.waitlist.Close()
	}
	if a.gate != nil {
		a.gate.Close()
	}
	if a.store != nil {
		_ = a.store.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}
