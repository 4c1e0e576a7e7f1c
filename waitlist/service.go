package waitlist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MrEthical07/waitgate"
	"github.com/MrEthical07/waitgate/notify/discord"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	DefaultStatsKey      = "waitlist_stats"
	DefaultStatsTTL      = 10 * time.Minute
	DefaultNotifyTimeout = 10 * time.Second

	messageJoined        = "🎉 Thanks for joining the waitlist! We'll be in touch soon."
	messageAlreadyJoined = "🎉 You're already on the waitlist! We'll be in touch soon."
	messageStoreFailure  = "Something went wrong. Please try again later."
	messageStatsDegraded = "Stats temporarily unavailable"
)

// Gate is the slice of *waitgate.Gate the service needs.
type Gate interface {
	EvaluateSignupRequest(ctx context.Context, req waitgate.SignupRequest) waitgate.Decision
	EvaluateWebhook(ctx context.Context, ip string, msg waitgate.WebhookMessage) waitgate.Decision
}

// Notifier delivers signup notifications. *discord.Client implements it.
type Notifier interface {
	Configured() bool
	Send(ctx context.Context, p discord.Payload) (discord.Result, error)
}

// Analytics records product events. Failures are the tracker's concern.
type Analytics interface {
	Track(ctx context.Context, event string, properties map[string]string)
}

type JoinRequest struct {
	IP    string
	Email string
	Token string
}

// JoinResult is the outcome of Join. Decision is the gate's verdict; ID and AlreadyJoined
// are set only when the gate admitted the request and the store accepted it.
type JoinResult struct {
	Decision      waitgate.Decision
	ID            string
	AlreadyJoined bool
	Message       string
}

// Success reports whether the caller should be told they are on the waitlist.
func (r JoinResult) Success() bool {
	return r.Decision.Allowed && r.ID != ""
}

type Stats struct {
	TotalEntries int64  `json:"totalEntries"`
	Degraded     bool   `json:"-"`
	Message      string `json:"-"`
}

// Service runs waitlist signups behind the abuse gate.
type Service struct {
	gate      Gate
	store     Store
	cache     redis.UniversalClient
	notifier  Notifier
	analytics Analytics
	logger    *zap.Logger
	now       func() time.Time

	statsKey      string
	statsTTL      time.Duration
	notifyTimeout time.Duration

	wg sync.WaitGroup
}

type Option func(*Service)

// WithStatsCache caches Stats in Redis and invalidates it on every new entry.
func WithStatsCache(client redis.UniversalClient, key string, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = client
		if key != "" {
			s.statsKey = key
		}
		if ttl > 0 {
			s.statsTTL = ttl
		}
	}
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithAnalytics(a Analytics) Option {
	return func(s *Service) { s.analytics = a }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithNotifyTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.notifyTimeout = d
		}
	}
}

func NewService(gate Gate, store Store, opts ...Option) *Service {
	s := &Service{
		gate:          gate,
		store:         store,
		logger:        zap.NewNop(),
		now:           time.Now,
		statsKey:      DefaultStatsKey,
		statsTTL:      DefaultStatsTTL,
		notifyTimeout: DefaultNotifyTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Join evaluates the signup with the gate and, when admitted, stores the email. A duplicate
// email is a successful join. The returned error is non-nil only for store failures, after
// quota has already been spent.
func (s *Service) Join(ctx context.Context, req JoinRequest) (JoinResult, error) {
	d := s.gate.EvaluateSignupRequest(ctx, waitgate.SignupRequest{
		IP:    req.IP,
		Email: req.Email,
		Token: req.Token,
	})
	if !d.Allowed {
		return JoinResult{Decision: d, Message: d.Message()}, nil
	}

	email := CanonicalEmail(req.Email)
	res, err := s.store.Insert(ctx, email)
	if err != nil {
		s.logger.Error("waitlist insert failed", zap.Error(err))
		return JoinResult{Decision: d, Message: messageStoreFailure}, fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}
	if !res.Created {
		return JoinResult{Decision: d, ID: res.ID, AlreadyJoined: true, Message: messageAlreadyJoined}, nil
	}

	s.invalidateStats(ctx)
	if s.analytics != nil {
		s.analytics.Track(ctx, "email_added", map[string]string{"domain": domainOf(email)})
	}
	s.notifySignup(ctx, req.IP, email)

	return JoinResult{Decision: d, ID: res.ID, Message: messageJoined}, nil
}

// Stats returns the entry count. It reads the Redis cache first, then the store. When both
// fail it returns zero with Degraded set.
func (s *Service) Stats(ctx context.Context) Stats {
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, s.statsKey).Bytes()
		switch {
		case err == nil:
			var cached Stats
			if jerr := json.Unmarshal(raw, &cached); jerr == nil {
				return cached
			}
		case !errors.Is(err, redis.Nil):
			s.logger.Warn("stats cache read failed", zap.Error(err))
		}
	}

	total, err := s.store.Count(ctx)
	if err != nil {
		s.logger.Error("stats count failed", zap.Error(err))
		return Stats{Degraded: true, Message: messageStatsDegraded}
	}
	st := Stats{TotalEntries: total}

	if s.cache != nil {
		raw, _ := json.Marshal(st)
		if err := s.cache.Set(ctx, s.statsKey, raw, s.statsTTL).Err(); err != nil {
			s.logger.Warn("stats cache write failed", zap.Error(err))
		}
	}
	return st
}

// Health is the result of a dependency check.
type Health struct {
	Database     string `json:"database"`
	Redis        string `json:"redis"`
	TotalEntries int64  `json:"totalEntries"`
}

func (h Health) OK() bool {
	return h.Database == healthHealthy && (h.Redis == healthHealthy || h.Redis == healthDisabled)
}

const (
	healthHealthy   = "healthy"
	healthUnhealthy = "unhealthy"
	healthDisabled  = "disabled"
)

// Health pings the store and the cache and reports the current count.
func (s *Service) Health(ctx context.Context) Health {
	h := Health{Database: healthHealthy, Redis: healthDisabled}
	if err := s.store.Ping(ctx); err != nil {
		s.logger.Error("health: store ping failed", zap.Error(err))
		h.Database = healthUnhealthy
	} else if n, err := s.store.Count(ctx); err != nil {
		s.logger.Error("health: store count failed", zap.Error(err))
		h.Database = healthUnhealthy
	} else {
		h.TotalEntries = n
	}
	if s.cache != nil {
		h.Redis = healthHealthy
		if err := s.cache.Ping(ctx).Err(); err != nil {
			s.logger.Error("health: redis ping failed", zap.Error(err))
			h.Redis = healthUnhealthy
		}
	}
	return h
}

// Close waits for in-flight notifications.
func (s *Service) Close() {
	s.wg.Wait()
}

func (s *Service) invalidateStats(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, s.statsKey).Err(); err != nil {
		s.logger.Warn("stats cache invalidation failed", zap.Error(err))
	}
}

// notifySignup sends the signup notification in the background. The outbound payload goes
// through the gate's webhook flow with the signup's IP as actor.
func (s *Service) notifySignup(ctx context.Context, ip, email string) {
	if s.notifier == nil || !s.notifier.Configured() {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
		defer cancel()

		total := s.Stats(ctx).TotalEntries
		payload := discord.SignupPayload(email, total, s.now())

		d := s.gate.EvaluateWebhook(ctx, ip, waitgate.WebhookMessage{
			Texts:  payload.Texts(),
			Labels: payload.Labels(),
		})
		if !d.Allowed {
			s.logger.Info("signup notification suppressed", zap.String("reason", string(d.Reason)))
			return
		}
		if _, err := s.notifier.Send(ctx, payload); err != nil {
			s.logger.Warn("signup notification failed", zap.Error(err))
		}
	}()
}

func domainOf(email string) string {
	for i := len(email) - 1; i >= 0; i-- {
		if email[i] == '@' {
			return email[i+1:]
		}
	}
	return ""
}
