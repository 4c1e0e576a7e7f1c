package waitlist

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	DefaultAnalyticsKey = "analytics_events"
	DefaultAnalyticsCap = 1000
)

// RedisAnalytics appends product events as JSON to a capped Redis list, newest first.
type RedisAnalytics struct {
	client   redis.UniversalClient
	key      string
	capacity int64
	logger   *zap.Logger
	now      func() time.Time
}

type analyticsEvent struct {
	Event      string            `json:"event"`
	Properties map[string]string `json:"properties,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

func NewRedisAnalytics(client redis.UniversalClient, key string, capacity int64, logger *zap.Logger) *RedisAnalytics {
	if key == "" {
		key = DefaultAnalyticsKey
	}
	if capacity <= 0 {
		capacity = DefaultAnalyticsCap
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisAnalytics{client: client, key: key, capacity: capacity, logger: logger, now: time.Now}
}

func (a *RedisAnalytics) Track(ctx context.Context, event string, properties map[string]string) {
	raw, err := json.Marshal(analyticsEvent{Event: event, Properties: properties, Timestamp: a.now().UTC()})
	if err != nil {
		return
	}
	pipe := a.client.TxPipeline()
	pipe.LPush(ctx, a.key, raw)
	pipe.LTrim(ctx, a.key, 0, a.capacity-1)
	if _, err := pipe.Exec(ctx); err != nil {
		a.logger.Warn("analytics track failed", zap.String("event", event), zap.Error(err))
	}
}
