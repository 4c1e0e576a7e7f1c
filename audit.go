package waitgate

import (
	"io"

	"github.com/MrEthical07/waitgate/internal/audit"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// AuditEvent is one recorded gate decision.
type AuditEvent = audit.Event

// AuditSink receives audit events from the Gate's dispatcher goroutine.
type AuditSink = audit.Sink

// AuditBatchSink is an AuditSink that stores several queued events per call.
type AuditBatchSink = audit.BatchSink

type (
	NoOpSink       = audit.NoOpSink
	ChannelSink    = audit.ChannelSink
	JSONWriterSink = audit.JSONWriterSink
	LoggerSink     = audit.LoggerSink
	RedisListSink  = audit.RedisListSink
	MultiSink      = audit.MultiSink
)

func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

func NewLoggerSink(logger *zap.Logger) *LoggerSink {
	return audit.NewLoggerSink(logger)
}

// NewRedisListSink stores events as JSON at the head of list key (default "audit_events"),
// trimmed to capacity entries (default 1000).
func NewRedisListSink(client redis.UniversalClient, key string, capacity int, logger *zap.Logger) *RedisListSink {
	return audit.NewRedisListSink(client, key, capacity, logger)
}
