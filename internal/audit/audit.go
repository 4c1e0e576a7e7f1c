package audit

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Event is one gate decision or gate-side failure.
type Event struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	Flow      string            `json:"flow"`
	IP        string            `json:"ip,omitempty"`
	Success   bool              `json:"success"`
	Reason    string            `json:"reason,omitempty"`
	Policy    string            `json:"policy,omitempty"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Sink receives emitted audit events.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// BatchSink is a Sink that can store several events in one round trip. Events arrive oldest first.
type BatchSink interface {
	Sink
	EmitBatch(ctx context.Context, events []Event)
}

// NoOpSink drops audit events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

// ChannelSink writes audit events into a buffered channel.
type ChannelSink struct {
	events chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan Event, buffer),
	}
}

func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) Emit(_ context.Context, event Event) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}

// LoggerSink writes events as structured log lines.
type LoggerSink struct {
	logger *zap.Logger
}

func NewLoggerSink(logger *zap.Logger) *LoggerSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggerSink{logger: logger}
}

func (s *LoggerSink) Emit(_ context.Context, event Event) {
	if s == nil {
		return
	}
	s.logger.Info("gate decision",
		zap.String("event", event.EventType),
		zap.String("flow", event.Flow),
		zap.Bool("success", event.Success),
		zap.String("reason", event.Reason),
		zap.String("policy", event.Policy),
		zap.String("ip", event.IP),
	)
}

const (
	// DefaultListKey is the Redis list holding recent audit events.
	DefaultListKey = "audit_events"
	// DefaultListCap bounds the list length.
	DefaultListCap = 1000
)

// RedisListSink pushes JSON events to the head of a capped Redis list.
type RedisListSink struct {
	client redis.UniversalClient
	key    string
	cap    int64
	logger *zap.Logger
}

func NewRedisListSink(client redis.UniversalClient, key string, capacity int, logger *zap.Logger) *RedisListSink {
	if key == "" {
		key = DefaultListKey
	}
	if capacity <= 0 {
		capacity = DefaultListCap
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisListSink{client: client, key: key, cap: int64(capacity), logger: logger}
}

func (s *RedisListSink) Emit(ctx context.Context, event Event) {
	s.EmitBatch(ctx, []Event{event})
}

// EmitBatch pushes events in one LPUSH so the newest ends up at the head, then trims the list.
func (s *RedisListSink) EmitBatch(ctx context.Context, events []Event) {
	if s == nil || s.client == nil || len(events) == 0 {
		return
	}
	values := make([]any, 0, len(events))
	for _, event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			continue
		}
		values = append(values, data)
	}
	if len(values) == 0 {
		return
	}

	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, s.key, values...)
	pipe.LTrim(ctx, s.key, 0, s.cap-1)
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Warn("audit events not stored",
			zap.String("key", s.key), zap.Int("count", len(values)), zap.Error(err))
	}
}

// MultiSink fans events out to several sinks in order. Batch-capable members get whole batches.
type MultiSink []Sink

func (m MultiSink) Emit(ctx context.Context, event Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(ctx, event)
		}
	}
}

func (m MultiSink) EmitBatch(ctx context.Context, events []Event) {
	for _, s := range m {
		switch s := s.(type) {
		case nil:
		case BatchSink:
			s.EmitBatch(ctx, events)
		default:
			for _, event := range events {
				s.Emit(ctx, event)
			}
		}
	}
}
