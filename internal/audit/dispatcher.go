package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultMaxBatch bounds how many queued events a [BatchSink] receives per call.
const DefaultMaxBatch = 64

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
	// SinkTimeout bounds each delivery to sinks that perform I/O. Zero means no deadline.
	SinkTimeout time.Duration
	// MaxBatch caps events handed to a BatchSink at once. Zero means DefaultMaxBatch.
	MaxBatch int
}

// Dispatcher asynchronously forwards audit events to a sink. Sinks implementing [BatchSink]
// receive whatever is already queued, up to MaxBatch events, in one call.
type Dispatcher struct {
	cfg       Config
	sink      Sink
	batch     BatchSink
	ch        chan Event
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	delivered atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewDispatcher starts the delivery goroutine. It returns nil when cfg.Enabled is false; a nil
// Dispatcher accepts and discards events.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if cfg.MaxBatch <= 0 {
		cfg.MaxBatch = DefaultMaxBatch
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		cfg:  cfg,
		sink: sink,
		ch:   make(chan Event, cfg.BufferSize),
		done: make(chan struct{}),
	}
	d.batch, _ = sink.(BatchSink)

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	pending := make([]Event, 0, d.cfg.MaxBatch)
	for {
		select {
		case event := <-d.ch:
			pending = d.collect(append(pending[:0], event))
			d.deliver(pending)
		case <-d.done:
			for {
				select {
				case event := <-d.ch:
					pending = d.collect(append(pending[:0], event))
					d.deliver(pending)
				default:
					return
				}
			}
		}
	}
}

// collect appends already-queued events without blocking. Only batch sinks get more than one.
func (d *Dispatcher) collect(events []Event) []Event {
	if d.batch == nil {
		return events
	}
	for len(events) < d.cfg.MaxBatch {
		select {
		case event := <-d.ch:
			events = append(events, event)
		default:
			return events
		}
	}
	return events
}

func (d *Dispatcher) deliver(events []Event) {
	ctx := context.Background()
	if d.cfg.SinkTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.SinkTimeout)
		defer cancel()
	}
	if d.batch != nil {
		d.batch.EmitBatch(ctx, events)
	} else {
		for _, event := range events {
			d.sink.Emit(ctx, event)
		}
	}
	d.delivered.Add(uint64(len(events)))
}

// Emit queues event. With DropIfFull a full buffer drops the event and counts it; otherwise
// Emit blocks until there is room, ctx is done or the dispatcher closes.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.cfg.DropIfFull {
		select {
		case d.ch <- event:
		case <-d.done:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.ch <- event:
	case <-ctx.Done():
		d.dropped.Add(1)
	case <-d.done:
	}
}

// Close stops accepting events and drains the buffer.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

func (d *Dispatcher) Delivered() uint64 {
	if d == nil {
		return 0
	}
	return d.delivered.Load()
}
