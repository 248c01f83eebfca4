package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Config controls dispatcher buffering.
type Config struct {
	Enabled    bool
	BufferSize int
	// DropIfFull makes Emit non-blocking; otherwise Emit waits for buffer
	// space or ctx.
	DropIfFull bool
}

// Dispatcher relays events to a sink from a single goroutine. A nil
// Dispatcher ignores every call.
type Dispatcher struct {
	cfg       Config
	sink      Sink
	log       *zap.Logger
	now       func() time.Time
	ch        chan Event
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewDispatcher returns nil when cfg.Enabled is false.
func NewDispatcher(cfg Config, sink Sink, log *zap.Logger, now func() time.Time) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}

	d := &Dispatcher{
		cfg:  cfg,
		sink: sink,
		log:  log,
		now:  now,
		ch:   make(chan Event, cfg.BufferSize),
		done: make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case event := <-d.ch:
			d.deliver(event)
		case <-d.done:
			for {
				select {
				case event := <-d.ch:
					d.deliver(event)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(event Event) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("audit sink panicked", zap.String("event_type", event.EventType), zap.Any("panic", r))
		}
	}()
	d.sink.Emit(context.Background(), event)
}

// Emit queues event, stamping Timestamp when unset. Events emitted after
// Close are discarded.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.closed.Load() {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = d.now()
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

// Close stops accepting events and waits until buffered ones are delivered.
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

// Dropped returns the number of events discarded for lack of buffer space.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
