package mail

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// QueueConfig controls capacity, worker count and the per-message send deadline.
type QueueConfig struct {
	Capacity    int
	Workers     int
	SendTimeout time.Duration
}

// Queue is a bounded mail queue drained by a fixed worker pool. Enqueue
// returns once the message is buffered; delivery failures are logged and
// counted, never retried.
type Queue struct {
	cfg       QueueConfig
	renderer  *Renderer
	transport Transport
	log       *zap.Logger

	ch        chan Message
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once

	// mu orders sends against Close: no message is buffered once closed is set.
	mu     sync.RWMutex
	closed bool

	dropped   atomic.Uint64
	failed    atomic.Uint64
	delivered atomic.Uint64
}

// NewQueue starts cfg.Workers delivery goroutines.
func NewQueue(cfg QueueConfig, renderer *Renderer, transport Transport, log *zap.Logger) *Queue {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 1
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	if transport == nil {
		transport = NewLogTransport(log)
	}

	q := &Queue{
		cfg:       cfg,
		renderer:  renderer,
		transport: transport,
		log:       log,
		ch:        make(chan Message, cfg.Capacity),
		done:      make(chan struct{}),
	}

	q.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go q.run()
	}
	return q
}

// Enqueue buffers msg without blocking. It fails with ErrQueueFull when the
// buffer is at capacity, ErrQueueClosed after Close and ctx's error when the
// caller has already given up.
func (q *Queue) Enqueue(ctx context.Context, msg Message) error {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.ch <- msg:
		return nil
	default:
		q.dropped.Add(1)
		return ErrQueueFull
	}
}

// Close stops accepting messages, delivers what is buffered and waits for the
// workers to exit.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		q.mu.Lock()
		q.closed = true
		q.mu.Unlock()
		close(q.done)
		q.wg.Wait()
	})
}

// Dropped returns the number of messages rejected with ErrQueueFull.
func (q *Queue) Dropped() uint64 { return q.dropped.Load() }

// Failed returns the number of messages that could not be rendered or sent.
func (q *Queue) Failed() uint64 { return q.failed.Load() }

// Delivered returns the number of messages the transport accepted.
func (q *Queue) Delivered() uint64 { return q.delivered.Load() }

// Len returns the number of buffered messages.
func (q *Queue) Len() int { return len(q.ch) }

func (q *Queue) run() {
	defer q.wg.Done()

	for {
		select {
		case msg := <-q.ch:
			q.deliver(msg)
		case <-q.done:
			for {
				select {
				case msg := <-q.ch:
					q.deliver(msg)
				default:
					return
				}
			}
		}
	}
}

func (q *Queue) deliver(msg Message) {
	body, err := q.renderer.Render(msg)
	if err != nil {
		q.failed.Add(1)
		q.log.Error("mail render failed", zap.String("template", msg.Template), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), q.cfg.SendTimeout)
	defer cancel()

	if err := q.transport.Send(ctx, msg.From, msg.To, msg.Subject, body); err != nil {
		q.failed.Add(1)
		q.log.Error("mail delivery failed",
			zap.String("template", msg.Template),
			zap.String("subject", msg.Subject),
			zap.Error(err),
		)
		return
	}
	q.delivered.Add(1)
}
