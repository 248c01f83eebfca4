package tasks

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Config controls the runner's buffer, concurrency and per-task deadline.
type Config struct {
	BufferSize int
	Workers    int
	Timeout    time.Duration
}

// Task is one unit of best-effort background work.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

type queued struct {
	ctx  context.Context
	task Task
}

// Runner executes submitted tasks on a fixed pool of workers. Submission
// never blocks: a full buffer drops the task and counts it. Task failures are
// logged, never returned to the submitter.
type Runner struct {
	cfg       Config
	log       *zap.Logger
	ch        chan queued
	done      chan struct{}
	wg        sync.WaitGroup
	pending   sync.WaitGroup
	dropped   atomic.Uint64
	failed    atomic.Uint64
	closeOnce sync.Once

	// mu orders submissions against Close: no task is buffered once closed
	// is set.
	mu     sync.RWMutex
	closed bool
}

// NewRunner starts cfg.Workers goroutines.
func NewRunner(cfg Config, log *zap.Logger) *Runner {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}

	r := &Runner{
		cfg:  cfg,
		log:  log,
		ch:   make(chan queued, cfg.BufferSize),
		done: make(chan struct{}),
	}

	r.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go r.run()
	}
	return r
}

// Submit queues task. The task keeps ctx's values but not its cancellation,
// so it outlives the request that scheduled it. It reports false when the
// task was dropped.
func (r *Runner) Submit(ctx context.Context, task Task) bool {
	if r == nil || task.Run == nil {
		return false
	}
	if ctx == nil {
		ctx = context.Background()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return false
	}

	r.pending.Add(1)
	select {
	case r.ch <- queued{ctx: context.WithoutCancel(ctx), task: task}:
		return true
	default:
	}
	r.pending.Done()
	r.dropped.Add(1)
	r.log.Warn("background task dropped", zap.String("task", task.Name))
	return false
}

// Wait blocks until every accepted task has finished.
func (r *Runner) Wait() {
	if r == nil {
		return
	}
	r.pending.Wait()
}

// Close stops accepting tasks, runs what is already buffered and waits for
// the workers to exit.
func (r *Runner) Close() {
	if r == nil {
		return
	}
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()
		close(r.done)
		r.wg.Wait()
	})
}

// Dropped returns the number of tasks rejected because the buffer was full.
func (r *Runner) Dropped() uint64 {
	if r == nil {
		return 0
	}
	return r.dropped.Load()
}

// Failed returns the number of tasks that returned a non-cancellation error.
func (r *Runner) Failed() uint64 {
	if r == nil {
		return 0
	}
	return r.failed.Load()
}

func (r *Runner) run() {
	defer r.wg.Done()

	for {
		select {
		case q := <-r.ch:
			r.execute(q)
		case <-r.done:
			for {
				select {
				case q := <-r.ch:
					r.execute(q)
				default:
					return
				}
			}
		}
	}
}

func (r *Runner) execute(q queued) {
	defer r.pending.Done()

	ctx, cancel := context.WithTimeout(q.ctx, r.cfg.Timeout)
	defer cancel()

	err := r.safeRun(ctx, q.task)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		r.log.Debug("background task cancelled", zap.String("task", q.task.Name), zap.Error(err))
	default:
		r.failed.Add(1)
		r.log.Warn("background task failed", zap.String("task", q.task.Name), zap.Error(err))
	}
}

func (r *Runner) safeRun(ctx context.Context, task Task) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.New("background task panicked")
			r.log.Error("background task panic", zap.String("task", task.Name), zap.Any("panic", p))
		}
	}()
	return task.Run(ctx)
}
