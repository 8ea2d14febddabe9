// Package tasks runs detached, best-effort work after a response has been
// decided.
package tasks

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wolfman30/ghl-booking-gateway/internal/observability/metrics"
	"github.com/wolfman30/ghl-booking-gateway/pkg/logging"
)

const (
	defaultWorkers   = 2
	defaultQueueSize = 64
	defaultTimeout   = 10 * time.Second
	flushPoll        = 10 * time.Millisecond
)

// Task is a unit of detached work. Its context carries the task timeout and
// is not tied to any request.
type Task func(ctx context.Context)

// Config sizes a Runner.
type Config struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

type job struct {
	name string
	fn   Task
}

// Runner is a bounded worker pool. Submit never blocks; when the queue is
// full the task is dropped and counted.
type Runner struct {
	queue   chan job
	timeout time.Duration
	logger  *logging.Logger
	metrics *metrics.GatewayMetrics

	mu      sync.RWMutex
	closed  bool
	once    sync.Once
	workers sync.WaitGroup
	pending atomic.Int64
}

// NewRunner starts the workers.
func NewRunner(cfg Config, logger *logging.Logger, m *metrics.GatewayMetrics) *Runner {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = logging.Default()
	}
	r := &Runner{
		queue:   make(chan job, cfg.QueueSize),
		timeout: cfg.Timeout,
		logger:  logger,
		metrics: m,
	}
	r.workers.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go r.work()
	}
	return r
}

// Submit enqueues fn and reports whether it was accepted.
func (r *Runner) Submit(name string, fn Task) bool {
	if fn == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.logger.Warn("task submitted after shutdown", "task", name)
		r.metrics.TaskDropped()
		return false
	}

	r.pending.Add(1)
	select {
	case r.queue <- job{name: name, fn: fn}:
		return true
	default:
		r.pending.Add(-1)
		r.logger.Warn("task queue full, dropping task", "task", name)
		r.metrics.TaskDropped()
		return false
	}
}

// Flush waits until every accepted task has finished or ctx is done. Lambda
// calls it before returning so detached work is not frozen mid-flight.
func (r *Runner) Flush(ctx context.Context) error {
	for r.pending.Load() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(flushPoll):
		}
	}
	return nil
}

// Shutdown stops accepting tasks and waits for queued ones to finish.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.once.Do(func() {
		r.mu.Lock()
		r.closed = true
		close(r.queue)
		r.mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		r.workers.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) work() {
	defer r.workers.Done()
	for j := range r.queue {
		r.run(j)
	}
}

func (r *Runner) run(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	defer r.pending.Add(-1)
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("detached task panicked", "task", j.name, "panic", rec)
		}
	}()

	start := time.Now()
	j.fn(ctx)
	r.logger.Debug("detached task finished", "task", j.name, "elapsed", time.Since(start))
}
