// Package dispatch provides the bounded worker pool and the
// commit-synchronized dispatcher that hands accepted validation jobs to it.
package dispatch

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/entropix/entropy-certify/internal/observability/statsd"
)

// Task is one unit of asynchronous work. The context passed in belongs to the
// pool, not to the HTTP request that created the job.
type Task func(ctx context.Context)

// PoolOptions configures a Pool.
type PoolOptions struct {
	Workers       int // defaults to 2
	QueueCapacity int // defaults to 10
	Logger        *slog.Logger
	Metrics       statsd.Sink
}

// Pool is a fixed-size worker pool with a bounded queue. Capacity is claimed
// with Reserve before the work exists, so callers can refuse a submission
// up front and only enqueue once their own bookkeeping (a committed job row)
// is durable.
type Pool struct {
	workers int
	slots   chan struct{}
	tasks   chan Task
	logger  *slog.Logger
	metrics statsd.Sink
}

// NewPool creates a Pool. It does not start workers; call Run.
func NewPool(opts PoolOptions) *Pool {
	workers := opts.Workers
	if workers <= 0 {
		workers = 2
	}
	capacity := opts.QueueCapacity
	if capacity <= 0 {
		capacity = 10
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Pool{
		workers: workers,
		slots:   make(chan struct{}, capacity),
		tasks:   make(chan Task, capacity),
		logger:  logger.With("component", "dispatch_pool"),
		metrics: opts.Metrics,
	}
}

// Reserve claims one queue slot without blocking. It returns false when the
// pool is at capacity; the caller must not call Enqueue in that case.
func (p *Pool) Reserve() bool {
	select {
	case p.slots <- struct{}{}:
		if p.metrics != nil {
			p.metrics.Gauge("dispatch.queue_depth", float64(len(p.slots)), nil)
		}
		return true
	default:
		if p.metrics != nil {
			p.metrics.Count("dispatch.rejected", 1, nil)
		}
		return false
	}
}

// Release returns a slot claimed by Reserve without enqueuing work. Callers
// use it when the transaction that followed the reservation was rolled back.
func (p *Pool) Release() {
	select {
	case <-p.slots:
	default:
		// Release without a matching Reserve is a caller bug; ignore rather
		// than block.
	}
}

// Enqueue hands a task to the pool. The caller must hold a reservation, which
// guarantees the buffered channel has room; the slot is freed when a worker
// picks the task up.
func (p *Pool) Enqueue(task Task) error {
	if task == nil {
		return errors.New("task is required")
	}
	select {
	case p.tasks <- task:
		return nil
	default:
		// Unreachable when every Enqueue is preceded by Reserve.
		return errors.New("pool queue full without reservation")
	}
}

// Run starts the worker goroutines and blocks until the context is cancelled.
// Queued tasks still in the channel at shutdown are abandoned; the startup
// recovery sweep closes out their job rows on the next boot.
func (p *Pool) Run(ctx context.Context) error {
	p.logger.InfoContext(ctx, "starting dispatch pool", "workers", p.workers, "queue_capacity", cap(p.slots))

	g, ctx := errgroup.WithContext(ctx)
	for range p.workers {
		g.Go(func() error {
			p.workerLoop(ctx)
			return nil
		})
	}
	return g.Wait()
}

func (p *Pool) workerLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-p.tasks:
			p.Release()
			task(ctx)
		}
	}
}
