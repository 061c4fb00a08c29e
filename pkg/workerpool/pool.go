// Package workerpool runs row-range tasks on a bounded set of goroutines.
// Merge steps use it to encode long columns in parallel; every task writes
// only its own slice of the output column.
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
)

// Common errors
var (
	ErrPoolClosed  = errors.New("workerpool: pool is closed")
	ErrPoolRunning = errors.New("workerpool: pool is already running")
	ErrInvalidSize = errors.New("workerpool: invalid pool size")
	ErrTaskPanic   = errors.New("workerpool: task panicked")
)

// Task is one unit of work executed by a worker
type Task func(ctx context.Context) error

// Config holds worker pool configuration
type Config struct {
	// Workers is the number of goroutines draining the queue
	Workers int
	// Backlog is how many tasks may wait in the queue (0 = hand-off)
	Backlog int
}

// DefaultConfig sizes the pool to GOMAXPROCS
func DefaultConfig() Config {
	n := runtime.GOMAXPROCS(0)
	return Config{Workers: n, Backlog: n}
}

// Stats is a snapshot of pool counters
type Stats struct {
	Workers      int
	RangesRun    int64
	RangesFailed int64
	IsRunning    bool
	IsClosed     bool
}

type job struct {
	ctx  context.Context
	task Task
	done chan error
}

// Pool is a fixed set of workers reading from a shared queue.
// The queue channel is never closed; Close signals quit instead, so a
// Submit racing with Close returns ErrPoolClosed rather than panicking.
type Pool struct {
	cfg   Config
	queue chan job
	quit  chan struct{}
	wg    sync.WaitGroup
	mu    sync.Mutex

	running atomic.Bool
	closed  atomic.Bool
	active  atomic.Int32
	run     atomic.Int64
	failed  atomic.Int64
}

// New creates a stopped pool; call Start before submitting
func New(cfg Config) (*Pool, error) {
	if cfg.Workers <= 0 || cfg.Backlog < 0 {
		return nil, ErrInvalidSize
	}
	return &Pool{
		cfg:   cfg,
		queue: make(chan job, cfg.Backlog),
		quit:  make(chan struct{}),
	}, nil
}

// Start launches the workers
func (p *Pool) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed.Load() {
		return ErrPoolClosed
	}
	if p.running.Load() {
		return ErrPoolRunning
	}

	p.wg.Add(p.cfg.Workers)
	p.active.Add(int32(p.cfg.Workers))
	for i := 0; i < p.cfg.Workers; i++ {
		go p.work()
	}
	p.running.Store(true)
	return nil
}

func (p *Pool) work() {
	defer p.active.Add(-1)
	defer p.wg.Done()

	for {
		select {
		case <-p.quit:
			return
		case j := <-p.queue:
			j.done <- p.execute(j)
		}
	}
}

func (p *Pool) execute(j job) (err error) {
	p.run.Add(1)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrTaskPanic, r)
		}
		if err != nil {
			p.failed.Add(1)
		}
	}()

	if err := j.ctx.Err(); err != nil {
		return err
	}
	return j.task(j.ctx)
}

// Submit queues a task. The returned channel receives exactly one value:
// the task's error (nil on success).
func (p *Pool) Submit(ctx context.Context, task Task) (<-chan error, error) {
	if !p.running.Load() || p.closed.Load() {
		return nil, ErrPoolClosed
	}

	done := make(chan error, 1)
	select {
	case p.queue <- job{ctx: ctx, task: task, done: done}:
		return done, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.quit:
		return nil, ErrPoolClosed
	}
}

// Do submits a task and waits for it
func (p *Pool) Do(ctx context.Context, task Task) error {
	done, err := p.Submit(ctx, task)
	if err != nil {
		return err
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-p.quit:
		return ErrPoolClosed
	}
}

// Close stops the workers and waits for running tasks to return.
// Tasks still queued are abandoned; their waiters get ErrPoolClosed.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed.Swap(true) {
		return nil
	}
	p.running.Store(false)
	close(p.quit)
	p.wg.Wait()
	return nil
}

// Stats returns current pool counters
func (p *Pool) Stats() Stats {
	return Stats{
		Workers:      int(p.active.Load()),
		RangesRun:    p.run.Load(),
		RangesFailed: p.failed.Load(),
		IsRunning:    p.running.Load(),
		IsClosed:     p.closed.Load(),
	}
}

// IsRunning reports whether Start succeeded and Close has not been called
func (p *Pool) IsRunning() bool { return p.running.Load() }

// IsClosed reports whether Close has been called
func (p *Pool) IsClosed() bool { return p.closed.Load() }
