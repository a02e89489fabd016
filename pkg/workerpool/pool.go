package workerpool

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrPoolClosed     = errors.New("workerpool: pool is closed")
	ErrQueueFull      = errors.New("workerpool: queue is full")
	ErrForcedShutdown = errors.New("workerpool: shutdown timed out")
)

// Config holds pool sizing
type Config struct {
	Workers         int
	QueueSize       int
	ShutdownTimeout time.Duration
}

// Validate checks the configuration
func (c Config) Validate() error {
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.QueueSize < 0 {
		return fmt.Errorf("queue size must not be negative, got %d", c.QueueSize)
	}
	return nil
}

// Stats is a point-in-time view of the pool
type Stats struct {
	Running   int64 `json:"running"`
	Queued    int   `json:"queued"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Rejected  int64 `json:"rejected"`
}

// PanicError is returned when a task panics
type PanicError struct {
	Value interface{}
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

type task struct {
	ctx  context.Context
	fn   func(context.Context) error
	done chan error
}

// Pool runs submitted tasks on a fixed set of workers
type Pool struct {
	config Config
	tasks  chan *task
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool

	running   atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	rejected  atomic.Int64
}

// New creates a pool and starts its workers
func New(config Config) (*Pool, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = 30 * time.Second
	}

	p := &Pool{
		config: config,
		tasks:  make(chan *task, config.QueueSize),
	}
	for i := 0; i < config.Workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p, nil
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for t := range p.tasks {
		t.done <- p.execute(t)
	}
}

func (p *Pool) execute(t *task) (err error) {
	if err := t.ctx.Err(); err != nil {
		p.failed.Add(1)
		return err
	}

	p.running.Add(1)
	defer func() {
		p.running.Add(-1)
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: string(debug.Stack())}
		}
		if err != nil {
			p.failed.Add(1)
		} else {
			p.completed.Add(1)
		}
	}()

	return t.fn(t.ctx)
}

// Submit queues fn without waiting for a free slot. The returned channel
// receives the task's result exactly once.
func (p *Pool) Submit(ctx context.Context, fn func(context.Context) error) (<-chan error, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	t := &task{ctx: ctx, fn: fn, done: make(chan error, 1)}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, ErrPoolClosed
	}
	select {
	case p.tasks <- t:
		return t.done, nil
	default:
		p.rejected.Add(1)
		return nil, ErrQueueFull
	}
}

// Do submits fn and waits for its result or for ctx to end
func (p *Pool) Do(ctx context.Context, fn func(context.Context) error) error {
	done, err := p.Submit(ctx, fn)
	if err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop refuses new work and waits for queued tasks to finish
func (p *Pool) Stop() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(p.config.ShutdownTimeout)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-timer.C:
		return ErrForcedShutdown
	}
}

// Stats returns current counters
func (p *Pool) Stats() Stats {
	return Stats{
		Running:   p.running.Load(),
		Queued:    len(p.tasks),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
		Rejected:  p.rejected.Load(),
	}
}
