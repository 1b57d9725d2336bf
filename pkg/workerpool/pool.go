// Package workerpool runs submitted tasks on a fixed set of goroutines with
// bounded queueing and per-task retries.
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrPoolClosed is returned by Submit after Stop.
	ErrPoolClosed = errors.New("worker pool is closed")
	// ErrQueueFull is returned by Submit when the queue has no free slot.
	ErrQueueFull = errors.New("worker pool queue is full")
)

// Task represents a unit of work to be processed
type Task struct {
	ID      string
	Payload any
	// Context is passed to the handler; the pool context is used when nil.
	Context context.Context
}

// Handler processes one task. A non-nil error triggers a retry.
type Handler func(ctx context.Context, task *Task) error

// FailureHandler is called once a task has exhausted its retries.
type FailureHandler func(ctx context.Context, task *Task, err error)

// Config holds worker pool configuration
type Config struct {
	Workers   int
	QueueSize int
	// MaxRetries is the number of attempts after the first
	MaxRetries int
	// RetryDelay grows linearly with the attempt number
	RetryDelay              time.Duration
	GracefulShutdownTimeout time.Duration
}

// DefaultConfig returns defaults sized for event publishing
func DefaultConfig() Config {
	return Config{
		Workers:                 4,
		QueueSize:               1024,
		MaxRetries:              3,
		RetryDelay:              100 * time.Millisecond,
		GracefulShutdownTimeout: 30 * time.Second,
	}
}

// Pool manages a pool of workers for concurrent task processing
type Pool struct {
	config    Config
	handler   Handler
	onFailure FailureHandler
	logger    *zap.Logger

	mu     sync.RWMutex
	closed bool
	tasks  chan *Task
	wg     sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc

	submitted atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	retried   atomic.Int64
	active    atomic.Int64
}

// New creates a new worker pool. onFailure may be nil.
func New(cfg Config, handler Handler, onFailure FailureHandler, logger *zap.Logger) (*Pool, error) {
	if handler == nil {
		return nil, fmt.Errorf("worker handler is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = defaults.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaults.QueueSize
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.GracefulShutdownTimeout <= 0 {
		cfg.GracefulShutdownTimeout = defaults.GracefulShutdownTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		config:    cfg,
		handler:   handler,
		onFailure: onFailure,
		logger:    logger,
		tasks:     make(chan *Task, cfg.QueueSize),
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// Start launches all workers
func (p *Pool) Start() {
	for i := 0; i < p.config.Workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	p.logger.Info("worker pool started",
		zap.Int("workers", p.config.Workers),
		zap.Int("queue_size", p.config.QueueSize))
}

// Submit enqueues task without blocking.
func (p *Pool) Submit(task *Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.tasks <- task:
		p.submitted.Add(1)
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop stops accepting tasks and waits for queued ones to drain, up to the
// graceful shutdown timeout or ctx, whichever ends first. In-flight retries are
// cancelled once the wait gives up.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	p.logger.Info("stopping worker pool", zap.Int("queued", len(p.tasks)))

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(p.config.GracefulShutdownTimeout)
	defer timer.Stop()

	select {
	case <-done:
		p.cancel()
		p.logger.Info("worker pool stopped gracefully")
		return nil
	case <-timer.C:
	case <-ctx.Done():
	}

	p.cancel()
	<-done
	p.logger.Warn("worker pool shutdown timed out")
	return fmt.Errorf("worker pool: drain timed out")
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for task := range p.tasks {
		p.active.Add(1)
		p.process(id, task)
		p.active.Add(-1)
	}
}

func (p *Pool) process(workerID int, task *Task) {
	ctx := task.Context
	if ctx == nil {
		ctx = p.ctx
	}

	err := p.run(ctx, task)
	if err == nil {
		p.completed.Add(1)
		return
	}

	p.failed.Add(1)
	p.logger.Error("task failed",
		zap.String("task_id", task.ID),
		zap.Int("worker_id", workerID),
		zap.Error(err))

	if p.onFailure != nil {
		p.onFailure(p.ctx, task, err)
	}
}

func (p *Pool) run(ctx context.Context, task *Task) error {
	var lastErr error
	for attempt := 0; attempt <= p.config.MaxRetries; attempt++ {
		if attempt > 0 {
			p.retried.Add(1)
			p.logger.Debug("retrying task",
				zap.String("task_id", task.ID),
				zap.Int("attempt", attempt),
				zap.Error(lastErr))

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-p.ctx.Done():
				return fmt.Errorf("pool stopped: %w", lastErr)
			case <-time.After(p.config.RetryDelay * time.Duration(attempt)):
			}
		}

		if lastErr = p.handler(ctx, task); lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("task failed after %d retries: %w", p.config.MaxRetries, lastErr)
}

// Stats is a point-in-time snapshot of pool counters.
type Stats struct {
	TasksSubmitted int64 `json:"tasksSubmitted"`
	TasksCompleted int64 `json:"tasksCompleted"`
	TasksFailed    int64 `json:"tasksFailed"`
	TasksRetried   int64 `json:"tasksRetried"`
	ActiveWorkers  int64 `json:"activeWorkers"`
	QueueDepth     int   `json:"queueDepth"`
	QueueCapacity  int   `json:"queueCapacity"`
	Workers        int   `json:"workers"`
}

// Stats returns current pool statistics
func (p *Pool) Stats() Stats {
	return Stats{
		TasksSubmitted: p.submitted.Load(),
		TasksCompleted: p.completed.Load(),
		TasksFailed:    p.failed.Load(),
		TasksRetried:   p.retried.Load(),
		ActiveWorkers:  p.active.Load(),
		QueueDepth:     len(p.tasks),
		QueueCapacity:  p.config.QueueSize,
		Workers:        p.config.Workers,
	}
}

// IsHealthy reports whether the queue is below 90% of capacity.
func (p *Pool) IsHealthy() bool {
	return float64(len(p.tasks))/float64(p.config.QueueSize) < 0.9
}
