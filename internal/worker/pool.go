package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Taichi-iskw/yt-shorts-trend/internal/metrics"
)

var (
	// ErrShutdownTimeout is returned when workers don't stop within timeout
	ErrShutdownTimeout = errors.New("worker pool shutdown timed out")
	// ErrQueueFull is returned by Submit when no queue slot is free
	ErrQueueFull = errors.New("worker queue is full")
	// ErrPoolStopped is returned by Submit after Stop
	ErrPoolStopped = errors.New("worker pool is stopped")
	// ErrJobDropped is reported for jobs still queued when a pool that never started is stopped
	ErrJobDropped = errors.New("worker pool stopped before job ran")
)

// Job is a detached unit of work. Run receives a context owned by the pool,
// never the context of whoever submitted the job.
type Job struct {
	ID   uuid.UUID
	Name string
	Run  func(ctx context.Context) error
}

// Result reports how a job finished
type Result struct {
	JobID    uuid.UUID
	Name     string
	Err      error
	Duration time.Duration
}

// Config holds worker pool configuration
type Config struct {
	Workers   int
	QueueSize int
}

// Pool runs submitted jobs on a fixed number of workers fed by a bounded queue
type Pool struct {
	workers  int
	queue    chan Job
	onResult func(Result)
	logger   *slog.Logger
	metrics  *metrics.Metrics

	mu      sync.RWMutex
	started bool
	stopped bool

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewPool creates a new worker pool; m may be nil
func NewPool(cfg Config, logger *slog.Logger, m *metrics.Metrics) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 32
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		workers: cfg.Workers,
		queue:   make(chan Job, cfg.QueueSize),
		logger:  logger.With("component", "worker_pool"),
		metrics: m,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// OnResult registers a callback invoked after every job. Call before Start.
func (p *Pool) OnResult(fn func(Result)) {
	p.onResult = fn
}

// Start launches all workers
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	p.logger.Info("starting worker pool", "workers", p.workers, "queue_size", cap(p.queue))
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Submit enqueues job without blocking and returns its ID
func (p *Pool) Submit(job Job) (uuid.UUID, error) {
	if job.Run == nil {
		return uuid.Nil, fmt.Errorf("job %q has no Run function", job.Name)
	}
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return uuid.Nil, ErrPoolStopped
	}

	select {
	case p.queue <- job:
		p.metrics.SetQueueDepth(len(p.queue))
		p.logger.Debug("job queued", "job_id", job.ID, "job", job.Name)
		return job.ID, nil
	default:
		p.metrics.CountRejectedJob()
		return uuid.Nil, ErrQueueFull
	}
}

// Stop refuses new jobs, lets workers drain the queue and waits up to timeout.
// On timeout the running jobs' context is cancelled.
func (p *Pool) Stop(timeout time.Duration) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	close(p.queue)
	started := p.started
	p.mu.Unlock()

	p.logger.Info("stopping worker pool", "pending", len(p.queue))

	if !started {
		p.drop()
		p.cancel()
		return nil
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		p.logger.Info("worker pool stopped gracefully")
		return nil
	case <-time.After(timeout):
		p.cancel()
		return ErrShutdownTimeout
	}
}

// drop reports every queued job as failed without running it
func (p *Pool) drop() {
	for job := range p.queue {
		p.metrics.SetQueueDepth(len(p.queue))
		p.logger.Warn("job dropped", "job_id", job.ID, "job", job.Name)
		if p.onResult != nil {
			p.onResult(Result{JobID: job.ID, Name: job.Name, Err: ErrJobDropped})
		}
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	logger := p.logger.With("worker_id", id)
	logger.Debug("worker started")

	for job := range p.queue {
		p.metrics.SetQueueDepth(len(p.queue))
		p.process(logger, job)
	}

	logger.Debug("worker stopping")
}

func (p *Pool) process(logger *slog.Logger, job Job) {
	logger = logger.With("job_id", job.ID, "job", job.Name)
	logger.Info("processing job")

	started := time.Now()
	err := p.run(job)
	result := Result{JobID: job.ID, Name: job.Name, Err: err, Duration: time.Since(started)}

	if err != nil {
		logger.Error("job failed", "error", err, "duration", result.Duration)
	} else {
		logger.Info("job completed successfully", "duration", result.Duration)
	}

	if p.onResult != nil {
		p.onResult(result)
	}
}

func (p *Pool) run(job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return job.Run(p.ctx)
}
