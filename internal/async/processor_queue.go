package async

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/doc-classifier/internal/common"
)

type ProcessorQueue struct {
	proc    TaskProcessor
	failer  TaskFailer
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.RWMutex
	closed bool
}

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithTaskFailer marks a task FAILED when processing it panics.
func WithTaskFailer(f TaskFailer) Option {
	return func(q *ProcessorQueue) {
		q.failer = f
	}
}

func NewProcessorQueue(proc TaskProcessor, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		proc:    proc,
		logger:  logger,
		workers: 4,
		timeout: 3 * time.Minute,
		ch:      make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go q.work(i + 1)
		}
	})
}

func (q *ProcessorQueue) work(workerID int) {
	defer q.wg.Done()
	q.logger.Debug("worker started", "worker_id", workerID)

	for job := range q.ch {
		q.run(workerID, job)
	}

	q.logger.Debug("worker stopped", "worker_id", workerID)
}

func (q *ProcessorQueue) run(workerID int, job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	ctx = common.WithTaskID(ctx, job.TaskID.String())
	if job.RequestID != "" {
		ctx = common.WithRequestID(ctx, job.RequestID)
	}
	log := common.LoggerFromContext(ctx, q.logger).With("worker_id", workerID)

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("task processing panicked", "panic", rec)
			if q.failer == nil {
				return
			}
			msg := fmt.Sprintf("panic: %v", rec)
			if err := q.failer.Fail(context.WithoutCancel(ctx), job.TaskID, msg); err != nil {
				log.Error("could not record task failure", "error", err)
			}
		}
	}()

	waited := time.Since(job.SubmittedAt)
	if err := q.proc.ProcessTask(ctx, job.TaskID); err != nil {
		log.Error("processing failed", "queued_ms", waited.Milliseconds(), "error", err)
		return
	}
	log.Info("processed task successfully", "queued_ms", waited.Milliseconds())
}

// Enqueue hands a job to the pool, blocking while the buffer is full until
// ctx is done.
func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "task_id", job.TaskID)
		return ErrQueueClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	select {
	case q.ch <- job:
		q.logger.Debug("queued task for processing", "task_id", job.TaskID)
		return nil
	default:
	}
	q.logger.Warn("queue full, applying backpressure", "task_id", job.TaskID)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting jobs and waits for queued ones to drain or ctx to end.
func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
