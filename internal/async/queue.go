// Package async runs classification tasks on a bounded in-process worker pool.
package async

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrQueueClosed is returned by Enqueue once Shutdown has started.
var ErrQueueClosed = errors.New("queue is shutting down")

// Job asks a worker to process one classification task.
type Job struct {
	TaskID      uuid.UUID
	SubmittedAt time.Time
	RequestID   string
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

// TaskProcessor is what workers run for each job.
type TaskProcessor interface {
	ProcessTask(ctx context.Context, taskID uuid.UUID) error
}

// TaskFailer records a terminal failure for a task the processor could not finish.
type TaskFailer interface {
	Fail(ctx context.Context, id uuid.UUID, msg string) error
}
