// Package ingest turns uploaded or discovered files into classification tasks.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/doc-classifier/constants"
	"github.com/joseph-ayodele/doc-classifier/internal/async"
	"github.com/joseph-ayodele/doc-classifier/internal/common"
	"github.com/joseph-ayodele/doc-classifier/internal/entity"
	"github.com/joseph-ayodele/doc-classifier/internal/repository"
	"github.com/joseph-ayodele/doc-classifier/internal/storage"
)

// Submitter is the behavior the transports depend on.
type Submitter interface {
	Submit(ctx context.Context, filename string, r io.Reader) (*entity.Task, error)
}

// Service stores a document, records a PENDING task and queues it.
type Service struct {
	store  storage.BlobStore
	tasks  repository.TaskRepository
	queue  async.Queue
	logger *slog.Logger
}

var _ Submitter = (*Service)(nil)

func NewService(store storage.BlobStore, tasks repository.TaskRepository, queue async.Queue, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, tasks: tasks, queue: queue, logger: logger}
}

// Submit accepts one document. The returned task is already queued.
func (s *Service) Submit(ctx context.Context, filename string, r io.Reader) (*entity.Task, error) {
	v := common.NewValidator().
		Field("filename", filename, common.Required, common.Extension(constants.AllowedExtensions))
	if err := v.Err(); err != nil {
		return nil, err
	}

	log := common.LoggerFromContext(ctx, s.logger)
	id := uuid.New()
	name := filepath.Base(filename)

	url, err := s.store.Put(ctx, storage.UploadKey(id.String(), name), r)
	if err != nil {
		log.Error("store upload failed", "filename", name, "error", err)
		return nil, err
	}

	task, err := s.tasks.Create(ctx, id, url, name)
	if err != nil {
		log.Error("create task failed", "filename", name, "error", err)
		return nil, err
	}

	job := async.Job{
		TaskID:      id,
		SubmittedAt: time.Now(),
		RequestID:   common.RequestIDFromContext(ctx),
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		// the row exists; leave it terminal rather than stuck in PENDING
		if ferr := s.tasks.Fail(context.WithoutCancel(ctx), id, "enqueue: "+err.Error()); ferr != nil {
			log.Error("mark unqueued task failed", "task_id", id, "error", ferr)
		}
		if errors.Is(err, async.ErrQueueClosed) {
			return nil, common.NewAppError("QUEUE_CLOSED", "service is shutting down", common.ErrInternal)
		}
		return nil, fmt.Errorf("enqueue task %s: %w", id, err)
	}

	log.Info("task submitted", "task_id", id, "filename", name, "file_url", url)
	return task, nil
}

// SubmitPath opens a local file and submits it.
func (s *Service) SubmitPath(ctx context.Context, path string) (*entity.Task, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return s.Submit(ctx, path, f)
}
