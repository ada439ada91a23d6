// Package pipeline runs stored classification tasks: fetch, extract, classify, persist.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/doc-classifier/internal/classifier"
	"github.com/joseph-ayodele/doc-classifier/internal/repository"
)

// Processor coordinates text extraction then classification for a task.
type Processor struct {
	Logger   *slog.Logger
	Tasks    repository.TaskRepository
	Extract  *ExtractStage
	Classify *ClassifyStage
}

func NewProcessor(logger *slog.Logger, tasks repository.TaskRepository, ex *ExtractStage, cl *ClassifyStage) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{Logger: logger, Tasks: tasks, Extract: ex, Classify: cl}
}

// ProcessTask moves a task to RUNNING and then to COMPLETED or FAILED.
//
// Storage and database failures leave the task FAILED and are returned, as
// does running out of time. Extraction failures are not task failures: the
// task completes with an error result describing what went wrong.
// The terminal status is written even after ctx is done.
func (p *Processor) ProcessTask(ctx context.Context, taskID uuid.UUID) error {
	start := time.Now()
	log := p.Logger.With("task_id", taskID)

	task, err := p.Tasks.Get(ctx, taskID)
	if err != nil {
		log.Error("load task failed", "error", err)
		return fmt.Errorf("load task: %w", err)
	}
	if task.Status.Terminal() {
		log.Warn("task already finished, skipping", "status", task.Status)
		return nil
	}
	if err := p.Tasks.MarkRunning(ctx, taskID); err != nil {
		return p.fail(ctx, log, taskID, fmt.Errorf("mark running: %w", err))
	}

	var result classifier.ClassificationResult
	ext, err := p.Extract.Run(ctx, task)
	var storageErr *StorageError
	switch {
	case errors.As(err, &storageErr):
		return p.fail(ctx, log, taskID, err)
	case err != nil && ctx.Err() != nil:
		return p.fail(ctx, log, taskID, fmt.Errorf("extract: %w", context.Cause(ctx)))
	case err != nil:
		log.Warn("text extraction failed, storing error result", "error", err)
		result = classifier.ErrorResult(err)
	default:
		result, err = p.Classify.Run(ctx, ext.Text, ext.Blocks)
		if err != nil {
			return p.fail(ctx, log, taskID, err)
		}
	}

	if err := p.Tasks.Complete(context.WithoutCancel(ctx), taskID, result); err != nil {
		return p.fail(ctx, log, taskID, fmt.Errorf("store result: %w", err))
	}
	log.Info("task completed",
		"file_class", result.FileClass,
		"confidence", result.Confidence,
		"is_valid", result.IsValid,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (p *Processor) fail(ctx context.Context, log *slog.Logger, taskID uuid.UUID, cause error) error {
	log.Error("task failed", "error", cause)
	if err := p.Tasks.Fail(context.WithoutCancel(ctx), taskID, cause.Error()); err != nil {
		log.Error("could not record task failure", "error", err)
		return errors.Join(cause, err)
	}
	return cause
}

// ClassifyFile extracts and classifies a local file without touching storage
// or the task table.
func (p *Processor) ClassifyFile(ctx context.Context, path string) (classifier.ClassificationResult, error) {
	res, err := p.Extract.TextExtractor.Extract(ctx, path)
	if err != nil {
		return classifier.ErrorResult(err), err
	}
	return p.Classify.Run(ctx, res.Text, res.Blocks)
}
