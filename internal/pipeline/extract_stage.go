package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joseph-ayodele/doc-classifier/internal/entity"
	"github.com/joseph-ayodele/doc-classifier/internal/extract"
	"github.com/joseph-ayodele/doc-classifier/internal/ocr"
	"github.com/joseph-ayodele/doc-classifier/internal/storage"
)

// ExtractStage fetches a task's upload and turns it into text and blocks.
type ExtractStage struct {
	Store         storage.BlobStore
	TextExtractor extract.TextExtractor
	Logger        *slog.Logger
}

func NewExtractStage(store storage.BlobStore, tx extract.TextExtractor, logger *slog.Logger) *ExtractStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractStage{Store: store, TextExtractor: tx, Logger: logger}
}

// StorageError marks failures to read the upload, as opposed to failures to
// read text from it.
type StorageError struct{ Err error }

func (e *StorageError) Error() string { return "storage error: " + e.Err.Error() }
func (e *StorageError) Unwrap() error { return e.Err }

// Run fetches the blob and extracts it. A *StorageError is returned when the
// blob cannot be read; any other error came from extraction.
func (s *ExtractStage) Run(ctx context.Context, task *entity.Task) (extract.TextExtractionResult, error) {
	path, cleanup, err := s.Store.Fetch(ctx, task.FileURL)
	if err != nil {
		return extract.TextExtractionResult{}, &StorageError{Err: err}
	}
	defer cleanup()

	if sum, err := fileSHA256(path); err == nil {
		ctx = ocr.WithContentHash(ctx, sum)
	} else {
		return extract.TextExtractionResult{}, &StorageError{Err: err}
	}

	res, err := s.TextExtractor.Extract(ctx, path)
	if err != nil {
		return res, fmt.Errorf("extract %s: %w", task.Filename, err)
	}
	s.Logger.Debug("extraction ok",
		"task_id", task.ID,
		"method", res.Method,
		"engine", res.Engine,
		"blocks", len(res.Blocks),
		"confidence", res.Confidence,
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
