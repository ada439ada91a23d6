package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/doc-classifier/internal/classifier"
	"github.com/joseph-ayodele/doc-classifier/internal/extract"
	"github.com/joseph-ayodele/doc-classifier/internal/schema"
)

// ClassifyStage runs the classification engine and checks the result shape.
type ClassifyStage struct {
	Classifier extract.DocumentClassifier
	Logger     *slog.Logger
}

func NewClassifyStage(c extract.DocumentClassifier, logger *slog.Logger) *ClassifyStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &ClassifyStage{Classifier: c, Logger: logger}
}

// Run classifies text and blocks. The error is non-nil only when the engine
// produced a result that does not match the result schema.
func (s *ClassifyStage) Run(ctx context.Context, text string, blocks []classifier.TextBlock) (classifier.ClassificationResult, error) {
	res := s.Classifier.Classify(ctx, text, blocks)
	if err := schema.ValidateResult(res); err != nil {
		s.Logger.Error("classification result failed schema validation", "file_class", res.FileClass, "error", err)
		return res, fmt.Errorf("invalid classification result: %w", err)
	}
	return res, nil
}
