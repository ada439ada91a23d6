// Package extract defines the two pipeline stages: file to positioned text,
// and positioned text to a document classification.
package extract

import (
	"context"
	"time"

	"github.com/joseph-ayodele/doc-classifier/internal/classifier"
)

// TextExtractor is Stage 1: file -> text + text blocks.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (TextExtractionResult, error)
}

type TextExtractionResult struct {
	Text       string
	Blocks     []classifier.TextBlock
	Pages      int
	SourceType string // "PDF" | "IMAGE"
	Method     string // "pdf-ocr" | "image-ocr"
	Engine     string
	Language   string
	Duration   time.Duration
	Warnings   []string
	Confidence float32
}

// DocumentClassifier is Stage 2: text + blocks -> classification.
// *classifier.Registry satisfies it.
type DocumentClassifier interface {
	Classify(ctx context.Context, text string, blocks []classifier.TextBlock) classifier.ClassificationResult
}

var _ DocumentClassifier = (*classifier.Registry)(nil)
