package extract

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/doc-classifier/internal/ocr"
)

// OCRAdapter exposes an ocr.Extractor as a TextExtractor.
type OCRAdapter struct {
	extractor *ocr.Extractor
	logger    *slog.Logger
}

func NewOCRAdapter(e *ocr.Extractor, l *slog.Logger) *OCRAdapter {
	if l == nil {
		l = slog.Default()
	}
	return &OCRAdapter{extractor: e, logger: l}
}

func (a *OCRAdapter) Extract(ctx context.Context, path string) (TextExtractionResult, error) {
	r, err := a.extractor.Extract(ctx, path)
	out := TextExtractionResult{
		Text:       r.Text,
		Blocks:     r.Blocks,
		Pages:      r.Pages,
		SourceType: r.SourceType,
		Method:     r.Method,
		Engine:     r.Engine,
		Language:   r.Language,
		Duration:   r.Duration,
		Warnings:   r.Warnings,
		Confidence: r.Confidence,
	}
	if err != nil {
		a.logger.Warn("text extraction failed", "path", path, "warnings", len(r.Warnings), "error", err)
		return out, err
	}
	return out, nil
}
