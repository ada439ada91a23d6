//go:build !gosseract

package ocr

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/doc-classifier/internal/classifier"
)

// GosseractEnabled reports whether the in-process engine was compiled in.
const GosseractEnabled = false

type GosseractEngine struct{}

func NewGosseractEngine(Config, *slog.Logger) (*GosseractEngine, error) {
	return nil, ErrEngineNotEnabled
}

func (g *GosseractEngine) Name() string { return "gosseract" }

func (g *GosseractEngine) Recognize(context.Context, string) ([]classifier.TextBlock, error) {
	return nil, ErrEngineNotEnabled
}

func (g *GosseractEngine) Close() error { return nil }
