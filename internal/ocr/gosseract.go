//go:build gosseract

package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/joseph-ayodele/doc-classifier/internal/classifier"
)

// GosseractEnabled reports whether the in-process engine was compiled in.
const GosseractEnabled = true

// GosseractEngine runs Tesseract in-process through libtesseract.
// A gosseract client is not safe for concurrent use, so calls are serialized.
type GosseractEngine struct {
	mu     sync.Mutex
	client *gosseract.Client
	logger *slog.Logger
}

func NewGosseractEngine(cfg Config, logger *slog.Logger) (*GosseractEngine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client := gosseract.NewClient()
	lang := cfg.TesseractLang
	if lang == "" {
		lang = "eng"
	}
	if err := client.SetLanguage(lang); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("set language: %w", err)
	}
	if cfg.TessdataDir != "" {
		if err := client.SetTessdataPrefix(cfg.TessdataDir); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("set tessdata prefix: %w", err)
		}
	}
	return &GosseractEngine{client: client, logger: logger}, nil
}

func (g *GosseractEngine) Name() string { return "gosseract" }

func (g *GosseractEngine) Recognize(ctx context.Context, imagePath string) ([]classifier.TextBlock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.client.SetImage(imagePath); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}
	boxes, err := g.client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	blocks := make([]classifier.TextBlock, 0, len(boxes))
	for _, b := range boxes {
		r := b.Box
		blocks = append(blocks, classifier.Rect(b.Word,
			float64(r.Min.X), float64(r.Min.Y), float64(r.Dx()), float64(r.Dy()), b.Confidence/100))
	}
	return blocks, nil
}

// Close releases the Tesseract handle.
func (g *GosseractEngine) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.client.Close()
}
