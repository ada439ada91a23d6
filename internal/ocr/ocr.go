// Package ocr turns document files into text and positioned text blocks.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/doc-classifier/constants"
	"github.com/joseph-ayodele/doc-classifier/internal/classifier"
)

// ErrEngineNotEnabled is returned when the in-process engine was not compiled in.
// Rebuild with -tags gosseract to enable it.
var ErrEngineNotEnabled = errors.New("gosseract engine not enabled; rebuild with -tags gosseract")

type Config struct {
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "eng"
	TessdataDir   string
	DPI           int // rasterization DPI for PDFs, default 300

	PSM int // e.g., 6 is good for uniform block of text
	OEM int // 1 = LSTM; leave 0 to use default

	HeicConverter    string
	ArtifactCacheDir string

	// Enhance runs grayscale/contrast/sharpen over images before recognition.
	Enhance bool
}

// Engine recognizes the text lines of a single raster image.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, imagePath string) ([]classifier.TextBlock, error)
}

type ExtractionResult struct {
	Text       string
	Blocks     []classifier.TextBlock
	Pages      int
	SourceType string // constants.PDF | constants.IMAGE
	Method     string // "pdf-ocr" | "image-ocr"
	Engine     string
	Language   string
	Duration   time.Duration
	Warnings   []string
	Confidence float32
}

type Extractor struct {
	cfg    Config
	runner Runner
	engine Engine
	logger *slog.Logger
}

type ExtractorOption func(*Extractor)

// WithRunner replaces the command runner used for pdftoppm, converters and tesseract.
func WithRunner(r Runner) ExtractorOption {
	return func(e *Extractor) { e.runner = r }
}

// WithEngine replaces the default tesseract CLI engine.
func WithEngine(engine Engine) ExtractorOption {
	return func(e *Extractor) { e.engine = engine }
}

func NewExtractor(cfg Config, logger *slog.Logger, opts ...ExtractorOption) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.ArtifactCacheDir == "" {
		cfg.ArtifactCacheDir = "./tmp"
	}
	e := &Extractor{cfg: cfg, runner: execRunner{}, logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	if e.engine == nil {
		e.engine = NewTesseractEngine(cfg, e.runner, logger)
	}
	return e
}

// Extract picks a strategy based on file extension.
func (e *Extractor) Extract(ctx context.Context, path string) (ExtractionResult, error) {
	start := time.Now()
	ext := constants.NormalizeExt(filepath.Ext(path))
	e.logger.Debug("starting ocr extraction", "path", path, "engine", e.engine.Name(), "ext", ext)

	var (
		res ExtractionResult
		err error
	)
	switch constants.MapExtToFormat(ext) {
	case constants.PDF:
		res, err = e.extractPDF(ctx, path)
	case constants.IMAGE:
		var cleanup func()
		var warns []string
		if constants.IsHEICExt(ext) {
			hashHex, _ := contentHashFromCtx(ctx)
			out, w, c, cerr := convertHEICtoPNG(ctx, e.runner, e.logger, e.cfg.HeicConverter, path, e.cfg.ArtifactCacheDir, hashHex)
			warns = append(warns, w...)
			if cerr != nil {
				e.logger.Error("heic conversion failed", "path", path, "error", cerr)
				return ExtractionResult{SourceType: constants.IMAGE, Warnings: warns}, cerr
			}
			cleanup = c
			path = out
		}
		if cleanup != nil {
			defer cleanup()
		}
		res, err = e.extractImage(ctx, path)
		res.Warnings = append(res.Warnings, warns...)
	default:
		e.logger.Error("unsupported ocr extension", "extension", ext)
		return ExtractionResult{}, fmt.Errorf("unsupported extension: %q", ext)
	}
	res.Duration = time.Since(start)
	if err == nil {
		e.logger.Info("ocr extraction complete",
			"path", path,
			"method", res.Method,
			"blocks", len(res.Blocks),
			"confidence", res.Confidence,
			"elapsed_ms", res.Duration.Milliseconds(),
		)
	}
	return res, err
}

func (e *Extractor) extractImage(ctx context.Context, path string) (ExtractionResult, error) {
	var warns []string
	if e.cfg.Enhance {
		enhanced, cleanup, err := enhanceImage(path)
		if err != nil {
			warns = append(warns, err.Error())
			e.logger.Warn("image enhancement failed, using original", "path", path, "error", err)
		} else {
			defer cleanup()
			path = enhanced
		}
	}
	return e.recognize(ctx, path, constants.IMAGE, "image-ocr", warns)
}

func (e *Extractor) recognize(ctx context.Context, path, source, method string, warns []string) (ExtractionResult, error) {
	res := ExtractionResult{
		Pages:      1,
		SourceType: source,
		Method:     method,
		Engine:     e.engine.Name(),
		Language:   e.cfg.TesseractLang,
		Warnings:   warns,
	}
	blocks, err := e.engine.Recognize(ctx, path)
	if err != nil {
		return res, fmt.Errorf("%s: %w", e.engine.Name(), err)
	}
	res.Blocks = cleanBlocks(blocks)
	res.Text = JoinText(res.Blocks)
	res.Confidence = meanConfidence(res.Blocks)
	return res, nil
}

// JoinText concatenates block text in reading order, separated by single spaces.
func JoinText(blocks []classifier.TextBlock) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		parts = append(parts, b.Text)
	}
	return strings.Join(parts, " ")
}

// cleanBlocks normalizes block text and drops blocks left empty.
func cleanBlocks(in []classifier.TextBlock) []classifier.TextBlock {
	out := make([]classifier.TextBlock, 0, len(in))
	for _, b := range in {
		b.Text = Normalize(b.Text)
		if b.Text == "" {
			continue
		}
		out = append(out, b)
	}
	return out
}

func meanConfidence(blocks []classifier.TextBlock) float32 {
	if len(blocks) == 0 {
		return 0
	}
	var sum float64
	for _, b := range blocks {
		sum += b.Confidence
	}
	return float32(sum / float64(len(blocks)))
}
