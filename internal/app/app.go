// Package app wires configuration into the components shared by the binaries.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/doc-classifier/internal/async"
	"github.com/joseph-ayodele/doc-classifier/internal/classifier"
	"github.com/joseph-ayodele/doc-classifier/internal/common"
	"github.com/joseph-ayodele/doc-classifier/internal/extract"
	"github.com/joseph-ayodele/doc-classifier/internal/ingest"
	"github.com/joseph-ayodele/doc-classifier/internal/ocr"
	"github.com/joseph-ayodele/doc-classifier/internal/pipeline"
	"github.com/joseph-ayodele/doc-classifier/internal/repository"
	"github.com/joseph-ayodele/doc-classifier/internal/storage"
)

// NewLogger returns a JSON logger at the named level ("debug", "info", "warn", "error").
func NewLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// Database is an open, migrated task database.
type Database struct {
	DB    *repository.DB
	Tasks repository.TaskRepository
}

// Ping checks connectivity within a short deadline.
func (d *Database) Ping(ctx context.Context) error {
	return repository.HealthCheck(ctx, d.DB, 2*time.Second, nil)
}

// OpenDatabase opens the configured database, or a private in-memory SQLite
// one when inmem is set, and ensures the task table exists.
func OpenDatabase(ctx context.Context, cfg *common.Config, inmem bool, logger *slog.Logger) (*Database, func(), error) {
	dsn := cfg.Database.DSN
	if inmem {
		dsn = ":memory:"
	}
	if dsn == "" {
		return nil, nil, common.NewAppError("CONFIG_ERROR", "DB_URL is required", common.ErrInvalidInput)
	}

	db, err := repository.Open(ctx, repository.Config{
		DSN:              dsn,
		MaxConns:         cfg.Database.MaxConns,
		MinConns:         cfg.Database.MinConns,
		MaxConnLifetime:  cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
		DialTimeout:      cfg.Database.DialTimeout,
		StatementTimeout: cfg.Database.StatementTimeout,
	}, logger)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() { repository.Close(db, logger) }

	if err := repository.HealthCheck(ctx, db, 5*time.Second, logger); err != nil {
		cleanup()
		return nil, nil, err
	}
	if err := repository.EnsureSchema(ctx, db); err != nil {
		cleanup()
		return nil, nil, err
	}
	return &Database{DB: db, Tasks: repository.NewTaskRepository(db, logger)}, cleanup, nil
}

// NewEngine selects the OCR engine named in cfg.
func NewEngine(cfg *common.Config, logger *slog.Logger) (ocr.Engine, error) {
	oc := ocrConfig(cfg)
	switch cfg.OCR.Engine {
	case "", common.EngineTesseract:
		return ocr.NewTesseractEngine(oc, nil, logger), nil
	case common.EngineAzure:
		return ocr.NewAzureEngine(cfg.OCR.AzureEndpoint, cfg.OCR.AzureKey, logger), nil
	case common.EngineGosseract:
		g, err := ocr.NewGosseractEngine(oc, logger)
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, fmt.Errorf("unknown OCR engine %q", cfg.OCR.Engine)
	}
}

func ocrConfig(cfg *common.Config) ocr.Config {
	return ocr.Config{
		TesseractLang:    cfg.OCR.TesseractLang,
		TessdataDir:      cfg.OCR.TessdataDir,
		DPI:              cfg.OCR.DPI,
		HeicConverter:    cfg.OCR.HeicConverter,
		ArtifactCacheDir: cfg.OCR.ArtifactCacheDir,
		Enhance:          cfg.OCR.Enhance,
	}
}

// NewTextExtractor builds the OCR-backed text extractor.
func NewTextExtractor(cfg *common.Config, logger *slog.Logger) (*extract.OCRAdapter, error) {
	engine, err := NewEngine(cfg, logger)
	if err != nil {
		return nil, err
	}
	ex := ocr.NewExtractor(ocrConfig(cfg), logger, ocr.WithEngine(engine))
	return extract.NewOCRAdapter(ex, logger), nil
}

// NewRegistry builds the default classifier registry.
func NewRegistry(cfg *common.Config, logger *slog.Logger) *classifier.Registry {
	opts := []classifier.Option{classifier.WithLogger(logger)}
	if cfg.Classifier.ParallelScoring {
		opts = append(opts, classifier.WithParallelScoring())
	}
	return classifier.NewDefaultRegistry(opts...)
}

// Service is the fully wired asynchronous classification service.
type Service struct {
	Registry  *classifier.Registry
	Store     *storage.LocalStore
	Processor *pipeline.Processor
	Queue     *async.ProcessorQueue
	Ingest    *ingest.Service
}

// NewService wires storage, OCR, the classifier, the pipeline and the worker
// pool around an open database.
func NewService(cfg *common.Config, db *Database, logger *slog.Logger) (*Service, error) {
	store, err := storage.NewLocalStore(cfg.Storage.Dir, cfg.Storage.Bucket, logger)
	if err != nil {
		return nil, err
	}
	tx, err := NewTextExtractor(cfg, logger)
	if err != nil {
		return nil, err
	}
	reg := NewRegistry(cfg, logger)

	proc := pipeline.NewProcessor(logger, db.Tasks,
		pipeline.NewExtractStage(store, tx, logger),
		pipeline.NewClassifyStage(reg, logger))

	queue := async.NewProcessorQueue(proc, logger,
		async.WithWorkers(cfg.Queue.Workers),
		async.WithQueueSize(cfg.Queue.Size),
		async.WithProcessTimeout(cfg.Queue.ProcessTimeout),
		async.WithTaskFailer(db.Tasks),
	)

	return &Service{
		Registry:  reg,
		Store:     store,
		Processor: proc,
		Queue:     queue,
		Ingest:    ingest.NewService(store, db.Tasks, queue, logger),
	}, nil
}
