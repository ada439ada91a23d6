package app

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/doc-classifier/internal/common"
	"github.com/joseph-ayodele/doc-classifier/internal/ocr"
)

func testConfig(t *testing.T) *common.Config {
	t.Helper()
	return &common.Config{
		Storage:    common.StorageConfig{Dir: t.TempDir(), Bucket: "documents"},
		OCR:        common.OCRConfig{Engine: common.EngineTesseract, ArtifactCacheDir: t.TempDir()},
		Queue:      common.QueueConfig{Workers: 1, Size: 4},
		Classifier: common.ClassifierConfig{ParallelScoring: true},
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "warn")

	logger.Info("hidden")
	logger.Warn("shown", "key", "value")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"key":"value"`)
	assert.True(t, logger.Enabled(context.Background(), slog.LevelWarn))
	assert.False(t, NewLogger(&buf, "bogus").Enabled(context.Background(), slog.LevelDebug))
}

func TestNewEngine(t *testing.T) {
	cfg := testConfig(t)

	engine, err := NewEngine(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "tesseract", engine.Name())

	cfg.OCR.Engine = common.EngineAzure
	cfg.OCR.AzureEndpoint = "https://example.cognitiveservices.azure.com"
	cfg.OCR.AzureKey = "key"
	engine, err = NewEngine(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "azure", engine.Name())

	cfg.OCR.Engine = "paper"
	_, err = NewEngine(cfg, nil)
	assert.Error(t, err)

	if !ocr.GosseractEnabled {
		cfg.OCR.Engine = common.EngineGosseract
		_, err = NewEngine(cfg, nil)
		assert.ErrorIs(t, err, ocr.ErrEngineNotEnabled)
	}
}

func TestOpenDatabaseAndService(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	db, cleanup, err := OpenDatabase(ctx, cfg, true, nil)
	require.NoError(t, err)
	defer cleanup()
	require.NoError(t, db.Ping(ctx))

	svc, err := NewService(cfg, db, nil)
	require.NoError(t, err)
	defer svc.Queue.Shutdown(ctx)

	assert.Equal(t, []string{"drivers_license", "bank_statement", "invoice"}, svc.Registry.Types())
	require.NoError(t, svc.Store.Ping(ctx))

	_, err = svc.Ingest.Submit(ctx, "notes.txt", strings.NewReader("x"))
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestOpenDatabaseRequiresDSN(t *testing.T) {
	_, _, err := OpenDatabase(context.Background(), testConfig(t), false, nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}
