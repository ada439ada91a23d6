package pipeline_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/doc-classifier/constants"
	"github.com/joseph-ayodele/doc-classifier/internal/classifier"
	"github.com/joseph-ayodele/doc-classifier/internal/common"
	"github.com/joseph-ayodele/doc-classifier/internal/extract"
	"github.com/joseph-ayodele/doc-classifier/internal/pipeline"
	"github.com/joseph-ayodele/doc-classifier/internal/repository"
	"github.com/joseph-ayodele/doc-classifier/internal/storage"
)

type fakeExtractor struct {
	res   extract.TextExtractionResult
	err   error
	hang  bool
	paths []string
}

func (f *fakeExtractor) Extract(ctx context.Context, path string) (extract.TextExtractionResult, error) {
	f.paths = append(f.paths, path)
	if f.hang {
		<-ctx.Done()
		return extract.TextExtractionResult{}, ctx.Err()
	}
	return f.res, f.err
}

type env struct {
	tasks repository.TaskRepository
	store *storage.LocalStore
	ex    *fakeExtractor
	proc  *pipeline.Processor
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	db, err := repository.Open(ctx, repository.Config{DSN: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { repository.Close(db, nil) })
	require.NoError(t, repository.EnsureSchema(ctx, db))

	store, err := storage.NewLocalStore(t.TempDir(), "documents", nil)
	require.NoError(t, err)

	e := &env{tasks: repository.NewTaskRepository(db, nil), store: store, ex: &fakeExtractor{}}
	e.proc = pipeline.NewProcessor(nil, e.tasks,
		pipeline.NewExtractStage(store, e.ex, nil),
		pipeline.NewClassifyStage(classifier.NewDefaultRegistry(), nil))
	return e
}

func (e *env) submit(t *testing.T, filename string, upload bool) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	id := uuid.New()
	key := storage.UploadKey(id.String(), filename)
	url := "local://documents/" + key
	if upload {
		var err error
		url, err = e.store.Put(ctx, key, strings.NewReader("fake image"))
		require.NoError(t, err)
	}
	_, err := e.tasks.Create(ctx, id, url, filename)
	require.NoError(t, err)
	return id
}

func invoiceExtraction() extract.TextExtractionResult {
	blocks := []classifier.TextBlock{
		classifier.Rect("INVOICE", 40, 20, 200, 30, 0.95),
		classifier.Rect("INVOICE NUMBER: 1234", 40, 60, 300, 20, 0.95),
		classifier.Rect("BILL TO: JOHN DOE", 40, 100, 300, 20, 0.95),
		classifier.Rect("TOTAL $100.00", 40, 140, 300, 20, 0.95),
	}
	texts := make([]string, len(blocks))
	for i, b := range blocks {
		texts[i] = b.Text
	}
	return extract.TextExtractionResult{Text: strings.Join(texts, "\n"), Blocks: blocks}
}

func TestProcessTaskCompletes(t *testing.T) {
	e := newEnv(t)
	e.ex.res = invoiceExtraction()
	id := e.submit(t, "invoice.png", true)

	require.NoError(t, e.proc.ProcessTask(context.Background(), id))

	task, err := e.tasks.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, constants.TaskStatusCompleted, task.Status)
	require.NotNil(t, task.Result)
	assert.Equal(t, "invoice", task.Result.FileClass)
	assert.Empty(t, task.Result.Error)
	assert.Nil(t, task.Error)

	require.Len(t, e.ex.paths, 1)
	b, err := os.ReadFile(e.ex.paths[0])
	require.NoError(t, err)
	assert.Equal(t, "fake image", string(b))
}

func TestProcessTaskMissingBlobFails(t *testing.T) {
	e := newEnv(t)
	id := e.submit(t, "lost.pdf", false)

	err := e.proc.ProcessTask(context.Background(), id)
	require.Error(t, err)
	var se *pipeline.StorageError
	assert.ErrorAs(t, err, &se)

	task, gerr := e.tasks.Get(context.Background(), id)
	require.NoError(t, gerr)
	assert.Equal(t, constants.TaskStatusFailed, task.Status)
	require.NotNil(t, task.Error)
	assert.Contains(t, *task.Error, "storage error")
	assert.Empty(t, e.ex.paths)
}

func TestProcessTaskExtractionFailureCompletesWithErrorResult(t *testing.T) {
	e := newEnv(t)
	e.ex.err = errors.New("tesseract: exit status 1")
	id := e.submit(t, "blurry.jpg", true)

	require.NoError(t, e.proc.ProcessTask(context.Background(), id))

	task, err := e.tasks.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, constants.TaskStatusCompleted, task.Status)
	require.NotNil(t, task.Result)
	assert.Equal(t, "unknown", task.Result.FileClass)
	assert.Contains(t, task.Result.Error, "tesseract")
	assert.False(t, task.Result.IsValid)
}

func TestProcessTaskTimeoutMarksFailed(t *testing.T) {
	e := newEnv(t)
	e.ex.hang = true
	id := e.submit(t, "slow.png", true)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := e.proc.ProcessTask(ctx, id)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	task, gerr := e.tasks.Get(context.Background(), id)
	require.NoError(t, gerr)
	assert.Equal(t, constants.TaskStatusFailed, task.Status)
	require.NotNil(t, task.Error)
	assert.Contains(t, *task.Error, "deadline exceeded")
}

func TestProcessTaskCompletesAfterCancel(t *testing.T) {
	e := newEnv(t)
	e.ex.res = invoiceExtraction()
	id := e.submit(t, "invoice.png", true)

	ctx, cancel := context.WithCancel(context.Background())
	e.proc.Classify = pipeline.NewClassifyStage(cancelOnClassify{cancel: cancel}, nil)
	require.NoError(t, e.proc.ProcessTask(ctx, id))

	task, err := e.tasks.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, constants.TaskStatusCompleted, task.Status)
	require.NotNil(t, task.Result)
	assert.Equal(t, "invoice", task.Result.FileClass)
}

// cancelOnClassify cancels the job context while classifying, so only the
// terminal write is left to run.
type cancelOnClassify struct {
	cancel context.CancelFunc
}

func (c cancelOnClassify) Classify(ctx context.Context, text string, blocks []classifier.TextBlock) classifier.ClassificationResult {
	c.cancel()
	return classifier.NewDefaultRegistry().Classify(context.Background(), text, blocks)
}

func TestProcessTaskUnknownTask(t *testing.T) {
	e := newEnv(t)
	err := e.proc.ProcessTask(context.Background(), uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestProcessTaskSkipsFinishedTasks(t *testing.T) {
	e := newEnv(t)
	e.ex.res = invoiceExtraction()
	id := e.submit(t, "invoice.png", true)
	require.NoError(t, e.proc.ProcessTask(context.Background(), id))
	require.NoError(t, e.proc.ProcessTask(context.Background(), id))
	assert.Len(t, e.ex.paths, 1)
}

func TestClassifyFile(t *testing.T) {
	e := newEnv(t)
	e.ex.res = invoiceExtraction()
	res, err := e.proc.ClassifyFile(context.Background(), "/tmp/whatever.png")
	require.NoError(t, err)
	assert.Equal(t, "invoice", res.FileClass)

	e.ex.err = errors.New("boom")
	res, err = e.proc.ClassifyFile(context.Background(), "/tmp/whatever.png")
	require.Error(t, err)
	assert.Equal(t, "boom", res.Error)
}
