package repository

import (
	"context"
	"testing"
	"time"

	"entgo.io/ent/dialect"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/doc-classifier/constants"
	"github.com/joseph-ayodele/doc-classifier/internal/classifier"
	"github.com/joseph-ayodele/doc-classifier/internal/common"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()
	db, err := Open(ctx, Config{DSN: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { Close(db, nil) })
	require.NoError(t, EnsureSchema(ctx, db))
	return db
}

func TestDialectFor(t *testing.T) {
	tests := []struct {
		dsn, wantDialect, wantDSN string
	}{
		{"postgres://u:p@localhost/db", dialect.Postgres, "postgres://u:p@localhost/db"},
		{"postgresql://localhost/db", dialect.Postgres, "postgresql://localhost/db"},
		{"sqlite://./data/tasks.db", dialect.SQLite, "./data/tasks.db"},
		{":memory:", dialect.SQLite, ":memory:"},
		{"tasks.db", dialect.SQLite, "tasks.db"},
	}
	for _, tt := range tests {
		d, dsn := dialectFor(tt.dsn)
		assert.Equal(t, tt.wantDialect, d, tt.dsn)
		assert.Equal(t, tt.wantDSN, dsn, tt.dsn)
	}
}

func TestEnsureSchemaIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, EnsureSchema(context.Background(), db))
	require.NoError(t, HealthCheck(context.Background(), db, time.Second, nil))
}

func TestCreateTasksTable(t *testing.T) {
	pg := createTasksTable(dialect.Postgres)
	assert.Contains(t, pg, "CREATE TABLE IF NOT EXISTS classification_tasks")
	assert.Contains(t, pg, "task_id VARCHAR(36) NOT NULL PRIMARY KEY")
	assert.Contains(t, pg, "created_at TIMESTAMPTZ NOT NULL")

	lite := createTasksTable(dialect.SQLite)
	assert.Contains(t, lite, "updated_at DATETIME NOT NULL")
	assert.NotContains(t, lite, "TIMESTAMPTZ")
	for _, col := range taskColumns {
		assert.Contains(t, lite, col+" ")
	}
}

func TestEnsureSchemaEnforcesPrimaryKey(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewTaskRepository(db, nil)
	id := uuid.New()

	_, err := repo.Create(ctx, id, "local://documents/uploads/a/a.png", "a.png")
	require.NoError(t, err)
	_, err = repo.Create(ctx, id, "local://documents/uploads/a/a.png", "a.png")
	assert.Error(t, err)

	_, err = db.SQL.ExecContext(ctx, "INSERT INTO classification_tasks (task_id) VALUES (?)", uuid.NewString())
	assert.Error(t, err, "NOT NULL columns must be enforced")
}

func TestTaskLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository(openTestDB(t), nil)
	id := uuid.New()

	created, err := repo.Create(ctx, id, "local://documents/uploads/x/invoice.png", "invoice.png")
	require.NoError(t, err)
	assert.Equal(t, constants.TaskStatusPending, created.Status)

	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "invoice.png", got.Filename)
	assert.Equal(t, constants.TaskStatusPending, got.Status)
	assert.Nil(t, got.Result)
	assert.Nil(t, got.Error)
	assert.WithinDuration(t, created.CreatedAt, got.CreatedAt, time.Millisecond)

	require.NoError(t, repo.MarkRunning(ctx, id))
	got, err = repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, constants.TaskStatusRunning, got.Status)

	result := classifier.UnknownResult()
	require.NoError(t, repo.Complete(ctx, id, result))
	got, err = repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, constants.TaskStatusCompleted, got.Status)
	require.NotNil(t, got.Result)
	assert.Equal(t, "unknown", got.Result.FileClass)
	assert.Equal(t, "unknown document type", got.Result.Metadata["reason"])
	assert.Nil(t, got.Error)
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt))
}

func TestTaskFail(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository(openTestDB(t), nil)
	id := uuid.New()
	_, err := repo.Create(ctx, id, "local://documents/uploads/x/a.pdf", "a.pdf")
	require.NoError(t, err)

	require.NoError(t, repo.Fail(ctx, id, "storage error: blob missing"))
	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, constants.TaskStatusFailed, got.Status)
	require.NotNil(t, got.Error)
	assert.Equal(t, "storage error: blob missing", *got.Error)
}

func TestTaskNotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository(openTestDB(t), nil)
	missing := uuid.New()

	_, err := repo.Get(ctx, missing)
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.ErrorIs(t, repo.MarkRunning(ctx, missing), common.ErrNotFound)
	assert.ErrorIs(t, repo.Complete(ctx, missing, classifier.UnknownResult()), common.ErrNotFound)
	assert.ErrorIs(t, repo.Fail(ctx, missing, "x"), common.ErrNotFound)
}

func TestTaskList(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository(openTestDB(t), nil)

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		id := uuid.New()
		ids = append(ids, id)
		_, err := repo.Create(ctx, id, "local://documents/uploads/f", "f.png")
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}
	require.NoError(t, repo.Complete(ctx, ids[0], classifier.UnknownResult()))

	all, err := repo.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID, "newest first")

	done, err := repo.List(ctx, ListFilter{Status: constants.TaskStatusCompleted})
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, ids[0], done[0].ID)

	limited, err := repo.List(ctx, ListFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestDBTimeScan(t *testing.T) {
	want := time.Date(2024, 1, 15, 10, 30, 0, 123000000, time.UTC)
	for _, src := range []any{
		want,
		want.String(),
		want.Format(time.RFC3339Nano),
		[]byte("2024-01-15 10:30:00.123+00:00"),
	} {
		var ts dbTime
		require.NoError(t, ts.Scan(src), "%v", src)
		assert.True(t, want.Equal(ts.Time), "%v -> %v", src, ts.Time)
	}
	var ts dbTime
	assert.Error(t, ts.Scan(42))
}
