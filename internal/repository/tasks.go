package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/doc-classifier/constants"
	"github.com/joseph-ayodele/doc-classifier/internal/classifier"
	"github.com/joseph-ayodele/doc-classifier/internal/common"
	"github.com/joseph-ayodele/doc-classifier/internal/entity"
)

// DefaultListLimit caps List when the filter leaves Limit unset.
const DefaultListLimit = 100

type TaskRepository interface {
	Create(ctx context.Context, id uuid.UUID, fileURL, filename string) (*entity.Task, error)
	MarkRunning(ctx context.Context, id uuid.UUID) error
	Complete(ctx context.Context, id uuid.UUID, result classifier.ClassificationResult) error
	Fail(ctx context.Context, id uuid.UUID, message string) error
	Get(ctx context.Context, id uuid.UUID) (*entity.Task, error)
	List(ctx context.Context, filter ListFilter) ([]*entity.Task, error)
}

type ListFilter struct {
	Status constants.TaskStatus // empty = any
	Limit  int
}

type taskRepo struct {
	db  *DB
	log *slog.Logger
}

func NewTaskRepository(db *DB, log *slog.Logger) TaskRepository {
	if log == nil {
		log = slog.Default()
	}
	return &taskRepo{db: db, log: log}
}

func now() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }

func (r *taskRepo) Create(ctx context.Context, id uuid.UUID, fileURL, filename string) (*entity.Task, error) {
	ts := now()
	query, args := entsql.Dialect(r.db.Dialect).
		Insert(tasksTable).
		Columns("task_id", "file_url", "filename", "status", "created_at", "updated_at").
		Values(id.String(), fileURL, filename, string(constants.TaskStatusPending), ts, ts).
		Query()
	if _, err := r.db.SQL.ExecContext(ctx, query, args...); err != nil {
		r.log.Error("task create failed", "task_id", id, "error", err)
		return nil, dbErr("create task", err)
	}
	r.log.Info("task created", "task_id", id, "filename", filename)
	return &entity.Task{
		ID:        id,
		FileURL:   fileURL,
		Filename:  filename,
		Status:    constants.TaskStatusPending,
		CreatedAt: ts,
		UpdatedAt: ts,
	}, nil
}

func (r *taskRepo) MarkRunning(ctx context.Context, id uuid.UUID) error {
	return r.update(ctx, id, constants.TaskStatusRunning, func(u *entsql.UpdateBuilder) {})
}

func (r *taskRepo) Complete(ctx context.Context, id uuid.UUID, result classifier.ClassificationResult) error {
	b, err := json.Marshal(result)
	if err != nil {
		return common.NewAppError("ENCODE_ERROR", "marshal result", err)
	}
	return r.update(ctx, id, constants.TaskStatusCompleted, func(u *entsql.UpdateBuilder) {
		u.Set("result", string(b)).SetNull("error")
	})
}

func (r *taskRepo) Fail(ctx context.Context, id uuid.UUID, message string) error {
	return r.update(ctx, id, constants.TaskStatusFailed, func(u *entsql.UpdateBuilder) {
		u.Set("error", message)
	})
}

func (r *taskRepo) update(ctx context.Context, id uuid.UUID, status constants.TaskStatus, set func(*entsql.UpdateBuilder)) error {
	u := entsql.Dialect(r.db.Dialect).
		Update(tasksTable).
		Set("status", string(status)).
		Set("updated_at", now())
	set(u)
	query, args := u.Where(entsql.EQ("task_id", id.String())).Query()

	res, err := r.db.SQL.ExecContext(ctx, query, args...)
	if err != nil {
		r.log.Error("task update failed", "task_id", id, "status", status, "error", err)
		return dbErr("update task", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.NewAppError("NOT_FOUND", fmt.Sprintf("task %s", id), common.ErrNotFound)
	}
	r.log.Info("task status updated", "task_id", id, "status", status)
	return nil
}

func (r *taskRepo) Get(ctx context.Context, id uuid.UUID) (*entity.Task, error) {
	query, args := entsql.Dialect(r.db.Dialect).
		Select(taskColumns...).
		From(entsql.Table(tasksTable)).
		Where(entsql.EQ("task_id", id.String())).
		Query()

	t, err := scanTask(r.db.SQL.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NewAppError("NOT_FOUND", fmt.Sprintf("task %s", id), common.ErrNotFound)
	}
	if err != nil {
		return nil, dbErr("get task", err)
	}
	return t, nil
}

func (r *taskRepo) List(ctx context.Context, filter ListFilter) ([]*entity.Task, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	sel := entsql.Dialect(r.db.Dialect).
		Select(taskColumns...).
		From(entsql.Table(tasksTable))
	if filter.Status != "" {
		sel.Where(entsql.EQ("status", string(filter.Status)))
	}
	query, args := sel.OrderBy(entsql.Desc("created_at"), "task_id").Limit(limit).Query()

	rows, err := r.db.SQL.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbErr("list tasks", err)
	}
	defer rows.Close()

	var out []*entity.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, dbErr("scan task", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("list tasks", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*entity.Task, error) {
	var (
		id, status       string
		t                entity.Task
		result, errMsg   sql.NullString
		created, updated dbTime
	)
	if err := row.Scan(&id, &t.FileURL, &t.Filename, &status, &result, &errMsg, &created, &updated); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("task id %q: %w", id, err)
	}
	t.ID = parsed
	t.Status = constants.TaskStatus(status)
	t.CreatedAt = created.Time
	t.UpdatedAt = updated.Time
	if errMsg.Valid {
		t.Error = &errMsg.String
	}
	if result.Valid && result.String != "" {
		var res classifier.ClassificationResult
		if err := json.Unmarshal([]byte(result.String), &res); err != nil {
			return nil, fmt.Errorf("decode result of task %s: %w", id, err)
		}
		t.Result = &res
	}
	return &t, nil
}

// dbTime scans timestamps from drivers that return time.Time as well as from
// SQLite, which may hand back text.
type dbTime struct{ time.Time }

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
}

func (t *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		t.Time = v.UTC()
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	case nil:
		t.Time = time.Time{}
		return nil
	}
	return fmt.Errorf("unsupported timestamp type %T", src)
}

func (t *dbTime) parse(s string) error {
	for _, layout := range timeLayouts {
		if v, err := time.Parse(layout, s); err == nil {
			t.Time = v.UTC()
			return nil
		}
	}
	return fmt.Errorf("unparsable timestamp %q", s)
}

func dbErr(msg string, err error) error {
	return common.NewAppError("DB_ERROR", msg, fmt.Errorf("%w: %v", common.ErrDatabase, err))
}
