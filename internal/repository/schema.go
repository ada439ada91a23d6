package repository

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect"
)

const tasksTable = "classification_tasks"

var taskColumns = []string{"task_id", "file_url", "filename", "status", "result", "error", "created_at", "updated_at"}

// createTasksTable returns the DDL for the task table in the given dialect.
func createTasksTable(d string) string {
	ts := "DATETIME"
	if d == dialect.Postgres {
		ts = "TIMESTAMPTZ"
	}
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	task_id VARCHAR(36) NOT NULL PRIMARY KEY,
	file_url TEXT NOT NULL,
	filename TEXT NOT NULL,
	status VARCHAR(16) NOT NULL,
	result TEXT,
	error TEXT,
	created_at %s NOT NULL,
	updated_at %s NOT NULL
)`, tasksTable, ts, ts)
}

// EnsureSchema creates the classification_tasks table when it does not exist.
func EnsureSchema(ctx context.Context, db *DB) error {
	if _, err := db.SQL.ExecContext(ctx, createTasksTable(db.Dialect)); err != nil {
		return fmt.Errorf("create %s: %w", tasksTable, err)
	}
	return nil
}
