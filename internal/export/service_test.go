package export_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/doc-classifier/constants"
	"github.com/joseph-ayodele/doc-classifier/internal/classifier"
	"github.com/joseph-ayodele/doc-classifier/internal/entity"
	"github.com/joseph-ayodele/doc-classifier/internal/export"
	"github.com/joseph-ayodele/doc-classifier/internal/repository"
)

type listerFunc func(context.Context, repository.ListFilter) ([]*entity.Task, error)

func (f listerFunc) List(ctx context.Context, filter repository.ListFilter) ([]*entity.Task, error) {
	return f(ctx, filter)
}

func TestExportTasksXLSX(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	failMsg := "storage error: blob missing"
	tasks := []*entity.Task{
		{
			ID:       uuid.MustParse("11111111-1111-1111-1111-111111111111"),
			Filename: "invoice.png",
			Status:   constants.TaskStatusCompleted,
			Result: &classifier.ClassificationResult{
				FileClass:      "invoice",
				Confidence:     0.9,
				IsValid:        true,
				DetectedFields: map[string]string{"vendor": "ACME", "amount": "TOTAL $5.00"},
				MissingFields:  []string{"date"},
			},
			CreatedAt: ts,
			UpdatedAt: ts,
		},
		{
			ID:        uuid.MustParse("22222222-2222-2222-2222-222222222222"),
			Filename:  "lost.pdf",
			Status:    constants.TaskStatusFailed,
			Error:     &failMsg,
			CreatedAt: ts,
			UpdatedAt: ts,
		},
	}
	var gotFilter repository.ListFilter
	svc := export.NewService(listerFunc(func(_ context.Context, f repository.ListFilter) ([]*entity.Task, error) {
		gotFilter = f
		return tasks, nil
	}), nil)

	b, err := svc.ExportTasksXLSX(context.Background(), repository.ListFilter{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 10, gotFilter.Limit)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Tasks"}, f.GetSheetList())
	rows, err := f.GetRows("Tasks")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "Task ID", rows[0][0])
	assert.Equal(t, "Updated At", rows[0][10])

	assert.Equal(t, "11111111-1111-1111-1111-111111111111", rows[1][0])
	assert.Equal(t, "invoice", rows[1][3])
	assert.Equal(t, "amount=TOTAL $5.00; vendor=ACME", rows[1][6])
	assert.Equal(t, "date", rows[1][7])
	assert.Equal(t, "2024-03-01T12:00:00Z", rows[1][9])

	assert.Equal(t, "FAILED", rows[2][2])
	assert.Equal(t, failMsg, rows[2][8])
}

func TestExportTasksXLSXQueryError(t *testing.T) {
	svc := export.NewService(listerFunc(func(context.Context, repository.ListFilter) ([]*entity.Task, error) {
		return nil, errors.New("db down")
	}), nil)
	_, err := svc.ExportTasksXLSX(context.Background(), repository.ListFilter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}
