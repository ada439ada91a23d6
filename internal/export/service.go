// Package export renders classification tasks as spreadsheets.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/doc-classifier/internal/entity"
	"github.com/joseph-ayodele/doc-classifier/internal/repository"
)

const sheet = "Tasks"

// TaskLister is the part of the task repository exports need.
type TaskLister interface {
	List(ctx context.Context, filter repository.ListFilter) ([]*entity.Task, error)
}

// Service produces XLSX bytes for task exports.
type Service struct {
	tasks  TaskLister
	logger *slog.Logger
}

func NewService(tasks TaskLister, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{tasks: tasks, logger: logger}
}

var headers = []string{
	"Task ID",
	"Filename",
	"Status",
	"Document Class",
	"Confidence",
	"Valid",
	"Detected Fields",
	"Missing Fields",
	"Error",
	"Created At",
	"Updated At",
}

// ExportTasksXLSX returns a workbook with one row per task matching filter,
// newest first.
func (s *Service) ExportTasksXLSX(ctx context.Context, filter repository.ListFilter) ([]byte, error) {
	start := time.Now()

	tasks, err := s.tasks.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if _, err := f.NewSheet(sheet); err != nil {
		return nil, err
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}
	idx, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(idx)

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, t := range tasks {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, t.ID.String())
		write(2, t.Filename)
		write(3, string(t.Status))
		errMsg := ""
		if t.Error != nil {
			errMsg = *t.Error
		}
		if r := t.Result; r != nil {
			write(4, r.FileClass)
			write(5, r.Confidence)
			write(6, r.IsValid)
			write(7, formatFields(r.DetectedFields))
			write(8, strings.Join(r.MissingFields, ", "))
			if errMsg == "" {
				errMsg = r.Error
			}
		}
		write(9, truncate(errMsg, 140))
		write(10, t.CreatedAt.UTC().Format(time.RFC3339))
		write(11, t.UpdatedAt.UTC().Format(time.RFC3339))
	}

	_ = f.SetColWidth(sheet, "A", "A", 38) // id
	_ = f.SetColWidth(sheet, "B", "B", 28) // filename
	_ = f.SetColWidth(sheet, "C", "F", 14)
	_ = f.SetColWidth(sheet, "G", "G", 60) // fields
	_ = f.SetColWidth(sheet, "H", "I", 32)
	_ = f.SetColWidth(sheet, "J", "K", 22) // timestamps

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(tasks),
		"status", string(filter.Status),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// formatFields renders detected fields as "name=value" pairs sorted by name.
func formatFields(fields map[string]string) string {
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, k := range names {
		parts = append(parts, k+"="+fields[k])
	}
	return strings.Join(parts, "; ")
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
