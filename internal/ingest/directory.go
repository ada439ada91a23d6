package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileResult is the per-file outcome of a directory submission.
type FileResult struct {
	Path         string
	TaskID       string
	Deduplicated bool
	HashHex      string
	Err          string
}

// DirStats summarizes a directory submission.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// SubmitDirectory walks root and submits every supported file. Files whose
// content was already submitted earlier in the same walk are reported as
// deduplicated and not queued again.
func (s *Service) SubmitDirectory(ctx context.Context, root string, skipHidden bool) ([]FileResult, DirStats, error) {
	var stats DirStats
	if strings.TrimSpace(root) == "" {
		return nil, stats, fmt.Errorf("root path is required")
	}

	seen := map[string]string{} // sha256 -> task id
	var results []FileResult

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, FileResult{Path: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		sum, err := hashFile(path)
		if err != nil {
			results = append(results, FileResult{Path: path, Err: err.Error()})
			stats.Failed++
			return nil
		}
		if id, ok := seen[sum]; ok {
			results = append(results, FileResult{Path: path, TaskID: id, Deduplicated: true, HashHex: sum})
			stats.Succeeded++
			stats.Deduplicated++
			return nil
		}

		task, err := s.SubmitPath(ctx, path)
		if err != nil {
			s.logger.Warn("submit file failed", "path", path, "error", err)
			results = append(results, FileResult{Path: path, HashHex: sum, Err: err.Error()})
			stats.Failed++
			return nil
		}
		seen[sum] = task.ID.String()
		results = append(results, FileResult{Path: path, TaskID: task.ID.String(), HashHex: sum})
		stats.Succeeded++
		return nil
	})
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}

	s.logger.Info("directory submitted", "root", root,
		"scanned", stats.Scanned, "matched", stats.Matched, "succeeded", stats.Succeeded,
		"deduplicated", stats.Deduplicated, "failed", stats.Failed)
	return results, stats, nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
