package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/doc-classifier/internal/app"
	"github.com/joseph-ayodele/doc-classifier/internal/export"
	"github.com/joseph-ayodele/doc-classifier/internal/repository"
)

func newBatchCmd(c *cli) *cobra.Command {
	var (
		inmem      bool
		out        string
		skipHidden bool
	)
	cmd := &cobra.Command{
		Use:   "batch <dir>",
		Short: "Classify every supported file under a directory and export the results to XLSX",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			dir := args[0]
			if out == "" {
				out = filepath.Join(filepath.Dir(filepath.Clean(dir)), "classifications.xlsx")
			}

			cfg := *c.cfg
			if inmem {
				// uploads only live as long as the in-memory task table
				tmp, err := os.MkdirTemp("", "docclassify-batch-*")
				if err != nil {
					return err
				}
				defer func() { _ = os.RemoveAll(tmp) }()
				cfg.Storage.Dir = tmp
			}

			db, closeDB, err := app.OpenDatabase(ctx, &cfg, inmem, c.logger)
			if err != nil {
				return err
			}
			defer closeDB()

			svc, err := app.NewService(&cfg, db, c.logger)
			if err != nil {
				return err
			}

			results, stats, err := svc.Ingest.SubmitDirectory(ctx, dir, skipHidden)
			// drain whatever was queued even when the walk stopped early
			svc.Queue.Shutdown(ctx)
			if err != nil {
				return err
			}

			limit := len(results)
			if limit == 0 {
				limit = 1
			}
			xlsx, err := export.NewService(db.Tasks, c.logger).ExportTasksXLSX(ctx, repository.ListFilter{Limit: limit})
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, xlsx, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}

			failed := make([]map[string]string, 0)
			for _, r := range results {
				if r.Err != "" {
					failed = append(failed, map[string]string{"path": r.Path, "error": r.Err})
				}
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"scanned":      stats.Scanned,
				"matched":      stats.Matched,
				"succeeded":    stats.Succeeded,
				"deduplicated": stats.Deduplicated,
				"failed":       stats.Failed,
				"failures":     failed,
				"output":       out,
			})
		},
	}
	cmd.Flags().BoolVar(&inmem, "inmem", false, "use an in-memory SQLite database")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output XLSX path (default: classifications.xlsx next to <dir>)")
	cmd.Flags().BoolVar(&skipHidden, "skip-hidden", true, "skip hidden files and directories")
	return cmd
}
