package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/doc-classifier/internal/app"
	"github.com/joseph-ayodele/doc-classifier/internal/repository"
)

func newDBHealthCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "dbhealth",
		Short: "Check database connectivity and report task counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			start := time.Now()
			db, closeDB, err := app.OpenDatabase(ctx, c.cfg, false, c.logger)
			if err != nil {
				return fmt.Errorf("DB health: FAIL (%w)", err)
			}
			defer closeDB()

			tasks, err := db.Tasks.List(ctx, repository.ListFilter{Limit: repository.DefaultListLimit})
			if err != nil {
				return fmt.Errorf("list tasks: %w", err)
			}
			counts := map[string]int{}
			for _, t := range tasks {
				counts[string(t.Status)]++
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"status":       "OK",
				"dialect":      db.DB.Dialect,
				"elapsed_ms":   time.Since(start).Milliseconds(),
				"recent_tasks": counts,
			})
		},
	}
}
