package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/doc-classifier/constants"
	"github.com/joseph-ayodele/doc-classifier/internal/app"
	"github.com/joseph-ayodele/doc-classifier/internal/export"
	"github.com/joseph-ayodele/doc-classifier/internal/repository"
)

func newExportCmd(c *cli) *cobra.Command {
	var (
		out    string
		status string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export classification tasks to an XLSX workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter := repository.ListFilter{Limit: limit}
			if status != "" {
				st := constants.TaskStatus(strings.ToUpper(status))
				if !st.Valid() {
					return fmt.Errorf("unknown status %q", status)
				}
				filter.Status = st
			}

			ctx := cmd.Context()
			db, closeDB, err := app.OpenDatabase(ctx, c.cfg, false, c.logger)
			if err != nil {
				return err
			}
			defer closeDB()

			xlsx, err := export.NewService(db.Tasks, c.logger).ExportTasksXLSX(ctx, filter)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, xlsx, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", out, len(xlsx))
			return err
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "tasks.xlsx", "output XLSX path")
	cmd.Flags().StringVar(&status, "status", "", "only export tasks in this status")
	cmd.Flags().IntVar(&limit, "limit", repository.DefaultListLimit, "maximum number of tasks")
	return cmd
}
