// Command docclassify classifies documents locally and administers the task database.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/doc-classifier/internal/app"
	"github.com/joseph-ayodele/doc-classifier/internal/common"
)

var version = "dev"

// cli carries what every subcommand needs once flags are parsed.
type cli struct {
	cfg      *common.Config
	logger   *slog.Logger
	logLevel string
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "docclassify",
		Short:         "Classify bank statements, driver's licenses and invoices",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := common.LoadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = c.logLevel
			}
			c.cfg = cfg
			c.logger = app.NewLogger(cmd.ErrOrStderr(), cfg.LogLevel)
			slog.SetDefault(c.logger)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level (debug, info, warn, error); overrides LOG_LEVEL")

	root.AddCommand(
		newClassifyCmd(c),
		newClassifyTextCmd(c),
		newBatchCmd(c),
		newExportCmd(c),
		newMCPCmd(c),
		newDBHealthCmd(c),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if _, werr := fmt.Fprintln(os.Stderr, "Error:", err); werr != nil {
			fmt.Println("Error:", err)
		}
		os.Exit(1)
	}
}
