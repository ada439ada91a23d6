package main

import (
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/doc-classifier/internal/app"
	"github.com/joseph-ayodele/doc-classifier/internal/tool"
)

func newMCPCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the classifier as MCP tools over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			srv := tool.NewServer(app.NewRegistry(c.cfg, c.logger), version, c.logger)
			c.logger.Info("serving MCP over stdio")
			return tool.ServeStdio(cmd.Context(), srv)
		},
	}
}
