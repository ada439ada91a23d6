package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/doc-classifier/internal/app"
	"github.com/joseph-ayodele/doc-classifier/internal/schema"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newClassifyCmd(c *cli) *cobra.Command {
	var explain bool
	cmd := &cobra.Command{
		Use:   "classify <file>",
		Short: "OCR and classify a local PDF or image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			tx, err := app.NewTextExtractor(c.cfg, c.logger)
			if err != nil {
				return err
			}
			res, err := tx.Extract(ctx, args[0])
			if err != nil {
				return fmt.Errorf("extract %s: %w", args[0], err)
			}

			reg := app.NewRegistry(c.cfg, c.logger)
			if !explain {
				return writeJSON(cmd.OutOrStdout(), reg.Classify(ctx, res.Text, res.Blocks))
			}
			exp, err := reg.Explain(ctx, res.Text, res.Blocks)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"file":        args[0],
				"engine":      res.Engine,
				"ocr_conf":    res.Confidence,
				"text":        res.Text,
				"block_count": len(res.Blocks),
				"explanation": exp,
			})
		},
	}
	cmd.Flags().BoolVar(&explain, "explain", false, "include every classifier's score and structural checks")
	return cmd
}

func newClassifyTextCmd(c *cli) *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "classify-text",
		Short: "Classify a {text, text_blocks} JSON document read from stdin or --input",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r := cmd.InOrStdin()
			if input != "" && input != "-" {
				f, err := os.Open(input)
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				r = f
			}
			data, err := io.ReadAll(r)
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			req, err := schema.DecodeClassifyRequest(data)
			if err != nil {
				return err
			}
			res := app.NewRegistry(c.cfg, c.logger).Classify(cmd.Context(), req.Text, req.TextBlocks)
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "JSON file to read instead of stdin")
	return cmd
}
