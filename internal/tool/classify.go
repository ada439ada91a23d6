// Package tool exposes the classifier as MCP tools.
package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/joseph-ayodele/doc-classifier/internal/classifier"
	"github.com/joseph-ayodele/doc-classifier/internal/schema"
)

const (
	ClassifyDocumentName  = "classify_document"
	ListDocumentTypesName = "list_document_types"
)

// MetadataClassifyDocument describes the classify_document tool.
var MetadataClassifyDocument = &mcp.Tool{
	Name: ClassifyDocumentName,
	Description: "Classify OCR output as a bank statement, driver's license or invoice. " +
		"Pass the recognised text and, when available, the text blocks with their bounding boxes " +
		"([[x,y] x4] in top-left, top-right, bottom-right, bottom-left order). " +
		"Returns the document class, a confidence between 0 and 1, whether the document passed " +
		"structural validation, and the fields that were found or missing.",
	InputSchema: inputSchema(),
}

// MetadataListDocumentTypes describes the list_document_types tool.
var MetadataListDocumentTypes = &mcp.Tool{
	Name:        ListDocumentTypesName,
	Description: "List the document types the classifier can recognise, in registration order.",
	InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
}

// inputSchema is the classify request schema without its dialect marker.
func inputSchema() map[string]any {
	s := schema.ClassifyRequest()
	delete(s, "$schema")
	return s
}

// Register adds the classifier tools to srv.
func Register(srv *mcp.Server, reg *classifier.Registry, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	srv.AddTool(MetadataClassifyDocument, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		body, err := schema.DecodeClassifyRequest(req.Params.Arguments)
		if err != nil {
			logger.Warn("classify_document rejected", "error", err)
			return errorResult(fmt.Errorf("invalid arguments: %w", err)), nil
		}
		res := reg.Classify(ctx, body.Text, body.TextBlocks)
		if err := schema.ValidateResult(res); err != nil {
			logger.Error("classify_document produced an invalid result", "error", err)
			return errorResult(err), nil
		}
		return jsonResult(res)
	})

	srv.AddTool(MetadataListDocumentTypes, func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(map[string]any{"document_types": reg.Types()})
	})
}

// NewServer returns an MCP server with the classifier tools registered.
func NewServer(reg *classifier.Registry, version string, logger *slog.Logger) *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: "doc-classifier", Version: version}, nil)
	Register(srv, reg, logger)
	return srv
}

// ServeStdio serves srv over stdin/stdout until ctx ends or the client disconnects.
func ServeStdio(ctx context.Context, srv *mcp.Server) error {
	return srv.Run(ctx, &mcp.StdioTransport{})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return errorResult(fmt.Errorf("marshal: %w", err)), nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil
}

func errorResult(err error) *mcp.CallToolResult {
	var res mcp.CallToolResult
	res.SetError(err)
	return &res
}
