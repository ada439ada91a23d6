package tool_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/doc-classifier/internal/classifier"
	"github.com/joseph-ayodele/doc-classifier/internal/tool"
)

func session(t *testing.T) *mcp.ClientSession {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	srv := tool.NewServer(classifier.NewDefaultRegistry(), "test", nil)
	serverT, clientT := mcp.NewInMemoryTransports()
	go func() { _ = srv.Run(ctx, serverT) }()

	client := mcp.NewClient(&mcp.Implementation{Name: "doc-classifier-test", Version: "0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientT, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func call(t *testing.T, cs *mcp.ClientSession, name string, args any) *mcp.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	return res
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	tc, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "expected TextContent")
	return tc.Text
}

func TestClassifyDocumentTool(t *testing.T) {
	cs := session(t)

	tests := []struct {
		name      string
		args      map[string]any
		wantClass string
	}{
		{
			name:      "bank statement text",
			args:      map[string]any{"text": "ACCOUNT STATEMENT OPENING BALANCE CLOSING BALANCE"},
			wantClass: "bank_statement",
		},
		{
			name: "with blocks",
			args: map[string]any{
				"text": "hello world",
				"text_blocks": []any{
					map[string]any{"box": [][]float64{{0, 0}, {5, 0}, {5, 5}, {0, 5}}, "text": "hello", "confidence": 0.8},
				},
			},
			wantClass: "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := call(t, cs, tool.ClassifyDocumentName, tt.args)
			require.False(t, res.IsError, text(t, res))

			var out classifier.ClassificationResult
			require.NoError(t, json.Unmarshal([]byte(text(t, res)), &out))
			assert.Equal(t, tt.wantClass, out.FileClass)
			assert.GreaterOrEqual(t, out.Confidence, 0.0)
			assert.LessOrEqual(t, out.Confidence, 1.0)
		})
	}
}

func TestClassifyDocumentToolRejectsBadInput(t *testing.T) {
	cs := session(t)

	res := call(t, cs, tool.ClassifyDocumentName, map[string]any{"text_blocks": []any{}})
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "invalid arguments")
}

func TestListDocumentTypesTool(t *testing.T) {
	cs := session(t)

	res := call(t, cs, tool.ListDocumentTypesName, map[string]any{})
	require.False(t, res.IsError)

	var out struct {
		DocumentTypes []string `json:"document_types"`
	}
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &out))
	assert.Equal(t, []string{"drivers_license", "bank_statement", "invoice"}, out.DocumentTypes)
}

func TestToolsAreListed(t *testing.T) {
	cs := session(t)

	list, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)
	var names []string
	for _, tl := range list.Tools {
		names = append(names, tl.Name)
	}
	assert.ElementsMatch(t, []string{tool.ClassifyDocumentName, tool.ListDocumentTypesName}, names)
}
