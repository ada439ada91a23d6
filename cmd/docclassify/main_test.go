package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("CONFIG_FILE", "")
	t.Chdir(t.TempDir())

	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestClassifyTextFromStdin(t *testing.T) {
	out, err := run(t, `{"text": "INVOICE #42 SUBTOTAL TOTAL"}`, "classify-text")
	require.NoError(t, err)

	var res map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "invoice", res["file_class"])
}

func TestClassifyTextFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "req.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"text": "the quick brown fox", "text_blocks": []}`), 0o644))

	out, err := run(t, "", "classify-text", "--input", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"file_class": "unknown"`)
}

func TestClassifyTextRejectsBadInput(t *testing.T) {
	_, err := run(t, `{"text_blocks": []}`, "classify-text")
	require.Error(t, err)
}

func TestBatchInMemory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip me"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scan.png"), []byte("not really a png"), 0o644))
	xlsx := filepath.Join(t.TempDir(), "out.xlsx")

	out, err := run(t, "", "batch", dir, "--inmem", "--out", xlsx)
	require.NoError(t, err)

	var summary map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.EqualValues(t, 1, summary["matched"])
	assert.EqualValues(t, 1, summary["succeeded"])
	assert.Equal(t, xlsx, summary["output"])

	info, err := os.Stat(xlsx)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestSubcommandsAreRegistered(t *testing.T) {
	var names []string
	for _, c := range newRootCmd().Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"classify", "classify-text", "batch", "export", "mcp", "dbhealth"} {
		assert.Contains(t, names, want)
	}
}
