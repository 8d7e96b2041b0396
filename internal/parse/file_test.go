package parse

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFile(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "family")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, "mom.txt")
	require.NoError(t, os.WriteFile(path, []byte("2024-01-05, 9:15 a.m. - Mom: call me\nwhen you land\n"), 0o644))

	exp, err := ParseFile(path, root)
	require.NoError(t, err)
	assert.Equal(t, "text:family/mom", exp.Meta.ChatKey)
	assert.Equal(t, FormatText, exp.Meta.Format)
	assert.Equal(t, path, exp.Meta.FilePath)
	assert.Equal(t, "call me when you land", exp.Meta.Summary)
	assert.Positive(t, exp.Meta.Size)
	require.Len(t, exp.Result.Messages, 1)

	exp, err = ParseFile(path, "")
	require.NoError(t, err)
	assert.Equal(t, "text:mom", exp.Meta.ChatKey)
}

func TestParseFile_JSONKeyAndSummaryCut(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "bot.json")
	long := strings.Repeat("é", 150)
	require.NoError(t, os.WriteFile(path, []byte(`[{"role":"user","content":"`+long+`"}]`), 0o644))

	exp, err := ParseFile(path, root)
	require.NoError(t, err)
	assert.Equal(t, "json:bot", exp.Meta.ChatKey)
	assert.Equal(t, strings.Repeat("é", 100), exp.Meta.Summary)
}

func TestParseFile_Missing(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "nope.txt"), "")
	assert.Error(t, err)
}
