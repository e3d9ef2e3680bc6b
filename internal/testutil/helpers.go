package testutil

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// CreateDummyFile writes content to path, creating parent directories.
func CreateDummyFile(t *testing.T, path string, content string) {
	t.Helper()
	full := filepath.Clean(path)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755), "create directory for %s", full)
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644), "write %s", full)
}

// CreateTree writes every file of files, keyed by slash path, under root.
func CreateTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		CreateDummyFile(t, filepath.Join(root, filepath.FromSlash(rel)), content)
	}
}

// ReadFile returns the content of path, failing the test on error.
func ReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err, "read %s", path)
	return string(data)
}

// DiscardLogger returns a logger that drops every record.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
