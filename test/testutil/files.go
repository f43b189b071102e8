package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// CreateTestFile writes content to name inside a per-test temp dir and returns its path.
func CreateTestFile(t testing.TB, name string, content []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
	return path
}

// CreateTestDocument writes a small placeholder .docx file.
func CreateTestDocument(t testing.TB) string {
	return CreateTestFile(t, "report.docx", []byte("PK\x03\x04 test document"))
}
