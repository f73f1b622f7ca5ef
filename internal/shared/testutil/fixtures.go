package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// WriteCSV writes lines, joined with newlines, to dir/name and returns the
// full path
func WriteCSV(t testing.TB, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("create fixture dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		t.Fatalf("write fixture %s: %v", name, err)
	}
	return path
}
