package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// sampleDeps is a deps file with two binaries, a runtime candidate and an
// unparseable entry.
const sampleDeps = `bin/app
  libfoo.so
  libbar.so
  .
  libplugin.so
lib/libfoo.so
  libbar.so
# etc/readme
`

// writeTestFile writes content to name inside dir and returns its path.
func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

// emptyConfig returns an empty configuration file so tests do not pick up
// a .scanlibs from the user's home directory.
func emptyConfig(t *testing.T) string {
	t.Helper()
	return writeTestFile(t, t.TempDir(), "config.yaml", "")
}

// executeRoot runs the root command with args and returns its stdout.
func executeRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), err
}
