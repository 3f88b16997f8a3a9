package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRunRejectsInvalidLogLevel(t *testing.T) {
	dir := t.TempDir()
	code := run([]string{"--path", dir, "--log-level", "not-a-level", "--port", "0"}, os.Stderr)
	if code != 2 {
		t.Fatalf("code = %d, want 2 for an invalid log level", code)
	}
}

func TestRunRequiresPort(t *testing.T) {
	dir := t.TempDir()
	code := run([]string{"--path", dir}, os.Stderr)
	if code != 2 {
		t.Fatalf("code = %d, want 2 when --port is omitted", code)
	}
}

func TestRunRejectsUnknownFlag(t *testing.T) {
	code := run([]string{"--definitely-not-a-flag"}, os.Stderr)
	if code != 2 {
		t.Fatalf("code = %d, want 2 for an unparseable flag set", code)
	}
}

func TestRunFailsOnBadTableDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "garbage.txt"), nil, 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	code := run([]string{"--path", dir, "--port", "0"}, os.Stderr)
	if code != 1 {
		t.Fatalf("code = %d, want 1 when the table directory has the wrong layout", code)
	}
}
