package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCLIShowTailsLogFile(t *testing.T) {
	env := setupCLITestEnv(t)

	logDir := filepath.Join(env.baseDir, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		t.Fatal(err)
	}
	logPath := filepath.Join(logDir, "vigil.log")
	if err := os.WriteFile(logPath, []byte("first\nsecond\nthird\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, _, err := runCLI(t, env.configPath, "show", "--lines", "2")
	if err != nil {
		t.Fatalf("show --lines: %v", err)
	}
	requireContains(t, out, "second")
	requireContains(t, out, "third")
	if strings.Contains(out, "first") {
		t.Fatalf("expected only the last two lines, got %q", out)
	}
}

func TestCLIShowEmptyLog(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env.configPath, "show")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	requireContains(t, out, "No log entries available")
}
