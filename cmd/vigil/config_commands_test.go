package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCLIConfigInitAndShow(t *testing.T) {
	env := setupCLITestEnv(t)

	tmp := t.TempDir()
	target := filepath.Join(tmp, "config.toml")
	out, _, err := runCLI(t, env.configPath, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	_, _, err = runCLI(t, env.configPath, "config", "init", "--path", target)
	if err == nil {
		t.Fatal("config init should refuse to overwrite without --overwrite")
	}

	out, _, err = runCLI(t, env.configPath, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "paths.document")
	requireContains(t, out, env.document)
	requireContains(t, out, "somestreamer")
}
