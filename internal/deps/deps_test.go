package deps

import (
	"os"
	"path/filepath"
	"testing"

	"vigil/internal/testsupport"
)

func writeStub(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := writeStub(t, binDir, "present")

	results := CheckBinaries([]Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Unset", Command: "", Optional: true},
	})
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	if !results[0].Available || results[0].Detail != "" {
		t.Fatalf("present: %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("missing: %#v", results[1])
	}
	if results[2].Available || results[2].Detail != "command not configured" {
		t.Fatalf("unset: %#v", results[2])
	}
}

func TestCheckBinariesRejectsNonExecutablePath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.txt")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	results := CheckBinaries([]Requirement{{Name: "Data", Command: path}})
	if results[0].Available {
		t.Fatalf("non-executable file reported available: %#v", results[0])
	}
}

func TestRequirementsMarkTwitchDownloaderOptional(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	reqs := Requirements(cfg)
	if len(reqs) != 2 {
		t.Fatalf("expected 2 requirements, got %d", len(reqs))
	}
	if reqs[0].Name != "yt-dlp" || reqs[0].Optional {
		t.Fatalf("yt-dlp: %#v", reqs[0])
	}
	if !reqs[1].Optional {
		t.Fatalf("TwitchDownloaderCLI should be optional: %#v", reqs[1])
	}
}

func TestMissingRequired(t *testing.T) {
	statuses := []Status{
		{Name: "yt-dlp", Available: false},
		{Name: "TwitchDownloaderCLI", Optional: true, Available: false},
	}
	missing := MissingRequired(statuses)
	if len(missing) != 1 || missing[0] != "yt-dlp" {
		t.Fatalf("missing: %v", missing)
	}
}
