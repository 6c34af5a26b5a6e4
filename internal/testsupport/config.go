// Package testsupport provides shared helpers for package tests: temp-dir
// configs, canned documents, and archive fixtures.
package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"vigil/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t   testing.TB
	cfg *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The archive directory exists; the document file does not until
// WithDocument is used.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.Document = filepath.Join(base, "Livestreams.md")
	cfg.Paths.ArchiveDir = filepath.Join(base, "raws")
	cfg.Paths.CacheDir = filepath.Join(base, "cache")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Obsidian.Vault = "archives"
	cfg.Obsidian.ShellCommandID = "testcmd01"
	cfg.Twitch.User = "somestreamer"

	if err := os.MkdirAll(cfg.Paths.ArchiveDir, 0o755); err != nil {
		t.Fatalf("create archive dir: %v", err)
	}

	builder := &configBuilder{t: t, cfg: &cfg}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithDocument writes the given contents to the config's document path.
func WithDocument(contents string) ConfigOption {
	return func(b *configBuilder) {
		if err := os.WriteFile(b.cfg.Paths.Document, []byte(contents), 0o644); err != nil {
			b.t.Fatalf("write document: %v", err)
		}
	}
}

// WithArchiveFile creates an empty file with the given name in the archive
// directory.
func WithArchiveFile(name string) ConfigOption {
	return func(b *configBuilder) {
		path := filepath.Join(b.cfg.Paths.ArchiveDir, name)
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			b.t.Fatalf("write archive file %s: %v", name, err)
		}
	}
}

// WithoutArchiveDir removes the archive directory so scanner fallbacks can
// be exercised.
func WithoutArchiveDir() ConfigOption {
	return func(b *configBuilder) {
		if err := os.RemoveAll(b.cfg.Paths.ArchiveDir); err != nil {
			b.t.Fatalf("remove archive dir: %v", err)
		}
	}
}
