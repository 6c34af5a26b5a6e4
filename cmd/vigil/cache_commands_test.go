package main

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestCLICacheInjectListInfo(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env.configPath, "cache", "inject", "2345678901234",
		"--platform", "twitch",
		"--title", "Rescued VOD",
		"--start", "2026-02-08 10:15",
		"--duration", "2h13m")
	if err != nil {
		t.Fatalf("cache inject: %v", err)
	}
	requireContains(t, out, "Stored manual record TW 2345678901234")

	out, _, err = runCLI(t, env.configPath, "cache", "list")
	if err != nil {
		t.Fatalf("cache list: %v", err)
	}
	requireContains(t, out, "Rescued VOD")
	requireContains(t, out, "2026-02-08 10:15")
	requireContains(t, out, "2:13:00")
	requireContains(t, out, "manual")

	out, _, err = runCLI(t, env.configPath, "cache", "list", "youtube")
	if err != nil {
		t.Fatalf("cache list youtube: %v", err)
	}
	requireContains(t, out, "Registry is empty")

	out, _, err = runCLI(t, env.configPath, "cache", "info")
	if err != nil {
		t.Fatalf("cache info: %v", err)
	}
	requireContains(t, out, "Registry:")
	requireContains(t, out, "Twitch")

	out, _, err = runCLI(t, env.configPath, "cache", "info", "2345678901234")
	if err != nil {
		t.Fatalf("cache info <id>: %v", err)
	}
	requireContains(t, out, "Rescued VOD")
	requireContains(t, out, "manual")

	_, _, err = runCLI(t, env.configPath, "cache", "info", "nosuchid")
	if err == nil {
		t.Fatal("expected an error for an unknown id")
	}
}

func TestCLICacheInjectFromURL(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env.configPath, "cache", "inject",
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		"--title", "From URL",
		"--start", "2026-02-08 10:15")
	if err != nil {
		t.Fatalf("cache inject url: %v", err)
	}
	requireContains(t, out, "Stored manual record YT dQw4w9WgXcQ")
}

func TestCLICacheInjectRejectsBadStart(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, env.configPath, "cache", "inject", "2345678901234",
		"--platform", "twitch",
		"--start", "last tuesday")
	if err == nil {
		t.Fatal("expected an error for an unparseable start time")
	}
	requireContains(t, err.Error(), "start must look like")
}

// stubYtdlp writes an executable script standing in for yt-dlp. It records
// its arguments and emits one flat-playlist line so the refresh succeeds.
func stubYtdlp(t *testing.T, dir string) (binary, argsFile string) {
	t.Helper()
	argsFile = filepath.Join(dir, "ytdlp-args")
	binary = filepath.Join(dir, "yt-dlp")
	script := fmt.Sprintf(`#!/bin/sh
printf '%%s\n' "$@" > %q
printf '{"id":"60L3NObe9M8","title":"Sunday stream","upload_date":"20260208","duration":7300}\n'
`, argsFile)
	if err := os.WriteFile(binary, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return binary, argsFile
}

func TestCLIRefreshDefaultsToDeepListing(t *testing.T) {
	env := setupCLITestEnv(t)
	binary, argsFile := stubYtdlp(t, env.baseDir)

	configPath := filepath.Join(env.baseDir, "refresh-config.toml")
	content := fmt.Sprintf(`[paths]
document = %q
archive_dir = %q
cache_dir = %q
log_dir = %q

[obsidian]
vault = "archives"
shell_command_id = "testcmd01"

[youtube]
handle = "@somestreamer"
binary = %q

[twitch]
user = "somestreamer"
`,
		env.document,
		env.archiveDir,
		filepath.Join(env.baseDir, "cache"),
		filepath.Join(env.baseDir, "logs"),
		binary,
	)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	out, _, err := runCLI(t, configPath, "refresh", "youtube")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	requireContains(t, out, "YouTube: 1 records (+1)")

	args, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatalf("read recorded args: %v", err)
	}
	requireContains(t, string(args), "1:100")

	if _, _, err := runCLI(t, configPath, "refresh", "youtube", "--quick"); err != nil {
		t.Fatalf("refresh --quick: %v", err)
	}
	args, err = os.ReadFile(argsFile)
	if err != nil {
		t.Fatalf("read recorded args: %v", err)
	}
	requireContains(t, string(args), "1:30")
}
