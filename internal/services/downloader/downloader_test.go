package downloader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"vigil/internal/logging"
	"vigil/internal/platform"
	"vigil/internal/services"
)

// setHelperCommand routes external tool invocations to the helper process,
// which creates whatever output file the -o argument names.
func setHelperCommand(t *testing.T, mode string) *[][]string {
	t.Helper()
	var invocations [][]string
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		invocations = append(invocations, append([]string{name}, args...))
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess")
		cmd.Env = append(os.Environ(),
			"GO_WANT_HELPER_PROCESS=1",
			"DL_HELPER_MODE="+mode,
			"DL_HELPER_ARGS="+strings.Join(args, "\x1f"))
		return cmd
	}
	t.Cleanup(func() {
		commandContext = original
	})
	return &invocations
}

func fixedProbe(title string, start time.Time) ProbeFunc {
	return func(context.Context, string) (string, time.Time, error) {
		return title, start, nil
	}
}

func TestFetchVideoAndChat(t *testing.T) {
	invocations := setHelperCommand(t, "success")
	dir := t.TempDir()

	start := time.Date(2026, 2, 8, 4, 15, 0, 0, time.UTC)
	fetcher := New("somestreamer", fixedProbe("Morning Zatsudan", start), logging.NewNop())

	result, err := fetcher.Fetch(context.Background(), Request{
		Platform:    platform.YouTube,
		VideoID:     "dQw4w9WgXcQ",
		IndexPrefix: 516,
		Kind:        KindBoth,
		OutputDir:   dir,
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !result.VideoFetched || !result.ChatFetched {
		t.Fatalf("result: %+v", result)
	}

	wantStem := "516_Morning Zatsudan [dQw4w9WgXcQ] @ 2026-02-08_04-15"
	if result.Title != wantStem {
		t.Fatalf("stem: %q", result.Title)
	}
	if _, err := os.Stat(filepath.Join(dir, wantStem+".mp4")); err != nil {
		t.Errorf("video file: %v", err)
	}
	// yt-dlp chat output is renamed from .live_chat.json to .json.
	if _, err := os.Stat(filepath.Join(dir, wantStem+".json")); err != nil {
		t.Errorf("chat file: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, wantStem+".live_chat.json")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("live_chat file should have been renamed, stat: %v", err)
	}
	if len(*invocations) != 2 {
		t.Fatalf("expected 2 tool invocations, got %d", len(*invocations))
	}
}

func TestFetchTwitchPrefersTwitchDownloaderForChat(t *testing.T) {
	invocations := setHelperCommand(t, "success")
	dir := t.TempDir()

	fetcher := New("somestreamer",
		fixedProbe("VOD", time.Date(2026, 2, 8, 10, 15, 0, 0, time.UTC)),
		logging.NewNop(),
		WithTwitchDownloader("/opt/TwitchDownloaderCLI"))

	result, err := fetcher.Fetch(context.Background(), Request{
		Platform:    platform.Twitch,
		VideoID:     "316307569766",
		IndexPrefix: 516,
		Kind:        KindChat,
		OutputDir:   dir,
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !result.ChatFetched {
		t.Fatal("chat not fetched")
	}

	if len(*invocations) != 1 {
		t.Fatalf("expected 1 invocation, got %d", len(*invocations))
	}
	argv := (*invocations)[0]
	if argv[0] != "/opt/TwitchDownloaderCLI" || argv[1] != "chatdownload" {
		t.Fatalf("argv: %v", argv)
	}
	if idx := findArg(argv, "--id"); idx == -1 || argv[idx+1] != "316307569766" {
		t.Fatalf("vod id missing: %v", argv)
	}
}

func TestFetchTwitchVideoRemuxesToMP4(t *testing.T) {
	invocations := setHelperCommand(t, "success")
	dir := t.TempDir()

	fetcher := New("somestreamer",
		fixedProbe("VOD", time.Date(2026, 2, 8, 10, 15, 0, 0, time.UTC)),
		logging.NewNop())

	if _, err := fetcher.Fetch(context.Background(), Request{
		Platform:    platform.Twitch,
		VideoID:     "316307569766",
		IndexPrefix: 516,
		Kind:        KindVideo,
		OutputDir:   dir,
	}); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	argv := (*invocations)[0]
	if findArg(argv, "--remux-video") == -1 {
		t.Fatalf("remux flag missing: %v", argv)
	}
	last := argv[len(argv)-1]
	if last != "https://www.twitch.tv/somestreamer/video/316307569766" {
		t.Fatalf("url: %q", last)
	}
}

func TestFetchFailureWhenNothingProduced(t *testing.T) {
	setHelperCommand(t, "failure")
	dir := t.TempDir()

	fetcher := New("somestreamer", nil, logging.NewNop())
	_, err := fetcher.Fetch(context.Background(), Request{
		Platform:    platform.YouTube,
		VideoID:     "dQw4w9WgXcQ",
		IndexPrefix: 9,
		Kind:        KindVideo,
		OutputDir:   dir,
	})
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}
}

func TestFetchGenericStemWhenProbeFails(t *testing.T) {
	setHelperCommand(t, "success")
	dir := t.TempDir()

	probe := func(context.Context, string) (string, time.Time, error) {
		return "", time.Time{}, errors.New("probe down")
	}
	fetcher := New("somestreamer", probe, logging.NewNop())

	result, err := fetcher.Fetch(context.Background(), Request{
		Platform:    platform.YouTube,
		VideoID:     "dQw4w9WgXcQ",
		IndexPrefix: 9,
		Kind:        KindVideo,
		OutputDir:   dir,
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !strings.HasPrefix(result.Title, "9_Manual_Download [dQw4w9WgXcQ] @ ") {
		t.Fatalf("stem: %q", result.Title)
	}
}

// TestHelperProcess stands in for yt-dlp and TwitchDownloaderCLI. On
// success it creates the file the -o argument names, resolving yt-dlp's
// %(ext)s template the way the real tool would.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	if os.Getenv("DL_HELPER_MODE") == "failure" {
		fmt.Fprintln(os.Stderr, "ERROR: download failed")
		os.Exit(1)
	}

	args := strings.Split(os.Getenv("DL_HELPER_ARGS"), "\x1f")
	output := ""
	for i, arg := range args {
		if arg == "-o" && i+1 < len(args) {
			output = args[i+1]
		}
	}
	if output != "" {
		chat := false
		for _, arg := range args {
			if arg == "--skip-download" {
				chat = true
			}
		}
		if strings.Contains(output, "%(ext)s") {
			ext := "mp4"
			if chat {
				ext = "live_chat.json"
			}
			output = strings.ReplaceAll(output, "%(ext)s", ext)
		}
		_ = os.WriteFile(output, []byte("data"), 0o644)
	}
	os.Exit(0)
}

func findArg(args []string, target string) int {
	for i, arg := range args {
		if arg == target {
			return i
		}
	}
	return -1
}
