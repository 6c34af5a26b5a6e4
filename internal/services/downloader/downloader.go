// Package downloader drives the external tools that fetch videos and chat
// logs into archive storage. Success is judged by exit status plus the
// expected file appearing; the tools own all retry and format logic.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"vigil/internal/logging"
	"vigil/internal/platform"
	"vigil/internal/services"
	"vigil/internal/textutil"
)

var commandContext = exec.CommandContext

// Kind selects what to fetch for one stream.
type Kind string

const (
	KindVideo Kind = "video"
	KindChat  Kind = "chat"
	KindBoth  Kind = "both"
)

func (k Kind) wantsVideo() bool { return k == KindVideo || k == KindBoth }
func (k Kind) wantsChat() bool  { return k == KindChat || k == KindBoth }

// Request describes one fetch.
type Request struct {
	Platform    platform.Platform
	VideoID     string
	IndexPrefix int
	Kind        Kind
	OutputDir   string
}

// Result reports what a fetch produced.
type Result struct {
	Title        string
	VideoFetched bool
	ChatFetched  bool
}

// Option configures the fetcher.
type Option func(*Fetcher)

// WithYtdlpBinary overrides the yt-dlp binary name.
func WithYtdlpBinary(binary string) Option {
	return func(f *Fetcher) {
		if binary != "" {
			f.ytdlp = binary
		}
	}
}

// WithTwitchDownloader sets the TwitchDownloaderCLI path. Empty keeps the
// yt-dlp fallback for Twitch chat.
func WithTwitchDownloader(path string) Option {
	return func(f *Fetcher) {
		f.twitchDownloader = path
	}
}

// WithCookiesFromBrowser passes browser cookies to yt-dlp.
func WithCookiesFromBrowser(browser string) Option {
	return func(f *Fetcher) {
		f.cookiesFromBrowser = browser
	}
}

// WithTimeout bounds each external download command.
func WithTimeout(timeout time.Duration) Option {
	return func(f *Fetcher) {
		if timeout > 0 {
			f.timeout = timeout
		}
	}
}

// Fetcher downloads stream artifacts via yt-dlp, with TwitchDownloaderCLI
// preferred for Twitch chat when configured.
type Fetcher struct {
	ytdlp              string
	twitchDownloader   string
	cookiesFromBrowser string
	twitchUser         string
	timeout            time.Duration
	probe              ProbeFunc
	logger             *slog.Logger
}

// ProbeFunc fetches display metadata for a watch URL. The fetcher uses it
// to build the archive filename stem.
type ProbeFunc func(ctx context.Context, url string) (title string, start time.Time, err error)

// New builds a fetcher. probe may be nil, in which case filenames fall back
// to a generic stem.
func New(twitchUser string, probe ProbeFunc, logger *slog.Logger, opts ...Option) *Fetcher {
	f := &Fetcher{
		ytdlp:      "yt-dlp",
		twitchUser: twitchUser,
		timeout:    3 * time.Hour,
		probe:      probe,
		logger:     logging.NewComponentLogger(logger, "downloader"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads the requested artifacts into the output directory. Files
// are named "{index}_{title} [{id}] @ {start}.{ext}" so the storage scanner
// attributes them on the next pass. Partial success is reported in the
// result, not as an error; only a fetch that produced nothing fails.
func (f *Fetcher) Fetch(ctx context.Context, req Request) (Result, error) {
	if req.VideoID == "" {
		return Result{}, errors.New("video id required")
	}
	if req.OutputDir == "" {
		return Result{}, errors.New("output directory required")
	}
	if req.Kind == "" {
		req.Kind = KindBoth
	}

	url := platform.StreamURL(req.Platform, f.twitchUser, req.VideoID)
	stem := f.filenameStem(ctx, req, url)
	result := Result{Title: stem}

	f.logger.Info("fetching stream artifacts",
		logging.String("platform", string(req.Platform)),
		logging.String("id", req.VideoID),
		logging.String("kind", string(req.Kind)),
		logging.String("stem", stem))

	if req.Kind.wantsVideo() {
		result.VideoFetched = f.fetchVideo(ctx, req, url, stem)
	}
	if req.Kind.wantsChat() {
		result.ChatFetched = f.fetchChat(ctx, req, url, stem)
	}

	fetched := (req.Kind.wantsVideo() && result.VideoFetched) ||
		(req.Kind.wantsChat() && result.ChatFetched)
	if !fetched {
		return result, services.Wrap(services.ErrExternalTool, "downloader", "fetch",
			fmt.Sprintf("no artifacts fetched for %s %s", req.Platform.Label(), req.VideoID), nil)
	}
	return result, nil
}

// filenameStem builds "{index}_{title} [{id}] @ {timestamp}". A failed probe
// degrades to a generic title; the id token is what matters for the
// scanner.
func (f *Fetcher) filenameStem(ctx context.Context, req Request, url string) string {
	title := "Manual_Download"
	start := time.Now()
	if f.probe != nil {
		if probedTitle, probedStart, err := f.probe(ctx, url); err == nil {
			if probedTitle != "" {
				title = probedTitle
			}
			if !probedStart.IsZero() {
				start = probedStart
			}
		} else {
			f.logger.Warn("metadata probe failed, using generic title", logging.Error(err))
		}
	}

	raw := fmt.Sprintf("%s [%s] @ %s", title, req.VideoID, start.Format("2006-01-02_15-04"))
	return fmt.Sprintf("%d_%s", req.IndexPrefix, textutil.SanitizeFileName(raw))
}

func (f *Fetcher) fetchVideo(ctx context.Context, req Request, url, stem string) bool {
	args := []string{
		"-f", "bestvideo[ext=mp4][vcodec^=avc1]+bestaudio[ext=m4a]/best[ext=mp4]/best",
		"-o", stem + ".%(ext)s",
		"--no-part",
		"--no-mtime",
		"--concurrent-fragments", "16",
	}
	if req.Platform == platform.Twitch {
		args = append(args, "--remux-video", "mp4")
	}
	args = f.appendCookies(args)
	args = append(args, url)

	if !f.runTool(ctx, f.ytdlp, args, req.OutputDir, "video") {
		return false
	}
	return fileExists(filepath.Join(req.OutputDir, stem+".mp4"))
}

func (f *Fetcher) fetchChat(ctx context.Context, req Request, url, stem string) bool {
	if req.Platform == platform.Twitch && f.twitchDownloader != "" {
		output := filepath.Join(req.OutputDir, stem+".json")
		args := []string{"chatdownload", "--id", req.VideoID, "-o", output}
		if f.runTool(ctx, f.twitchDownloader, args, req.OutputDir, "chat") && fileExists(output) {
			return true
		}
		f.logger.Warn("TwitchDownloaderCLI failed, falling back to yt-dlp for chat")
	}
	return f.fetchChatYtdlp(ctx, req, url, stem)
}

func (f *Fetcher) fetchChatYtdlp(ctx context.Context, req Request, url, stem string) bool {
	args := []string{
		"--skip-download",
		"--write-subs",
		"--sub-langs", "live_chat",
		"-o", stem + ".%(ext)s",
	}
	args = f.appendCookies(args)
	args = append(args, url)

	if !f.runTool(ctx, f.ytdlp, args, req.OutputDir, "chat") {
		return false
	}

	// yt-dlp writes chat as .live_chat.json; normalize to plain .json so
	// the scanner and the log document agree on the name.
	fetched := filepath.Join(req.OutputDir, stem+".live_chat.json")
	final := filepath.Join(req.OutputDir, stem+".json")
	if fileExists(fetched) {
		if err := os.Rename(fetched, final); err != nil {
			f.logger.Warn("renaming chat log failed", logging.Error(err))
			return false
		}
		return true
	}
	return fileExists(final)
}

func (f *Fetcher) appendCookies(args []string) []string {
	if f.cookiesFromBrowser != "" {
		return append(args, "--cookies-from-browser", f.cookiesFromBrowser)
	}
	return args
}

func (f *Fetcher) runTool(ctx context.Context, binary string, args []string, dir, label string) bool {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	cmd := commandContext(ctx, binary, args...) //nolint:gosec
	cmd.Dir = dir
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		f.logger.Warn("download command failed",
			logging.String("tool", filepath.Base(binary)),
			logging.String("label", label),
			logging.String("stderr", tail(stderr.String())),
			logging.Error(err))
		return false
	}
	return true
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func tail(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > 3 {
		lines = lines[len(lines)-3:]
	}
	return strings.Join(lines, " | ")
}
