// Package ytdlp wraps the yt-dlp command line tool for channel listing and
// single-video metadata probes.
package ytdlp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"vigil/internal/platform"
	"vigil/internal/registry"
	"vigil/internal/services"
)

var commandContext = exec.CommandContext

// StreamInfo is one probed or listed video.
type StreamInfo struct {
	ID       string
	Title    string
	Start    time.Time
	Duration time.Duration
}

// Option configures the CLI client.
type Option func(*CLI)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// WithCookiesFromBrowser passes browser cookies to yt-dlp, which membership
// streams need.
func WithCookiesFromBrowser(browser string) Option {
	return func(c *CLI) {
		c.cookiesFromBrowser = browser
	}
}

// WithTimeouts overrides the listing and probe timeouts.
func WithTimeouts(list, deepList, probe time.Duration) Option {
	return func(c *CLI) {
		if list > 0 {
			c.listTimeout = list
		}
		if deepList > 0 {
			c.deepListTimeout = deepList
		}
		if probe > 0 {
			c.probeTimeout = probe
		}
	}
}

// CLI wraps the yt-dlp binary.
type CLI struct {
	binary             string
	cookiesFromBrowser string
	listTimeout        time.Duration
	deepListTimeout    time.Duration
	probeTimeout       time.Duration
}

// NewCLI constructs a client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{
		binary:          "yt-dlp",
		listTimeout:     60 * time.Second,
		deepListTimeout: 300 * time.Second,
		probeTimeout:    30 * time.Second,
	}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// ListStreams returns up to count videos from a channel's streams tab,
// newest first, via a flat-playlist dump. Flat listings carry an upload day
// but no clock time, so Start is truncated to midnight UTC.
func (c *CLI) ListStreams(ctx context.Context, handle string, count int) ([]StreamInfo, error) {
	if handle == "" {
		return nil, errors.New("channel handle required")
	}
	if count <= 0 {
		count = 30
	}

	timeout := c.listTimeout
	if count > 50 {
		timeout = c.deepListTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := []string{
		"--flat-playlist", "--dump-json",
		"--playlist-items", fmt.Sprintf("1:%d", count),
	}
	args = c.appendCookies(args)
	args = append(args, fmt.Sprintf("https://www.youtube.com/%s/streams", handle))

	stdout, err := c.run(ctx, args)
	if err != nil {
		return nil, err
	}

	var streams []StreamInfo
	scanner := bufio.NewScanner(bytes.NewReader(stdout))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var payload struct {
			ID         string  `json:"id"`
			Title      string  `json:"title"`
			UploadDate string  `json:"upload_date"`
			Duration   float64 `json:"duration"`
		}
		if err := json.Unmarshal(line, &payload); err != nil {
			continue
		}
		if payload.ID == "" || payload.UploadDate == "" {
			continue
		}
		start, err := time.Parse("20060102", payload.UploadDate)
		if err != nil {
			continue
		}
		streams = append(streams, StreamInfo{
			ID:       payload.ID,
			Title:    payload.Title,
			Start:    start,
			Duration: time.Duration(payload.Duration) * time.Second,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "ytdlp", "list", "reading yt-dlp output", err)
	}
	if len(streams) == 0 {
		return nil, services.Wrap(services.ErrExternalTool, "ytdlp", "list", "no streams parsed from yt-dlp output", nil)
	}
	return streams, nil
}

// Probe fetches full metadata for a single video URL.
func (c *CLI) Probe(ctx context.Context, url string) (StreamInfo, error) {
	if url == "" {
		return StreamInfo{}, errors.New("url required")
	}

	ctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	args := c.appendCookies([]string{"--dump-json"})
	args = append(args, url)

	stdout, err := c.run(ctx, args)
	if err != nil {
		return StreamInfo{}, err
	}

	var payload struct {
		ID               string  `json:"id"`
		Title            string  `json:"title"`
		Fulltitle        string  `json:"fulltitle"`
		Duration         float64 `json:"duration"`
		ReleaseTimestamp int64   `json:"release_timestamp"`
		Timestamp        int64   `json:"timestamp"`
	}
	if err := json.Unmarshal(bytes.TrimSpace(stdout), &payload); err != nil {
		return StreamInfo{}, services.Wrap(services.ErrExternalTool, "ytdlp", "probe", "decoding yt-dlp metadata", err)
	}

	info := StreamInfo{
		ID:       payload.ID,
		Title:    payload.Fulltitle,
		Duration: time.Duration(payload.Duration) * time.Second,
	}
	if info.Title == "" {
		info.Title = payload.Title
	}
	if ts := payload.ReleaseTimestamp; ts > 0 {
		info.Start = time.Unix(ts, 0).UTC()
	} else if payload.Timestamp > 0 {
		info.Start = time.Unix(payload.Timestamp, 0).UTC()
	}
	return info, nil
}

func (c *CLI) appendCookies(args []string) []string {
	if c.cookiesFromBrowser != "" {
		return append(args, "--cookies-from-browser", c.cookiesFromBrowser)
	}
	return args
}

func (c *CLI) run(ctx context.Context, args []string) ([]byte, error) {
	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, services.Wrap(services.ErrTimeout, "ytdlp", "run", "yt-dlp timed out", ctx.Err())
	}
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "ytdlp", "run",
			fmt.Sprintf("yt-dlp failed: %s", stderrTail(stderr.String())), err)
	}
	return stdout.Bytes(), nil
}

// stderrTail keeps the last few stderr lines, which is where yt-dlp puts
// the actual failure reason.
func stderrTail(stderr string) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	if len(lines) > 3 {
		lines = lines[len(lines)-3:]
	}
	return strings.Join(lines, " | ")
}

// Listing adapts the client to the registry refresh interface for one
// channel.
type Listing struct {
	client *CLI
	handle string
}

// NewListing builds a registry listing source for a channel handle.
func NewListing(client *CLI, handle string) *Listing {
	return &Listing{client: client, handle: handle}
}

// Recent implements registry.Listing.
func (l *Listing) Recent(ctx context.Context, limit int) ([]registry.Record, error) {
	streams, err := l.client.ListStreams(ctx, l.handle, limit)
	if err != nil {
		return nil, err
	}
	records := make([]registry.Record, 0, len(streams))
	for _, s := range streams {
		records = append(records, registry.Record{
			Platform:  platform.YouTube,
			ID:        s.ID,
			Title:     s.Title,
			StartTime: s.Start,
			Duration:  s.Duration,
			Origin:    registry.OriginFetched,
		})
	}
	return records, nil
}

var _ registry.Listing = (*Listing)(nil)
