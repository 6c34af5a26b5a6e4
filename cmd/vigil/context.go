package main

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"vigil/internal/audit"
	"vigil/internal/config"
	"vigil/internal/logging"
	"vigil/internal/platform"
	"vigil/internal/registry"
	"vigil/internal/resolve"
	"vigil/internal/services/downloader"
	"vigil/internal/services/helix"
	"vigil/internal/services/ytdlp"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// session bundles the collaborators a command needs for one invocation. The
// registry store is the only held resource; Close releases it.
type session struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *registry.Store
	catalog *registry.Catalog
	youtube *ytdlp.CLI
	twitch  *helix.Client
}

// withSession opens the registry, wires the listing sources that the
// configuration enables, runs fn, and closes the store.
func (c *commandContext) withSession(fn func(*session) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return err
	}

	store, err := registry.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	s := &session{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		catalog: registry.NewCatalog(store, logger),
	}

	s.youtube = ytdlp.NewCLI(
		ytdlp.WithBinary(cfg.YtdlpBinary()),
		ytdlp.WithCookiesFromBrowser(cfg.YouTube.CookiesFromBrowser),
		ytdlp.WithTimeouts(
			time.Duration(cfg.YouTube.ListTimeout)*time.Second,
			time.Duration(cfg.YouTube.DeepListTimeout)*time.Second,
			time.Duration(cfg.YouTube.ProbeTimeout)*time.Second,
		),
	)
	if cfg.YouTube.Handle != "" {
		s.catalog.SetSource(platform.YouTube, ytdlp.NewListing(s.youtube, cfg.YouTube.Handle))
	}

	if cfg.Twitch.ClientID != "" && cfg.Twitch.ClientSecret != "" && cfg.Twitch.UserID != "" {
		s.twitch = &helix.Client{
			Tokens: &helix.TokenSource{
				ClientID:     cfg.Twitch.ClientID,
				ClientSecret: cfg.Twitch.ClientSecret,
			},
			ClientID: cfg.Twitch.ClientID,
			UserID:   cfg.Twitch.UserID,
			Timeout:  time.Duration(cfg.Twitch.ListTimeout) * time.Second,
		}
		s.catalog.SetSource(platform.Twitch, helix.NewListing(s.twitch))
	}

	return fn(s)
}

// orchestrator assembles the audit pipeline over an open session.
func (s *session) orchestrator(confirmer audit.Confirmer) *audit.Orchestrator {
	resolver := resolve.New(s.catalog,
		time.Duration(s.cfg.Lookup.MaxSkewMinutes)*time.Minute,
		time.Duration(s.cfg.Lookup.FuzzyMinutes)*time.Minute,
		s.logger)

	metadata := &audit.PlatformMetadata{
		YouTube:    s.youtube,
		Twitch:     s.twitch,
		TwitchUser: s.cfg.Twitch.User,
	}

	fetcher := downloader.New(s.cfg.Twitch.User, s.probe, s.logger,
		downloader.WithYtdlpBinary(s.cfg.YtdlpBinary()),
		downloader.WithTwitchDownloader(s.cfg.Download.TwitchDownloaderPath),
		downloader.WithCookiesFromBrowser(s.cfg.YouTube.CookiesFromBrowser),
		downloader.WithTimeout(time.Duration(s.cfg.Download.TimeoutMinutes)*time.Minute),
	)

	return audit.New(s.cfg, s.catalog, resolver, metadata, fetcher, confirmer, s.logger)
}

// probe names downloads after the stream's real title and start time.
// yt-dlp resolves both YouTube and Twitch URLs.
func (s *session) probe(ctx context.Context, url string) (string, time.Time, error) {
	info, err := s.youtube.Probe(ctx, url)
	if err != nil {
		return "", time.Time{}, err
	}
	return info.Title, info.Start, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
