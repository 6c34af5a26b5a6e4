package config

import "strings"

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeObsidian()
	c.normalizeYouTube()
	c.normalizeTwitch()
	c.normalizeLookup()
	c.normalizeDownload()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	for _, field := range []*string{&c.Paths.Document, &c.Paths.ArchiveDir, &c.Paths.CacheDir, &c.Paths.LogDir} {
		trimmed := strings.TrimSpace(*field)
		if trimmed == "" {
			*field = ""
			continue
		}
		expanded, err := expandPath(trimmed)
		if err != nil {
			return err
		}
		*field = expanded
	}
	return nil
}

func (c *Config) normalizeObsidian() {
	c.Obsidian.Vault = strings.TrimSpace(c.Obsidian.Vault)
	c.Obsidian.ShellCommandID = strings.TrimSpace(c.Obsidian.ShellCommandID)
	c.Obsidian.ArchiveSubdir = strings.Trim(strings.TrimSpace(c.Obsidian.ArchiveSubdir), "/")
	if c.Obsidian.ArchiveSubdir == "" {
		c.Obsidian.ArchiveSubdir = defaultArchiveSubdir
	}
}

func (c *Config) normalizeYouTube() {
	c.YouTube.Handle = strings.TrimSpace(c.YouTube.Handle)
	if c.YouTube.Handle != "" && !strings.HasPrefix(c.YouTube.Handle, "@") {
		c.YouTube.Handle = "@" + c.YouTube.Handle
	}
	c.YouTube.CookiesFromBrowser = strings.TrimSpace(c.YouTube.CookiesFromBrowser)
	if c.YouTube.ListTimeout <= 0 {
		c.YouTube.ListTimeout = defaultListTimeout
	}
	if c.YouTube.DeepListTimeout <= 0 {
		c.YouTube.DeepListTimeout = defaultDeepListTimeout
	}
	if c.YouTube.ProbeTimeout <= 0 {
		c.YouTube.ProbeTimeout = defaultProbeTimeout
	}
}

func (c *Config) normalizeTwitch() {
	c.Twitch.User = strings.TrimSpace(c.Twitch.User)
	c.Twitch.UserID = strings.TrimSpace(c.Twitch.UserID)
	c.Twitch.ClientID = strings.TrimSpace(c.Twitch.ClientID)
	c.Twitch.ClientSecret = strings.TrimSpace(c.Twitch.ClientSecret)
	if c.Twitch.ListTimeout <= 0 {
		c.Twitch.ListTimeout = defaultTwitchListTimeout
	}
}

func (c *Config) normalizeLookup() {
	if c.Lookup.MaxSkewMinutes <= 0 {
		c.Lookup.MaxSkewMinutes = defaultMaxSkewMinutes
	}
	if c.Lookup.FuzzyMinutes <= 0 {
		c.Lookup.FuzzyMinutes = defaultFuzzyMinutes
	}
}

func (c *Config) normalizeDownload() {
	c.Download.TwitchDownloaderPath = strings.TrimSpace(c.Download.TwitchDownloaderPath)
	if c.Download.TwitchDownloaderPath == "" {
		c.Download.TwitchDownloaderPath = defaultTwitchDownloaderPath
	}
	if c.Download.TimeoutMinutes <= 0 {
		c.Download.TimeoutMinutes = defaultDownloadTimeoutMin
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
