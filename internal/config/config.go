package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains file and directory configuration.
type Paths struct {
	// Document is the livestream log document the audit flow rewrites.
	Document string `toml:"document"`
	// ArchiveDir is the long-term storage directory holding downloaded
	// videos and chat logs, one file set per entry index.
	ArchiveDir string `toml:"archive_dir"`
	CacheDir   string `toml:"cache_dir"`
	LogDir     string `toml:"log_dir"`
}

// Obsidian contains settings for building shell-command file links inside
// the log document.
type Obsidian struct {
	Vault          string `toml:"vault"`
	ShellCommandID string `toml:"shell_command_id"`
	ArchiveSubdir  string `toml:"archive_subdir"`
}

// YouTube contains configuration for the YouTube listing and metadata
// collaborators (yt-dlp based).
type YouTube struct {
	Handle string `toml:"handle"`
	// Binary overrides the yt-dlp executable; empty means PATH lookup.
	Binary             string `toml:"binary"`
	CookiesFromBrowser string `toml:"cookies_from_browser"`
	ListTimeout        int    `toml:"list_timeout"`
	DeepListTimeout    int    `toml:"deep_list_timeout"`
	ProbeTimeout       int    `toml:"probe_timeout"`
}

// Twitch contains configuration for the Helix listing collaborator.
type Twitch struct {
	User         string `toml:"user"`
	UserID       string `toml:"user_id"`
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	ListTimeout  int    `toml:"list_timeout"`
}

// Lookup contains tuning for registry date matching.
type Lookup struct {
	// MaxSkewMinutes bounds how far a registry record's start time may sit
	// from an entry's declared time and still count as a match.
	MaxSkewMinutes int `toml:"max_skew_minutes"`
	// FuzzyMinutes is the skew past which a match is flagged as fuzzy.
	FuzzyMinutes int `toml:"fuzzy_minutes"`
}

// Download contains configuration for the external download tools.
type Download struct {
	TwitchDownloaderPath string `toml:"twitch_downloader_path"`
	TimeoutMinutes       int    `toml:"timeout_minutes"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for vigil.
//
// Configuration sections by subsystem:
//   - Paths: document, archive storage, cache and log directories
//   - Obsidian: shell-command link construction
//   - YouTube: yt-dlp listing/metadata settings
//   - Twitch: Helix API settings
//   - Lookup: registry date-match windows
//   - Download: external downloader settings
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Obsidian Obsidian `toml:"obsidian"`
	YouTube  YouTube  `toml:"youtube"`
	Twitch   Twitch   `toml:"twitch"`
	Lookup   Lookup   `toml:"lookup"`
	Download Download `toml:"download"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/vigil/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The boolean reports
// whether a config file was actually found.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("vigil.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the cache and log directories. The archive
// directory is deliberately left alone: it usually lives on network storage
// and its absence is a recoverable condition handled by the storage scanner.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.CacheDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// YtdlpBinary returns the yt-dlp executable name.
func (c *Config) YtdlpBinary() string {
	if binary := strings.TrimSpace(c.YouTube.Binary); binary != "" {
		return binary
	}
	return "yt-dlp"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
