package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateLookup(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.Document == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/vigil/config.toml"
		}
		return fmt.Errorf("paths.document is required. Edit %s (create with 'vigil config init')", defaultPath)
	}
	if c.Paths.ArchiveDir == "" {
		return errors.New("paths.archive_dir is required")
	}
	if c.Paths.CacheDir == "" {
		return errors.New("paths.cache_dir must not be empty")
	}
	return nil
}

func (c *Config) validateLookup() error {
	if c.Lookup.FuzzyMinutes > c.Lookup.MaxSkewMinutes {
		return fmt.Errorf("lookup.fuzzy_minutes (%d) must not exceed lookup.max_skew_minutes (%d)",
			c.Lookup.FuzzyMinutes, c.Lookup.MaxSkewMinutes)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
