package config

const (
	defaultCacheDir             = "~/.cache/vigil"
	defaultLogDir               = "~/.local/share/vigil/logs"
	defaultArchiveSubdir        = "raws"
	defaultCookiesFromBrowser   = "firefox"
	defaultListTimeout          = 60
	defaultDeepListTimeout      = 300
	defaultProbeTimeout         = 30
	defaultTwitchListTimeout    = 30
	defaultMaxSkewMinutes       = 60
	defaultFuzzyMinutes         = 5
	defaultDownloadTimeoutMin   = 180
	defaultTwitchDownloaderPath = "TwitchDownloaderCLI"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			CacheDir: defaultCacheDir,
			LogDir:   defaultLogDir,
		},
		Obsidian: Obsidian{
			ArchiveSubdir: defaultArchiveSubdir,
		},
		YouTube: YouTube{
			CookiesFromBrowser: defaultCookiesFromBrowser,
			ListTimeout:        defaultListTimeout,
			DeepListTimeout:    defaultDeepListTimeout,
			ProbeTimeout:       defaultProbeTimeout,
		},
		Twitch: Twitch{
			ListTimeout: defaultTwitchListTimeout,
		},
		Lookup: Lookup{
			MaxSkewMinutes: defaultMaxSkewMinutes,
			FuzzyMinutes:   defaultFuzzyMinutes,
		},
		Download: Download{
			TwitchDownloaderPath: defaultTwitchDownloaderPath,
			TimeoutMinutes:       defaultDownloadTimeoutMin,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
