// Package deps verifies the external tools vigil shells out to.
package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"vigil/internal/config"
)

// Requirement defines an external binary vigil relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of one requirement.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements lists the tools for a configuration. yt-dlp carries listing,
// probing, and downloads, so it is mandatory; TwitchDownloaderCLI only
// improves Twitch chat logs and yt-dlp covers for it when absent.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:        "yt-dlp",
			Command:     cfg.YtdlpBinary(),
			Description: "Stream listing, metadata, and downloads",
		},
		{
			Name:        "TwitchDownloaderCLI",
			Command:     cfg.Download.TwitchDownloaderPath,
			Description: "Twitch chat logs (yt-dlp fallback when missing)",
			Optional:    true,
		},
	}
}

// CheckBinaries evaluates requirements and reports availability. Commands
// given as paths are checked directly; bare names resolve through PATH.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		command := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     command,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		switch {
		case command == "":
			status.Detail = "command not configured"
		case strings.ContainsRune(command, os.PathSeparator):
			if info, err := os.Stat(command); err == nil && isExecutable(info) {
				status.Available = true
			} else {
				status.Detail = fmt.Sprintf("binary %q not found", command)
			}
		default:
			if resolved, err := exec.LookPath(command); err == nil {
				status.Command = resolved
				status.Available = true
			} else {
				status.Detail = fmt.Sprintf("binary %q not found", command)
			}
		}
		results = append(results, status)
	}
	return results
}

// MissingRequired returns the names of required tools that are unavailable.
func MissingRequired(statuses []Status) []string {
	var missing []string
	for _, status := range statuses {
		if !status.Optional && !status.Available {
			missing = append(missing, status.Name)
		}
	}
	return missing
}

func isExecutable(info os.FileInfo) bool {
	if info == nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return strings.EqualFold(filepath.Ext(info.Name()), ".exe")
	}
	return info.Mode().Perm()&0o111 != 0
}
