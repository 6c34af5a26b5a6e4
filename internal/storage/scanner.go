// Package storage inspects the archival directory for files already
// associated with a log entry index. Classification relies on the video id
// embedded in each filename, not on naming conventions, so a file saved
// under the wrong label is still attributed to the right platform.
package storage

import (
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"vigil/internal/logging"
	"vigil/internal/platform"
)

// Kind classifies an archive file.
type Kind string

const (
	KindVideo Kind = "video"
	KindChat  Kind = "chat"
)

// Kinds returns the known artifact kinds.
func Kinds() []Kind {
	return []Kind{KindVideo, KindChat}
}

type fileKey struct {
	platform platform.Platform
	kind     Kind
}

// Finding holds at most one filename per (platform, kind) for an entry.
type Finding struct {
	files map[fileKey]string
}

// File returns the filename for a platform/kind pair.
func (f Finding) File(p platform.Platform, k Kind) (string, bool) {
	name, ok := f.files[fileKey{p, k}]
	return name, ok
}

// Empty reports whether the finding holds no files at all.
func (f Finding) Empty() bool {
	return len(f.files) == 0
}

// ID extracts the embedded video id for a platform's video file, falling
// back to its chat file.
func (f Finding) ID(p platform.Platform) (string, bool) {
	for _, kind := range []Kind{KindVideo, KindChat} {
		if name, ok := f.File(p, kind); ok {
			if id, ok := IDFromFilename(name); ok {
				return id, true
			}
		}
	}
	return "", false
}

func (f *Finding) set(p platform.Platform, k Kind, name string) {
	if f.files == nil {
		f.files = make(map[fileKey]string)
	}
	f.files[fileKey{p, k}] = name
}

// idPattern matches the "[VIDEOID] @ YYYY-MM-DD" token downloaders embed in
// archive filenames.
var idPattern = regexp.MustCompile(`\[([^\]]+)\]\s*@\s*\d{4}-\d{2}-\d{2}`)

// IDFromFilename extracts the embedded video id token from an archive
// filename.
func IDFromFilename(filename string) (string, bool) {
	m := idPattern.FindStringSubmatch(filename)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// fragmentSuffixes name the droppings of an in-progress or aborted download.
var fragmentSuffixes = []string{".part", ".ytdl", ".temp"}

func isFragment(name string) bool {
	lower := strings.ToLower(name)
	for _, suffix := range fragmentSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return strings.Contains(lower, ".part-frag")
}

// Scanner lists archive files belonging to entry indexes.
type Scanner struct {
	dir    string
	logger *slog.Logger
}

// NewScanner builds a scanner over the archival directory.
func NewScanner(dir string, logger *slog.Logger) *Scanner {
	return &Scanner{
		dir:    dir,
		logger: logging.NewComponentLogger(logger, "storage"),
	}
}

// Scan collects the files whose names start with the index prefix,
// classifying each by the platform of its embedded id and by extension. An
// unreachable archive directory yields an empty finding and a warning;
// storage being offline must never block reconciliation.
func (s *Scanner) Scan(index int) Finding {
	var finding Finding

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.Warn("archive directory unreachable, skipping file scan",
			logging.String("dir", s.dir),
			logging.Error(err))
		return finding
	}

	prefix := strconv.Itoa(index) + "_"
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		if isFragment(name) {
			s.logger.Debug("skipping download fragment", logging.String("file", name))
			continue
		}

		id, ok := IDFromFilename(name)
		if !ok {
			continue
		}

		var kind Kind
		switch strings.ToLower(filepath.Ext(name)) {
		case ".mp4":
			kind = KindVideo
		case ".json":
			kind = KindChat
		default:
			continue
		}

		finding.set(platform.Classify(id), kind, name)
	}

	return finding
}

// Dir returns the scanned directory.
func (s *Scanner) Dir() string {
	return s.dir
}
