package document

import (
	"fmt"
	"strings"
	"time"

	"vigil/internal/platform"
	"vigil/internal/storage"
)

// Render carries the per-platform inputs the builder needs: the resolved
// video id (empty when resolution came up with nothing), the display title
// already chosen by the caller, and the registry duration when known.
type Render struct {
	VideoID  string
	Title    string
	Duration time.Duration
}

// Formatter builds normalized entry blocks. The vault fields feed the
// Obsidian shell-command URIs that make the file icons clickable inside the
// vault; TwitchUser feeds VOD watch URLs.
type Formatter struct {
	Vault          string
	ShellCommandID string
	ArchiveSubdir  string
	TwitchUser     string
}

// Build assembles the normalized block for an entry. Checkbox, date, and
// timezone label come from the parsed entry verbatim; platform lines are
// rebuilt from the renders and the storage finding; free notes follow
// unchanged in their original order. The result is a pure function of its
// inputs, so rebuilding an already-normalized entry reproduces it byte for
// byte.
func (f Formatter) Build(index int, entry *Entry, finding storage.Finding, renders map[platform.Platform]Render) []string {
	lines := []string{f.header(index, entry, renders)}
	for _, p := range platform.All() {
		lines = append(lines, f.platformLine(p, entry, finding, renders[p]))
	}
	lines = append(lines, entry.Notes...)
	return lines
}

func (f Formatter) header(index int, entry *Entry, renders map[platform.Platform]Render) string {
	date := entry.DateRaw
	if date == "" {
		date = "UNKNOWN"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "- %s **%d** : %s", entry.Checkbox, index, date)
	if entry.TZLabel != "" {
		b.WriteString(" " + entry.TZLabel)
	}
	if duration := headerDuration(entry, renders); duration != "" {
		b.WriteString(" [" + duration + "]")
	}
	// Trailing double space is a markdown hard line break.
	b.WriteString("  ")
	return b.String()
}

// headerDuration picks the larger of the platforms' registry durations, or
// keeps what the entry already recorded.
func headerDuration(entry *Entry, renders map[platform.Platform]Render) string {
	var longest time.Duration
	for _, render := range renders {
		if render.Duration > longest {
			longest = render.Duration
		}
	}
	if longest > 0 {
		return formatDuration(longest)
	}
	return entry.Duration
}

func formatDuration(d time.Duration) string {
	total := int(d.Seconds())
	return fmt.Sprintf("%d:%02d:%02d", total/3600, total/60%60, total%60)
}

func (f Formatter) platformLine(p platform.Platform, entry *Entry, finding storage.Finding, render Render) string {
	if entry.Absent[p] {
		return fmt.Sprintf("\t`%s` %s", p.Tag(), absenceMark)
	}

	videoLink := f.fileLink("📁", finding, p, storage.KindVideo)
	chatLink := f.fileLink("📄", finding, p, storage.KindChat)

	title := render.Title
	if title == "" {
		title = "untitled"
	}
	url := ""
	if render.VideoID != "" {
		url = platform.StreamURL(p, f.TwitchUser, render.VideoID)
	}

	return fmt.Sprintf("\t`%s` %s %s [ %s ](%s)", p.Tag(), videoLink, chatLink, title, url)
}

func (f Formatter) fileLink(icon string, finding storage.Finding, p platform.Platform, kind storage.Kind) string {
	name, ok := finding.File(p, kind)
	if !ok {
		return "[" + icon + "]()"
	}
	return fmt.Sprintf("[%s](%s)", icon, f.shellCommandURI(name))
}

// shellCommandURI builds the obsidian://shell-commands link that opens an
// archive file from inside the vault. The filename is percent-encoded with
// no exemptions because it rides in a query parameter.
func (f Formatter) shellCommandURI(filename string) string {
	return fmt.Sprintf("obsidian://shell-commands/?vault=%s&execute=%s&_arg0=%s/%s",
		f.Vault, f.ShellCommandID, f.ArchiveSubdir, strictEscape(filename))
}

// strictEscape percent-encodes every byte outside the RFC 3986 unreserved
// set.
func strictEscape(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9',
			c == '-', c == '_', c == '.', c == '~':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}
