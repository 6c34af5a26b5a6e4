package document

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"vigil/internal/platform"
	"vigil/internal/services"
)

const (
	terminator  = "---"
	absenceMark = "✗ no stream"
	dateLayout  = "2006.01.02 15:04"
)

// Line grammar. Headers come in two generations: the current checklist form
// with a bold index, and the legacy form where the index opened a markdown
// link. Legacy blocks parse but are never emitted.
var (
	headerPattern       = regexp.MustCompile(`^-\s*\[( |x)\]\s*\*\*(\d+)\*\*\s*:`)
	legacyHeaderPattern = regexp.MustCompile(`^-\s*\[( |x)\]\s*\[(\d+)_`)
	anyHeaderPattern    = regexp.MustCompile(`^-\s*\[.\]\s*(?:\*\*\d+\*\*|\[\d+_)`)

	datePattern     = regexp.MustCompile(`(\d{4}\.\d{2}\.\d{2}\s+\d{2}:\d{2})`)
	tzPattern       = regexp.MustCompile(`(\(GMT[^\)]*\))`)
	durationPattern = regexp.MustCompile(`\[(\d{1,2}:\d{2}:\d{2})\]`)
	checkboxPattern = regexp.MustCompile(`\[([ x])\]`)

	fileLinkPattern = regexp.MustCompile(`\[(?:📁|📄)\]\([^\)]*\)`)
	titlePattern    = regexp.MustCompile(`\[\s*([^\]]+?)\s*\]\(([^\)]*)\)`)

	// Legacy blocks hold their URLs in arbitrary positions.
	legacyYouTubePattern = regexp.MustCompile(`https://www\.youtube\.com/(?:watch\?v=|live/)[^\s\)]+`)
	legacyTwitchPattern  = regexp.MustCompile(`https://www\.twitch\.tv/\S+/video/\d+`)
)

func isHeader(line string) bool {
	return anyHeaderPattern.MatchString(line)
}

func isTerminator(line string) bool {
	return strings.TrimSpace(line) == terminator
}

// platformTag returns the platform of a sub-line carrying a backticked tag,
// or false for any other line.
func platformTag(line string) (platform.Platform, bool) {
	stripped := strings.TrimSpace(line)
	for _, p := range platform.All() {
		if strings.HasPrefix(stripped, "`"+p.Tag()+"`") {
			return p, true
		}
	}
	return "", false
}

// ParseBlock extracts the typed entry from a located block. Dates the
// grammar recognizes but cannot parse abort with the offending text; a
// block with no date at all parses with a zero date.
func ParseBlock(lines []string, index int) (*Entry, error) {
	if len(lines) == 0 {
		return nil, services.Wrap(services.ErrNotFound, "document", "parse",
			fmt.Sprintf("entry %d block is empty", index), nil)
	}

	entry := &Entry{
		Index:     index,
		Checkbox:  "[ ]",
		Links:     make(map[platform.Platform]Link),
		Absent:    make(map[platform.Platform]bool),
		Canonical: true,
	}

	header := lines[0]
	if m := checkboxPattern.FindStringSubmatch(header); m != nil {
		entry.Checkbox = "[" + m[1] + "]"
	}
	if !headerPattern.MatchString(header) {
		entry.Canonical = false
	}

	// Legacy blocks keep the date on a sub-line, so search the block head
	// rather than the header alone.
	head := strings.Join(lines[:min(len(lines), 5)], "\n")
	if m := datePattern.FindStringSubmatch(head); m != nil {
		entry.DateRaw = m[1]
		parsed, err := time.Parse(dateLayout, m[1])
		if err != nil {
			return nil, services.Wrap(services.ErrMalformed, "document", "parse",
				fmt.Sprintf("entry %d has an unparseable date %q", index, m[1]), err)
		}
		entry.Date = parsed
	}
	if m := tzPattern.FindStringSubmatch(head); m != nil {
		entry.TZLabel = m[1]
	}
	if m := durationPattern.FindStringSubmatch(header); m != nil {
		entry.Duration = m[1]
	}

	tagged := make(map[platform.Platform]bool)
	for _, line := range lines[1:] {
		if isTerminator(line) {
			continue
		}
		p, ok := platformTag(line)
		if !ok {
			if strings.TrimSpace(line) != "" {
				entry.Notes = append(entry.Notes, line)
			}
			continue
		}
		tagged[p] = true
		parsePlatformLine(entry, p, line)
	}

	for _, p := range platform.All() {
		if !tagged[p] {
			entry.Canonical = false
		}
	}

	// No platform lines at all means an older block shape; scrape whatever
	// URLs it holds so the ids are not lost on rewrite.
	if len(tagged) == 0 {
		scrapeLegacyLinks(entry, lines)
	}

	return entry, nil
}

func parsePlatformLine(entry *Entry, p platform.Platform, line string) {
	stripped := strings.TrimSpace(line)
	if strings.Contains(stripped, absenceMark) {
		entry.Absent[p] = true
		return
	}

	// Drop the file and chat icon links first so the remaining bracketed
	// link is the title.
	rest := fileLinkPattern.ReplaceAllString(stripped, "")
	var link Link
	if m := titlePattern.FindStringSubmatch(rest); m != nil {
		link.Title = m[1]
		link.URL = m[2]
	}
	entry.Links[p] = link
}

func scrapeLegacyLinks(entry *Entry, lines []string) {
	for _, line := range lines {
		if _, ok := entry.Links[platform.YouTube]; !ok {
			if m := legacyYouTubePattern.FindString(line); m != "" {
				entry.Links[platform.YouTube] = Link{URL: strings.TrimRight(m, ")")}
			}
		}
		if _, ok := entry.Links[platform.Twitch]; !ok {
			if m := legacyTwitchPattern.FindString(line); m != "" {
				entry.Links[platform.Twitch] = Link{URL: strings.TrimRight(m, ")")}
			}
		}
	}
}
