// Package document reads, parses, rebuilds, and patches the human-editable
// livestream log. The log is a plain Markdown checklist where each broadcast
// session is one indexed block; everything in a block that the grammar does
// not recognize belongs to the human and must survive a rewrite byte for
// byte.
package document

import (
	"regexp"
	"strconv"
	"time"

	"vigil/internal/platform"
)

// Link is a platform sub-line's extracted URL and display title.
type Link struct {
	URL   string
	Title string
}

// Entry is the parsed view of one log block. Index is assigned externally
// and is the only key by which the block is located in the document.
type Entry struct {
	Index    int
	Checkbox string // "[ ]" or "[x]", preserved verbatim
	DateRaw  string // "2026.02.08 04:15", empty when the header carries no date
	Date     time.Time
	TZLabel  string // "(GMT-6)", empty when absent
	Duration string // previously recorded "H:MM:SS", empty when absent

	Links  map[platform.Platform]Link
	Absent map[platform.Platform]bool

	// Notes holds every in-block line that is neither the header, a
	// recognized platform line, nor the terminator, verbatim and in order.
	Notes []string

	// Canonical reports whether the block already follows the expected
	// shape (header grammar plus one line per platform). A non-canonical
	// block still parses but always warrants a rewrite.
	Canonical bool
}

// ID returns the video id embedded in the entry's existing link for a
// platform, if any.
func (e *Entry) ID(p platform.Platform) (string, bool) {
	link, ok := e.Links[p]
	if !ok || link.URL == "" {
		return "", false
	}
	owner, id, ok := platform.IDFromURL(link.URL)
	if !ok || owner != p {
		return "", false
	}
	return id, true
}

// Title returns the display title already recorded on the platform line.
func (e *Entry) Title(p platform.Platform) string {
	return e.Links[p].Title
}

// Dated reports whether the entry carries a parseable declared date.
func (e *Entry) Dated() bool {
	return !e.Date.IsZero()
}

var tzOffsetPattern = regexp.MustCompile(`GMT([+-]\d{1,2})`)

// StartUTC converts the entry's declared local time to UTC using its
// timezone label. A missing or unrecognized label leaves the time as
// declared.
func (e *Entry) StartUTC() (time.Time, bool) {
	if e.Date.IsZero() {
		return time.Time{}, false
	}
	m := tzOffsetPattern.FindStringSubmatch(e.TZLabel)
	if m == nil {
		return e.Date.UTC(), true
	}
	hours, err := strconv.Atoi(m[1])
	if err != nil {
		return e.Date.UTC(), true
	}
	zone := time.FixedZone("GMT"+m[1], hours*3600)
	local := time.Date(e.Date.Year(), e.Date.Month(), e.Date.Day(),
		e.Date.Hour(), e.Date.Minute(), 0, 0, zone)
	return local.UTC(), true
}
