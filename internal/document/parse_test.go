package document

import (
	"errors"
	"testing"
	"time"

	"vigil/internal/platform"
	"vigil/internal/services"
)

func TestParseBlockCanonicalEntry(t *testing.T) {
	lines := []string{
		"- [x] **516** : 2026.02.08 04:15 (GMT-6) [2:10:05]  ",
		"\t`YT` [📁](obsidian://shell-commands/?vault=archives&execute=abc&_arg0=raws%2Ffile) [📄]() [ Morning Zatsudan ](https://www.youtube.com/watch?v=dQw4w9WgXcQ)",
		"\t`TW` [📁]() [📄]() [ untitled ](https://www.twitch.tv/somestreamer/video/316307569766)",
		"\t- [ ] clip the intro",
		"some stray remark",
		"---",
	}

	entry, err := ParseBlock(lines, 516)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if entry.Checkbox != "[x]" {
		t.Errorf("checkbox: got %q", entry.Checkbox)
	}
	if entry.DateRaw != "2026.02.08 04:15" || entry.TZLabel != "(GMT-6)" {
		t.Errorf("date/tz: got %q %q", entry.DateRaw, entry.TZLabel)
	}
	if entry.Duration != "2:10:05" {
		t.Errorf("duration: got %q", entry.Duration)
	}
	if !entry.Canonical {
		t.Error("expected canonical entry")
	}

	if id, ok := entry.ID(platform.YouTube); !ok || id != "dQw4w9WgXcQ" {
		t.Errorf("youtube id: got %q ok=%v", id, ok)
	}
	if entry.Title(platform.YouTube) != "Morning Zatsudan" {
		t.Errorf("youtube title: got %q", entry.Title(platform.YouTube))
	}
	if id, ok := entry.ID(platform.Twitch); !ok || id != "316307569766" {
		t.Errorf("twitch id: got %q ok=%v", id, ok)
	}

	want := []string{"\t- [ ] clip the intro", "some stray remark"}
	if len(entry.Notes) != len(want) {
		t.Fatalf("notes: got %v", entry.Notes)
	}
	for i := range want {
		if entry.Notes[i] != want[i] {
			t.Errorf("note %d: got %q want %q", i, entry.Notes[i], want[i])
		}
	}
}

func TestParseBlockAbsenceMarker(t *testing.T) {
	lines := []string{
		"- [ ] **12** : 2026.01.05 20:00 (GMT-6)  ",
		"\t`YT` [📁]() [📄]() [ Karaoke Night ](https://www.youtube.com/watch?v=aBcDeFgHiJk)",
		"\t`TW` ✗ no stream",
	}

	entry, err := ParseBlock(lines, 12)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !entry.Absent[platform.Twitch] {
		t.Error("expected twitch absence marker")
	}
	if entry.Absent[platform.YouTube] {
		t.Error("unexpected youtube absence marker")
	}
	if !entry.Canonical {
		t.Error("absence line still counts as a platform line")
	}
}

func TestParseBlockLegacyScrapesURLs(t *testing.T) {
	lines := []string{
		"- [ ] [303_old style entry](https://www.youtube.com/watch?v=aBcDeFgHiJk)",
		"\t2026.01.02 18:30 (GMT-6)",
		"\tmirror: https://www.twitch.tv/somestreamer/video/123456789012",
	}

	entry, err := ParseBlock(lines, 303)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if entry.Canonical {
		t.Error("legacy block must not be canonical")
	}
	if id, ok := entry.ID(platform.YouTube); !ok || id != "aBcDeFgHiJk" {
		t.Errorf("youtube id: got %q ok=%v", id, ok)
	}
	if id, ok := entry.ID(platform.Twitch); !ok || id != "123456789012" {
		t.Errorf("twitch id: got %q ok=%v", id, ok)
	}
	if entry.DateRaw != "2026.01.02 18:30" {
		t.Errorf("date: got %q", entry.DateRaw)
	}
}

func TestParseBlockUnparseableDate(t *testing.T) {
	lines := []string{"- [ ] **7** : 2026.13.40 99:99 (GMT-6)  "}

	_, err := ParseBlock(lines, 7)
	if !errors.Is(err, services.ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestParseBlockMissingDateIsNotAnError(t *testing.T) {
	lines := []string{
		"- [ ] **8** :  ",
		"\t`YT` [📁]() [📄]() [ untitled ]()",
		"\t`TW` [📁]() [📄]() [ untitled ]()",
	}

	entry, err := ParseBlock(lines, 8)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if entry.Dated() {
		t.Error("expected undated entry")
	}
}

func TestStartUTCAppliesTimezoneLabel(t *testing.T) {
	entry := &Entry{
		Date:    time.Date(2026, 2, 8, 4, 15, 0, 0, time.UTC),
		TZLabel: "(GMT-6)",
	}
	got, ok := entry.StartUTC()
	if !ok {
		t.Fatal("expected a start time")
	}
	want := time.Date(2026, 2, 8, 10, 15, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v want %v", got, want)
	}

	entry.TZLabel = ""
	got, _ = entry.StartUTC()
	if !got.Equal(time.Date(2026, 2, 8, 4, 15, 0, 0, time.UTC)) {
		t.Errorf("no label should leave the time as declared, got %v", got)
	}
}
