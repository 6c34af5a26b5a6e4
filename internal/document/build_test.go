package document

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"vigil/internal/logging"
	"vigil/internal/platform"
	"vigil/internal/storage"
)

func testFormatter() Formatter {
	return Formatter{
		Vault:          "archives",
		ShellCommandID: "testcmd01",
		ArchiveSubdir:  "raws",
		TwitchUser:     "somestreamer",
	}
}

func findingWith(t *testing.T, names ...string) storage.Finding {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return storage.NewScanner(dir, logging.NewNop()).Scan(516)
}

func TestBuildFullEntry(t *testing.T) {
	entry := &Entry{
		Index:    516,
		Checkbox: "[ ]",
		DateRaw:  "2026.02.08 04:15",
		TZLabel:  "(GMT-6)",
		Notes:    []string{"\t- [ ] clip the intro"},
	}
	finding := findingWith(t,
		"516_Morning Zatsudan [dQw4w9WgXcQ] @ 2026-02-08_04-15.mp4",
		"516_Morning Zatsudan [dQw4w9WgXcQ] @ 2026-02-08_04-15.json",
	)
	renders := map[platform.Platform]Render{
		platform.YouTube: {VideoID: "dQw4w9WgXcQ", Title: "Morning Zatsudan", Duration: 2*time.Hour + 10*time.Minute + 5*time.Second},
		platform.Twitch:  {VideoID: "316307569766", Title: "Morning Zatsudan"},
	}

	lines := testFormatter().Build(516, entry, finding, renders)

	if lines[0] != "- [ ] **516** : 2026.02.08 04:15 (GMT-6) [2:10:05]  " {
		t.Errorf("header: %q", lines[0])
	}
	yt := lines[1]
	if !strings.HasPrefix(yt, "\t`YT` ") {
		t.Errorf("youtube line: %q", yt)
	}
	if !strings.Contains(yt, "obsidian://shell-commands/?vault=archives&execute=testcmd01&_arg0=raws/516_Morning%20Zatsudan%20%5BdQw4w9WgXcQ%5D%20%40%202026-02-08_04-15.mp4") {
		t.Errorf("video shell link: %q", yt)
	}
	if !strings.Contains(yt, "[ Morning Zatsudan ](https://www.youtube.com/watch?v=dQw4w9WgXcQ)") {
		t.Errorf("title link: %q", yt)
	}
	tw := lines[2]
	if !strings.Contains(tw, "[📁]() [📄]()") {
		t.Errorf("twitch file links should be empty: %q", tw)
	}
	if !strings.Contains(tw, "(https://www.twitch.tv/somestreamer/video/316307569766)") {
		t.Errorf("twitch url: %q", tw)
	}
	if lines[3] != "\t- [ ] clip the intro" {
		t.Errorf("note not appended verbatim: %q", lines[3])
	}
}

func TestBuildAbsenceLineAndMissingID(t *testing.T) {
	entry := &Entry{
		Index:    12,
		Checkbox: "[ ]",
		DateRaw:  "2026.01.05 20:00",
		TZLabel:  "(GMT-6)",
		Absent:   map[platform.Platform]bool{platform.Twitch: true},
	}
	renders := map[platform.Platform]Render{
		platform.YouTube: {}, // nothing resolved
	}

	lines := testFormatter().Build(12, entry, storage.Finding{}, renders)

	if lines[1] != "\t`YT` [📁]() [📄]() [ untitled ]()" {
		t.Errorf("unresolved youtube line: %q", lines[1])
	}
	if lines[2] != "\t`TW` ✗ no stream" {
		t.Errorf("absence line: %q", lines[2])
	}
}

func TestBuildKeepsRecordedDurationWhenRegistrySilent(t *testing.T) {
	entry := &Entry{
		Index:    9,
		Checkbox: "[x]",
		DateRaw:  "2026.01.01 12:00",
		TZLabel:  "(GMT-6)",
		Duration: "1:05:00",
	}
	lines := testFormatter().Build(9, entry, storage.Finding{}, nil)
	if !strings.Contains(lines[0], "[1:05:00]") {
		t.Errorf("recorded duration dropped: %q", lines[0])
	}

	entry.Duration = ""
	lines = testFormatter().Build(9, entry, storage.Finding{}, nil)
	if lines[0] != "- [x] **9** : 2026.01.01 12:00 (GMT-6)  " {
		t.Errorf("expected duration omitted: %q", lines[0])
	}
}

func TestBuildIsIdempotent(t *testing.T) {
	entry := &Entry{
		Index:    516,
		Checkbox: "[ ]",
		DateRaw:  "2026.02.08 04:15",
		TZLabel:  "(GMT-6)",
		Notes:    []string{"remark one", "\t- [ ] remark two"},
	}
	finding := findingWith(t, "516_Stream [dQw4w9WgXcQ] @ 2026-02-08_04-15.mp4")
	renders := map[platform.Platform]Render{
		platform.YouTube: {VideoID: "dQw4w9WgXcQ", Title: "Stream", Duration: time.Hour},
		platform.Twitch:  {Title: "Stream"},
	}

	first := testFormatter().Build(516, entry, finding, renders)

	// Parse the built block and rebuild from the reparsed entry.
	reparsed, err := ParseBlock(first, 516)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	second := testFormatter().Build(516, reparsed, finding, renders)

	if strings.Join(first, "\n") != strings.Join(second, "\n") {
		t.Errorf("rebuild changed bytes:\nfirst:\n%s\nsecond:\n%s",
			strings.Join(first, "\n"), strings.Join(second, "\n"))
	}
}
