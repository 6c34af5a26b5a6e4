package textutil_test

import (
	"testing"

	"vigil/internal/textutil"
)

func TestTitleFromFilename(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"516_Morning Stream [60L3NObe9M8] @ 2026-02-08_04-15.mp4", "Morning Stream"},
		{"516_Morning Stream [316307569766] @ 2026-02-08_04-15.json", "Morning Stream"},
		{"9_Title with [brackets] inside [60L3NObe9M8] @ 2026-02-08_04-15.mp4", "Title with [brackets] inside"},
		{"plain-file.mp4", "plain-file"},
		{"516_No suffix here.mp4", "No suffix here"},
	}
	for _, tc := range cases {
		if got := textutil.TitleFromFilename(tc.in); got != tc.want {
			t.Errorf("TitleFromFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSanitizeFileName(t *testing.T) {
	if got := textutil.SanitizeFileName(`What: a "stream"?`); got != "What- a stream" {
		t.Errorf("SanitizeFileName = %q", got)
	}
	if got := textutil.SanitizeFileName("  "); got != "" {
		t.Errorf("expected empty result, got %q", got)
	}
}
