// Package textutil contains filename and title normalization helpers shared
// by the storage scanner and the entry builder.
package textutil

import (
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	indexPrefixPattern = regexp.MustCompile(`^\d+_`)
	idSuffixPattern    = regexp.MustCompile(`\s*\[[^\]]+\]\s*@\s*\d{4}-\d{2}-\d{2}_\d{2}-\d{2}$`)
)

// TitleFromFilename recovers a display title from an archive filename of the
// form "516_Some Title [VIDEOID] @ 2026-02-08_04-15.mp4": the index prefix,
// the id/timestamp suffix, and the extension are stripped, and the remainder
// is NFC-normalized so titles recovered from different filesystems compare
// equal.
func TitleFromFilename(filename string) string {
	name := strings.TrimSuffix(filename, filepath.Ext(filename))
	name = indexPrefixPattern.ReplaceAllString(name, "")
	name = idSuffixPattern.ReplaceAllString(name, "")
	return norm.NFC.String(strings.TrimSpace(name))
}

// fileNameReplacer mirrors yt-dlp's sanitize_filename substitutions for the
// characters that matter when predicting what a downloader will write.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName replaces filesystem-unsafe characters in a filename.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return strings.TrimSpace(fileNameReplacer.Replace(name))
}
