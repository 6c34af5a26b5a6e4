// Package platform defines the two supported broadcast services and the
// lexical rules that tell their video identifiers apart.
package platform

import (
	"fmt"
	"net/url"
	"strings"
)

// Platform identifies a broadcast service.
type Platform string

const (
	YouTube Platform = "youtube"
	Twitch  Platform = "twitch"
)

// All returns the supported platforms in display order.
func All() []Platform {
	return []Platform{YouTube, Twitch}
}

// Parse converts a user-supplied platform name to a Platform.
func Parse(value string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "youtube", "yt":
		return YouTube, nil
	case "twitch", "tw":
		return Twitch, nil
	default:
		return "", fmt.Errorf("unknown platform %q (expected youtube or twitch)", value)
	}
}

// Tag returns the two-letter tag used on document platform lines.
func (p Platform) Tag() string {
	switch p {
	case YouTube:
		return "YT"
	case Twitch:
		return "TW"
	default:
		return "??"
	}
}

// Label returns a short human-readable name for console output.
func (p Platform) Label() string {
	switch p {
	case YouTube:
		return "YouTube"
	case Twitch:
		return "Twitch"
	default:
		return string(p)
	}
}

// Classify determines which platform owns a video identifier by its lexical
// shape. YouTube ids are 11 alphanumeric characters; Twitch VOD ids are
// longer and strictly numeric.
func Classify(id string) Platform {
	if len(id) > 11 && isDigits(id) {
		return Twitch
	}
	return YouTube
}

func isDigits(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// StreamURL builds the canonical watch URL for a video id. The Twitch form
// embeds the channel login, matching how the log document records VOD links.
func StreamURL(p Platform, twitchUser, id string) string {
	if p == Twitch {
		return fmt.Sprintf("https://www.twitch.tv/%s/video/%s", twitchUser, id)
	}
	return "https://www.youtube.com/watch?v=" + id
}

// IDFromURL extracts the platform and video id from a watch URL. It accepts
// the youtube.com/watch?v=, youtube.com/live/, youtu.be/ and
// twitch.tv/<user>/video(s)/<id> forms. Returns false when the URL carries no
// recognizable identifier.
func IDFromURL(raw string) (Platform, string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", false
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", "", false
	}

	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
	segments := splitPath(parsed.EscapedPath())

	switch host {
	case "youtube.com", "m.youtube.com":
		if id := parsed.Query().Get("v"); id != "" {
			return YouTube, id, true
		}
		if len(segments) >= 2 && (segments[0] == "live" || segments[0] == "shorts" || segments[0] == "embed") {
			return YouTube, segments[1], true
		}
	case "youtu.be":
		if len(segments) >= 1 {
			return YouTube, segments[0], true
		}
	case "twitch.tv", "m.twitch.tv":
		// twitch.tv/videos/<id> or twitch.tv/<user>/video/<id>
		for i, segment := range segments {
			if (segment == "video" || segment == "videos") && i+1 < len(segments) {
				if isDigits(segments[i+1]) {
					return Twitch, segments[i+1], true
				}
			}
		}
	}
	return "", "", false
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
