package audit

import (
	"context"
	"fmt"

	"vigil/internal/platform"
	"vigil/internal/registry"
	"vigil/internal/services"
	"vigil/internal/services/helix"
	"vigil/internal/services/ytdlp"
)

// PlatformMetadata implements Metadata over the real collaborators: yt-dlp
// probes for YouTube, Helix lookups for Twitch. Either client may be nil,
// in which case that platform's lookups fail as recoverable.
type PlatformMetadata struct {
	YouTube    *ytdlp.CLI
	Twitch     *helix.Client
	TwitchUser string
}

// Lookup implements Metadata.
func (m *PlatformMetadata) Lookup(ctx context.Context, p platform.Platform, id string) (registry.Record, error) {
	switch p {
	case platform.YouTube:
		if m.YouTube == nil {
			return registry.Record{}, services.Wrap(services.ErrNotFound, "audit", "metadata", "no youtube client configured", nil)
		}
		info, err := m.YouTube.Probe(ctx, platform.StreamURL(p, "", id))
		if err != nil {
			return registry.Record{}, err
		}
		return registry.Record{
			Platform:  platform.YouTube,
			ID:        info.ID,
			Title:     info.Title,
			StartTime: info.Start,
			Duration:  info.Duration,
			Origin:    registry.OriginFetched,
		}, nil
	case platform.Twitch:
		if m.Twitch == nil {
			return registry.Record{}, services.Wrap(services.ErrNotFound, "audit", "metadata", "no twitch client configured", nil)
		}
		video, err := m.Twitch.GetVideo(ctx, id)
		if err != nil {
			return registry.Record{}, err
		}
		return registry.Record{
			Platform:  platform.Twitch,
			ID:        video.ID,
			Title:     video.Title,
			StartTime: video.CreatedAt,
			Duration:  video.Duration,
			Origin:    registry.OriginFetched,
		}, nil
	default:
		return registry.Record{}, fmt.Errorf("unknown platform %q", p)
	}
}

var _ Metadata = (*PlatformMetadata)(nil)
