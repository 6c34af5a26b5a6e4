package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"vigil/internal/logging"
	"vigil/internal/platform"
)

// legacyCache is the nested shape the pre-SQLite cache file used. It is read
// once, folded into the database, and the file renamed so the upgrade never
// runs twice.
type legacyCache struct {
	YouTube struct {
		Streams []struct {
			ID         string `json:"id"`
			Title      string `json:"title"`
			UploadDate string `json:"upload_date"`
		} `json:"streams"`
	} `json:"youtube"`
	Twitch struct {
		VODs []struct {
			ID        string `json:"id"`
			Title     string `json:"title"`
			CreatedAt string `json:"created_at"`
		} `json:"vods"`
	} `json:"twitch"`
}

func (s *Store) importLegacyCache(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read legacy cache: %w", err)
	}

	// Only seed a cold registry; an already-populated database is newer
	// than anything the old file could add.
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM stream_records`).Scan(&total); err != nil {
		return fmt.Errorf("count records: %w", err)
	}
	if total > 0 {
		return nil
	}

	var cache legacyCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return fmt.Errorf("parse legacy cache: %w", err)
	}

	imported := 0
	for _, stream := range cache.YouTube.Streams {
		start, err := time.Parse("20060102", stream.UploadDate)
		if err != nil {
			continue
		}
		rec := Record{
			Platform:  platform.YouTube,
			ID:        stream.ID,
			Title:     stream.Title,
			StartTime: start.UTC(),
			Origin:    OriginFetched,
		}
		if err := s.Upsert(ctx, rec); err != nil {
			return err
		}
		imported++
	}
	for _, vod := range cache.Twitch.VODs {
		start, err := time.Parse(time.RFC3339, vod.CreatedAt)
		if err != nil {
			continue
		}
		rec := Record{
			Platform:  platform.Twitch,
			ID:        vod.ID,
			Title:     vod.Title,
			StartTime: start.UTC(),
			Origin:    OriginFetched,
		}
		if err := s.Upsert(ctx, rec); err != nil {
			return err
		}
		imported++
	}

	if err := os.Rename(path, path+".imported"); err != nil {
		return fmt.Errorf("retire legacy cache: %w", err)
	}
	s.logger.Info("imported legacy stream cache",
		logging.Int("records", imported),
		logging.String("path", path))
	return nil
}
