package registry

import (
	"context"
	"log/slog"
	"time"

	"vigil/internal/logging"
	"vigil/internal/platform"
)

// Listing fetches the most recent stream records for one platform, newest
// first, up to the requested count. Implementations live under
// internal/services.
type Listing interface {
	Recent(ctx context.Context, limit int) ([]Record, error)
}

// Listing depths. The incremental window only needs to cover streams since
// the last refresh; the deep window covers months of history for a cold
// cache.
const (
	shallowDepthYouTube = 30
	deepDepthYouTube    = 100
	shallowDepthTwitch  = 100
	deepDepthTwitch     = 200
)

// Catalog couples the registry store with the per-platform listing
// collaborators and decides when a lookup needs a refresh first.
type Catalog struct {
	store   *Store
	sources map[platform.Platform]Listing
	logger  *slog.Logger
}

// NewCatalog builds a catalog over a store. Sources are optional; a platform
// without a listing source simply never refreshes.
func NewCatalog(store *Store, logger *slog.Logger) *Catalog {
	return &Catalog{
		store:   store,
		sources: make(map[platform.Platform]Listing),
		logger:  logging.NewComponentLogger(logger, "catalog"),
	}
}

// SetSource registers the listing collaborator for a platform.
func (c *Catalog) SetSource(p platform.Platform, source Listing) {
	if source != nil {
		c.sources[p] = source
	}
}

// Store exposes the underlying record store.
func (c *Catalog) Store() *Store {
	return c.store
}

// Refresh fetches a platform's listing and merges it into the registry.
// Returns false, without mutating state, when the platform has no source,
// the fetch fails, or it yields zero parsable records.
func (c *Catalog) Refresh(ctx context.Context, p platform.Platform, full bool) bool {
	source, ok := c.sources[p]
	if !ok {
		c.logger.Warn("no listing source configured", logging.String("platform", string(p)))
		return false
	}

	depth := listingDepth(p, full)
	c.logger.Info("refreshing registry",
		logging.String("platform", string(p)),
		logging.Bool("full", full),
		logging.Int("depth", depth))

	fetched, err := source.Recent(ctx, depth)
	if err != nil {
		c.logger.Warn("listing fetch failed",
			logging.String("platform", string(p)),
			logging.Error(err))
		return false
	}
	if len(fetched) == 0 {
		c.logger.Warn("listing returned no records", logging.String("platform", string(p)))
		return false
	}

	applied, err := c.store.Merge(ctx, p, fetched)
	if err != nil {
		c.logger.Warn("registry merge failed",
			logging.String("platform", string(p)),
			logging.Error(err))
		return false
	}

	c.logger.Info("registry refreshed",
		logging.String("platform", string(p)),
		logging.Int("fetched", len(fetched)),
		logging.Int("applied", applied))
	return true
}

// EnsureFresh refreshes a platform when a lookup for targetDay could not be
// answered from the cache: a cold partition triggers a full refresh, and a
// target newer than the newest cached day triggers an incremental one.
func (c *Catalog) EnsureFresh(ctx context.Context, p platform.Platform, target time.Time) {
	count, err := c.store.Count(ctx, p)
	if err != nil {
		c.logger.Warn("registry count failed", logging.Error(err))
		return
	}
	if count == 0 {
		c.Refresh(ctx, p, true)
		return
	}

	newest, ok, err := c.store.NewestStart(ctx, p)
	if err != nil || !ok {
		return
	}
	if calendarDay(target).After(calendarDay(newest)) {
		c.Refresh(ctx, p, false)
	}
}

func listingDepth(p platform.Platform, full bool) int {
	switch p {
	case platform.Twitch:
		if full {
			return deepDepthTwitch
		}
		return shallowDepthTwitch
	default:
		if full {
			return deepDepthYouTube
		}
		return shallowDepthYouTube
	}
}

func calendarDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
