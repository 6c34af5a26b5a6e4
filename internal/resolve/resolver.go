// Package resolve determines the true video identifier for an entry's
// platform from the available sources, in a strict priority order. A miss
// is a normal outcome, not an error.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"vigil/internal/document"
	"vigil/internal/logging"
	"vigil/internal/platform"
	"vigil/internal/registry"
	"vigil/internal/services"
	"vigil/internal/storage"
)

// Source names where a resolution's video id came from. Higher sources in
// the chain always win; a registry match never overrides an id the user or
// the archive already pinned down.
type Source string

const (
	SourceOverride      Source = "explicit-override"
	SourceDocumentURL   Source = "document-url"
	SourceStorageFile   Source = "storage-file"
	SourceRegistryExact Source = "registry-match-exact"
	SourceRegistryFuzzy Source = "registry-match-fuzzy"
	SourceNone          Source = "none"
)

// Resolution is the per-platform outcome of one resolver run. It is
// ephemeral; nothing persists it.
type Resolution struct {
	VideoID string
	Source  Source
	Note    string
}

// Found reports whether the resolution carries an id.
func (r Resolution) Found() bool {
	return r.VideoID != ""
}

// Resolver walks the priority chain. The registry step is the only one that
// talks to the outside world, and only to refresh a stale partition.
type Resolver struct {
	catalog *registry.Catalog
	maxSkew time.Duration
	fuzzy   time.Duration
	logger  *slog.Logger
}

func New(catalog *registry.Catalog, maxSkew, fuzzy time.Duration, logger *slog.Logger) *Resolver {
	return &Resolver{
		catalog: catalog,
		maxSkew: maxSkew,
		fuzzy:   fuzzy,
		logger:  logging.NewComponentLogger(logger, "resolve"),
	}
}

// Resolve returns the best identifier for one platform of an entry.
// Override beats the entry's own URL, which beats an archived file's
// embedded id, which beats a registry date lookup. The chain short-circuits
// at the first hit.
func (r *Resolver) Resolve(ctx context.Context, p platform.Platform, entry *document.Entry, finding storage.Finding, override string) Resolution {
	if override != "" {
		return Resolution{VideoID: override, Source: SourceOverride}
	}

	if id, ok := entry.ID(p); ok {
		return Resolution{VideoID: id, Source: SourceDocumentURL}
	}

	if id, ok := finding.ID(p); ok {
		return Resolution{VideoID: id, Source: SourceStorageFile}
	}

	target, ok := entry.StartUTC()
	if !ok {
		return Resolution{Source: SourceNone, Note: "entry has no declared date"}
	}

	r.catalog.EnsureFresh(ctx, p, target)

	match, err := r.catalog.Store().FindNear(ctx, p, target, r.maxSkew, r.fuzzy)
	if err != nil {
		if !errors.Is(err, services.ErrNotFound) {
			r.logger.Warn("registry lookup failed",
				logging.String("platform", string(p)),
				logging.Error(err))
		}
		return Resolution{Source: SourceNone}
	}

	resolution := Resolution{
		VideoID: match.Record.ID,
		Source:  SourceRegistryExact,
		Note:    fmt.Sprintf("matched %s, skew %s", match.Record.StartTime.Format("2006-01-02 15:04"), formatSkew(match.Skew)),
	}
	if match.DayMatch {
		resolution.Note = fmt.Sprintf("matched by day %s", match.Record.StartTime.Format("2006-01-02"))
	}
	if match.Fuzzy {
		resolution.Source = SourceRegistryFuzzy
	}
	return resolution
}

// ResolveAll runs the chain for every platform. Platforms the entry marks
// absent resolve to none without consulting anything.
func (r *Resolver) ResolveAll(ctx context.Context, entry *document.Entry, finding storage.Finding, overrides map[platform.Platform]string) map[platform.Platform]Resolution {
	results := make(map[platform.Platform]Resolution, len(platform.All()))
	for _, p := range platform.All() {
		if entry.Absent[p] {
			results[p] = Resolution{Source: SourceNone, Note: "marked as no stream"}
			continue
		}
		results[p] = r.Resolve(ctx, p, entry, finding, overrides[p])
	}
	return results
}

func formatSkew(skew time.Duration) string {
	if skew < 0 {
		skew = -skew
	}
	return skew.Round(time.Minute).String()
}
