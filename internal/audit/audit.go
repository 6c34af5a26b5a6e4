// Package audit drives a full reconciliation run for one log entry: parse,
// scan, resolve, rebuild, confirm, write, then optionally fetch what the
// archive is missing and repeat the rewrite with the new files in place.
package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"vigil/internal/config"
	"vigil/internal/document"
	"vigil/internal/logging"
	"vigil/internal/platform"
	"vigil/internal/registry"
	"vigil/internal/resolve"
	"vigil/internal/services"
	"vigil/internal/services/downloader"
	"vigil/internal/storage"
	"vigil/internal/textutil"
)

// Confirmer answers the two questions a run asks the operator: apply this
// rewrite, and fetch these missing files.
type Confirmer interface {
	Confirm(prompt string, preview []string) bool
}

// Metadata fetches a single stream's metadata on demand, for titles the
// registry and the archive cannot supply.
type Metadata interface {
	Lookup(ctx context.Context, p platform.Platform, id string) (registry.Record, error)
}

// Fetcher downloads missing artifacts.
type Fetcher interface {
	Fetch(ctx context.Context, req downloader.Request) (downloader.Result, error)
}

// MissingFile names one artifact the archive lacks for a resolved stream.
type MissingFile struct {
	Platform platform.Platform
	Kind     storage.Kind
	VideoID  string
}

func (m MissingFile) Label() string {
	return fmt.Sprintf("%s %s", m.Platform.Tag(), m.Kind)
}

// Report summarizes a completed run for presentation.
type Report struct {
	Index        int
	RunID        string
	Entry        *document.Entry
	Finding      storage.Finding
	Resolutions  map[platform.Platform]resolve.Resolution
	Missing      []MissingFile
	StillMissing []MissingFile
	Written      bool
	Fetched      bool
}

// Options tunes one run.
type Options struct {
	// Overrides pins a platform's video id, bypassing every other source.
	Overrides map[platform.Platform]string
}

// Orchestrator wires the reconciliation components together. It holds no
// per-run state; Run may be called repeatedly.
type Orchestrator struct {
	cfg       *config.Config
	doc       *document.Document
	scanner   *storage.Scanner
	resolver  *resolve.Resolver
	catalog   *registry.Catalog
	metadata  Metadata
	fetcher   Fetcher
	confirmer Confirmer
	formatter document.Formatter
	logger    *slog.Logger
}

// New builds an orchestrator. metadata and fetcher may be nil; the run then
// skips title probes and download offers respectively.
func New(cfg *config.Config, catalog *registry.Catalog, resolver *resolve.Resolver, metadata Metadata, fetcher Fetcher, confirmer Confirmer, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		doc:      document.New(cfg.Paths.Document, logger),
		scanner:  storage.NewScanner(cfg.Paths.ArchiveDir, logger),
		resolver: resolver,
		catalog:  catalog,
		metadata: metadata,
		fetcher:  fetcher,
		confirmer: confirmer,
		formatter: document.Formatter{
			Vault:          cfg.Obsidian.Vault,
			ShellCommandID: cfg.Obsidian.ShellCommandID,
			ArchiveSubdir:  cfg.Obsidian.ArchiveSubdir,
			TwitchUser:     cfg.Twitch.User,
		},
		logger: logging.NewComponentLogger(logger, "audit"),
	}
}

// Run reconciles one entry. Only one run may touch the document at a time;
// concurrent invocations fail fast on the lock.
func (o *Orchestrator) Run(ctx context.Context, index int, opts Options) (*Report, error) {
	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	logger := o.logger.With(logging.String(logging.FieldRunID, runID))

	unlock, err := o.acquireLock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	report := &Report{Index: index, RunID: runID}

	entry, _, err := o.doc.Entry(index)
	if err != nil {
		return nil, err
	}
	if !entry.Dated() && !datelessResolvable(entry) {
		return nil, services.Wrap(services.ErrMalformed, "audit", "run",
			fmt.Sprintf("entry %d has no declared date and no identifiers to work from", index), nil)
	}
	report.Entry = entry

	logger.Info("audit started",
		logging.Int("index", index),
		logging.String("date", entry.DateRaw))

	finding := o.scanner.Scan(index)
	report.Finding = finding

	resolutions := o.resolver.ResolveAll(ctx, entry, finding, opts.Overrides)
	report.Resolutions = resolutions

	renders := o.buildRenders(ctx, entry, finding, resolutions)
	written, err := o.present(index, entry, finding, renders)
	if err != nil {
		return report, err
	}
	report.Written = written

	report.Missing = detectMissing(entry, finding, resolutions)
	if len(report.Missing) == 0 || o.fetcher == nil {
		report.StillMissing = report.Missing
		return report, nil
	}

	if !o.offerFetch(ctx, index, report.Missing) {
		report.StillMissing = report.Missing
		return report, nil
	}
	report.Fetched = true

	// Second pass with whatever the downloads produced. Resolutions stay
	// fixed; only the archive changed.
	finding = o.scanner.Scan(index)
	report.Finding = finding
	report.StillMissing = detectMissing(entry, finding, resolutions)

	renders = o.buildRenders(ctx, entry, finding, resolutions)
	written, err = o.present(index, entry, finding, renders)
	if err != nil {
		return report, err
	}
	report.Written = report.Written || written

	logger.Info("audit finished",
		logging.Int("index", index),
		logging.Bool("written", report.Written),
		logging.Int("still_missing", len(report.StillMissing)))
	return report, nil
}

// datelessResolvable reports whether an undated entry still carries enough
// identity to reconcile: an existing link or an id present in the header's
// block.
func datelessResolvable(entry *document.Entry) bool {
	for _, p := range platform.All() {
		if _, ok := entry.ID(p); ok {
			return true
		}
	}
	return false
}

// present rebuilds the block, asks for confirmation when it differs from
// what the document holds, and writes it. An unchanged block writes
// nothing.
func (o *Orchestrator) present(index int, entry *document.Entry, finding storage.Finding, renders map[platform.Platform]document.Render) (bool, error) {
	lines := o.formatter.Build(index, entry, finding, renders)

	block, err := o.doc.Locate(index)
	if err == nil && sameBlock(block, lines) {
		o.logger.Info("entry already normalized", logging.Int("index", index))
		return false, nil
	}

	if !o.confirmer.Confirm(fmt.Sprintf("Apply this rewrite to entry %d?", index), lines) {
		o.logger.Info("rewrite declined", logging.Int("index", index))
		return false, nil
	}
	if err := o.doc.Replace(index, lines); err != nil {
		return false, err
	}
	return true, nil
}

// sameBlock compares the rebuilt lines to the located block, ignoring the
// trailing separator the patcher manages.
func sameBlock(block document.Block, lines []string) bool {
	existing := block.Lines
	if block.Terminated() {
		existing = existing[:len(existing)-1]
	}
	if len(existing) != len(lines) {
		return false
	}
	for i := range lines {
		if existing[i] != lines[i] {
			return false
		}
	}
	return true
}

// buildRenders resolves the display title and duration for each platform.
// Title priority: registry record for the resolved id, then the archive
// filename, then an on-demand metadata probe (written back into the
// registry), then whatever title the entry already showed.
func (o *Orchestrator) buildRenders(ctx context.Context, entry *document.Entry, finding storage.Finding, resolutions map[platform.Platform]resolve.Resolution) map[platform.Platform]document.Render {
	renders := make(map[platform.Platform]document.Render, len(platform.All()))
	for _, p := range platform.All() {
		if entry.Absent[p] {
			continue
		}
		render := document.Render{VideoID: resolutions[p].VideoID}

		if render.VideoID != "" {
			if record, ok := o.lookupRecord(ctx, p, render.VideoID); ok {
				render.Title = record.Title
				render.Duration = record.Duration
			}
		}
		if render.Title == "" {
			render.Title = titleFromArchive(finding, p)
		}
		if render.Title == "" && render.VideoID != "" {
			if record, ok := o.probeRecord(ctx, p, render.VideoID); ok {
				render.Title = record.Title
				if render.Duration == 0 {
					render.Duration = record.Duration
				}
			}
		}
		if render.Title == "" {
			render.Title = entry.Title(p)
		}
		renders[p] = render
	}
	return renders
}

func (o *Orchestrator) lookupRecord(ctx context.Context, p platform.Platform, id string) (registry.Record, bool) {
	record, found, err := o.catalog.Store().GetByKey(ctx, p, id)
	if err != nil {
		o.logger.Warn("registry lookup failed", logging.String("id", id), logging.Error(err))
		return registry.Record{}, false
	}
	return record, found
}

// probeRecord asks the platform collaborator for metadata and backfills the
// registry so the next run answers from cache.
func (o *Orchestrator) probeRecord(ctx context.Context, p platform.Platform, id string) (registry.Record, bool) {
	if o.metadata == nil {
		return registry.Record{}, false
	}
	record, err := o.metadata.Lookup(ctx, p, id)
	if err != nil {
		o.logger.Warn("metadata probe failed",
			logging.String("platform", string(p)),
			logging.String("id", id),
			logging.Error(err))
		return registry.Record{}, false
	}
	if err := o.catalog.Store().Upsert(ctx, record); err != nil {
		o.logger.Warn("registry backfill failed", logging.String("id", id), logging.Error(err))
	}
	return record, true
}

func titleFromArchive(finding storage.Finding, p platform.Platform) string {
	for _, kind := range storage.Kinds() {
		if name, ok := finding.File(p, kind); ok {
			return textutil.TitleFromFilename(name)
		}
	}
	return ""
}

// detectMissing lists artifacts absent from the archive for every platform
// that resolved to an id and is not marked stream-less.
func detectMissing(entry *document.Entry, finding storage.Finding, resolutions map[platform.Platform]resolve.Resolution) []MissingFile {
	var missing []MissingFile
	for _, p := range platform.All() {
		if entry.Absent[p] {
			continue
		}
		id := resolutions[p].VideoID
		if id == "" {
			continue
		}
		for _, kind := range storage.Kinds() {
			if _, ok := finding.File(p, kind); !ok {
				missing = append(missing, MissingFile{Platform: p, Kind: kind, VideoID: id})
			}
		}
	}
	return missing
}

// offerFetch asks once and runs one download pass per platform. Failures
// are reported, never retried.
func (o *Orchestrator) offerFetch(ctx context.Context, index int, missing []MissingFile) bool {
	preview := make([]string, 0, len(missing))
	for _, m := range missing {
		preview = append(preview, fmt.Sprintf("%s: %s", m.Label(), platform.StreamURL(m.Platform, o.cfg.Twitch.User, m.VideoID)))
	}
	if !o.confirmer.Confirm("Download missing files?", preview) {
		return false
	}

	byPlatform := make(map[platform.Platform][]MissingFile)
	for _, m := range missing {
		byPlatform[m.Platform] = append(byPlatform[m.Platform], m)
	}

	fetched := false
	for _, p := range platform.All() {
		group := byPlatform[p]
		if len(group) == 0 {
			continue
		}
		kind := downloadKind(group)
		result, err := o.fetcher.Fetch(ctx, downloader.Request{
			Platform:    p,
			VideoID:     group[0].VideoID,
			IndexPrefix: index,
			Kind:        kind,
			OutputDir:   o.cfg.Paths.ArchiveDir,
		})
		if err != nil {
			o.logger.Warn("download failed",
				logging.String("platform", string(p)),
				logging.Error(err))
			continue
		}
		if result.VideoFetched || result.ChatFetched {
			fetched = true
		}
	}
	return fetched
}

func downloadKind(group []MissingFile) downloader.Kind {
	video, chat := false, false
	for _, m := range group {
		switch m.Kind {
		case storage.KindVideo:
			video = true
		case storage.KindChat:
			chat = true
		}
	}
	switch {
	case video && chat:
		return downloader.KindBoth
	case video:
		return downloader.KindVideo
	default:
		return downloader.KindChat
	}
}

// acquireLock takes the single-run file lock under the cache directory.
func (o *Orchestrator) acquireLock() (func(), error) {
	if err := os.MkdirAll(o.cfg.Paths.CacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	lockPath := filepath.Join(o.cfg.Paths.CacheDir, "vigil.lock")
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return nil, errors.New("another vigil run holds the lock")
	}
	return func() { _ = lock.Unlock() }, nil
}
