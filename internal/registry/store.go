package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"vigil/internal/config"
	"vigil/internal/logging"
	"vigil/internal/platform"
	"vigil/internal/services"
)

// Store manages registry persistence backed by SQLite.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// Open initializes or connects to the registry database. A database that
// cannot be opened or whose schema cannot be read is moved aside and
// recreated empty, so callers always get a working (possibly cold) registry.
func Open(cfg *config.Config, logger *slog.Logger) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	logger = logging.NewComponentLogger(logger, "registry")

	dbPath := filepath.Join(cfg.Paths.CacheDir, "registry.db")
	store, err := open(dbPath, logger)
	if err != nil {
		quarantine := dbPath + ".corrupt-" + time.Now().UTC().Format("20060102T150405")
		logger.Warn("registry database unusable, starting cold",
			logging.Error(err),
			logging.String("moved_to", quarantine))
		if renameErr := os.Rename(dbPath, quarantine); renameErr != nil && !errors.Is(renameErr, os.ErrNotExist) {
			return nil, fmt.Errorf("quarantine registry database: %w", renameErr)
		}
		store, err = open(dbPath, logger)
		if err != nil {
			return nil, fmt.Errorf("recreate registry database: %w", err)
		}
	}

	if err := store.importLegacyCache(context.Background(), filepath.Join(cfg.Paths.CacheDir, "stream_cache.json")); err != nil {
		// Legacy import is best effort; a bad old cache never blocks a run.
		logger.Warn("legacy cache import skipped", logging.Error(err))
	}

	return store, nil
}

func open(dbPath string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath, logger: logger}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Upsert inserts or replaces a record by (platform, id).
func (s *Store) Upsert(ctx context.Context, rec Record) error {
	if strings.TrimSpace(rec.ID) == "" {
		return errors.New("record id is empty")
	}
	if rec.Origin == "" {
		rec.Origin = OriginFetched
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO stream_records (platform, video_id, title, start_time, duration_seconds, origin, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT (platform, video_id) DO UPDATE SET
             title = excluded.title,
             start_time = excluded.start_time,
             duration_seconds = excluded.duration_seconds,
             origin = excluded.origin,
             updated_at = excluded.updated_at`,
		string(rec.Platform),
		rec.ID,
		rec.Title,
		rec.StartTime.UTC().Truncate(time.Second).Format(time.RFC3339),
		int64(rec.Duration/time.Second),
		string(rec.Origin),
		time.Now().UTC().Truncate(time.Second).Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}
	return nil
}

// Merge folds freshly fetched records into a platform's partition. Existing
// fetched-origin rows matching a new id are superseded; manually injected
// rows are left untouched no matter what the fetch returned; rows the fetch
// did not cover are retained. Returns the number of records applied.
func (s *Store) Merge(ctx context.Context, p platform.Platform, fetched []Record) (int, error) {
	if len(fetched) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin merge tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Truncate(time.Second).Format(time.RFC3339)
	applied := 0
	for _, rec := range fetched {
		if strings.TrimSpace(rec.ID) == "" {
			continue
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO stream_records (platform, video_id, title, start_time, duration_seconds, origin, updated_at)
             VALUES (?, ?, ?, ?, ?, 'fetched', ?)
             ON CONFLICT (platform, video_id) DO UPDATE SET
                 title = excluded.title,
                 start_time = excluded.start_time,
                 duration_seconds = excluded.duration_seconds,
                 updated_at = excluded.updated_at
             WHERE stream_records.origin != 'manual'`,
			string(p),
			rec.ID,
			rec.Title,
			rec.StartTime.UTC().Truncate(time.Second).Format(time.RFC3339),
			int64(rec.Duration/time.Second),
			now,
		)
		if err != nil {
			return 0, fmt.Errorf("merge record %s: %w", rec.ID, err)
		}
		if affected, err := res.RowsAffected(); err == nil && affected > 0 {
			applied++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit merge: %w", err)
	}
	return applied, nil
}

// Count returns the number of records held for a platform.
func (s *Store) Count(ctx context.Context, p platform.Platform) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM stream_records WHERE platform = ?`, string(p)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return count, nil
}

// NewestStart returns the most recent start time known for a platform, or
// false when the partition is empty.
func (s *Store) NewestStart(ctx context.Context, p platform.Platform) (time.Time, bool, error) {
	var raw sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(start_time) FROM stream_records WHERE platform = ?`, string(p)).Scan(&raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("newest start: %w", err)
	}
	if !raw.Valid || raw.String == "" {
		return time.Time{}, false, nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, raw.String)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse newest start %q: %w", raw.String, err)
	}
	return parsed, true, nil
}

// FindNear returns the record whose start time sits closest to target within
// maxSkew, or a services.ErrNotFound-tagged error when nothing qualifies.
// Matches with skew beyond fuzzyThreshold are flagged fuzzy.
func (s *Store) FindNear(ctx context.Context, p platform.Platform, target time.Time, maxSkew, fuzzyThreshold time.Duration) (Match, error) {
	lo := target.Add(-maxSkew).UTC().Truncate(time.Second).Format(time.RFC3339)
	hi := target.Add(maxSkew).UTC().Truncate(time.Second).Format(time.RFC3339)

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM stream_records
         WHERE platform = ? AND start_time BETWEEN ? AND ?
         ORDER BY start_time DESC`,
		string(p), lo, hi)
	if err != nil {
		return Match{}, fmt.Errorf("query near records: %w", err)
	}
	defer rows.Close()

	var best *Record
	var bestSkew time.Duration
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return Match{}, err
		}
		skew := rec.StartTime.Sub(target)
		if skew < 0 {
			skew = -skew
		}
		if skew > maxSkew {
			continue
		}
		if best == nil || skew < bestSkew {
			copied := rec
			best = &copied
			bestSkew = skew
		}
	}
	if err := rows.Err(); err != nil {
		return Match{}, err
	}
	if best == nil {
		return s.findByDay(ctx, p, target, maxSkew)
	}
	return Match{Record: *best, Skew: bestSkew, Fuzzy: bestSkew > fuzzyThreshold}, nil
}

// findByDay matches records that carry date-only precision. Flat playlist
// listings report an upload date without a clock, stored as midnight UTC, so
// a timestamp window can never catch them. The fallback matches by calendar
// day, exact day first and then one day either side for timezone edge cases,
// and always flags the result fuzzy.
func (s *Store) findByDay(ctx context.Context, p platform.Platform, target time.Time, maxSkew time.Duration) (Match, error) {
	day := target.UTC().Truncate(24 * time.Hour)
	lo := day.Add(-24 * time.Hour).Format(time.RFC3339)
	hi := day.Add(48 * time.Hour).Format(time.RFC3339)

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM stream_records
         WHERE platform = ? AND start_time >= ? AND start_time < ?
         ORDER BY start_time DESC`,
		string(p), lo, hi)
	if err != nil {
		return Match{}, fmt.Errorf("query day records: %w", err)
	}
	defer rows.Close()

	var exact, adjacent *Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return Match{}, err
		}
		start := rec.StartTime.UTC()
		if !start.Equal(start.Truncate(24 * time.Hour)) {
			// A real clock time already had its chance in the timestamp pass.
			continue
		}
		copied := rec
		if start.Equal(day) {
			if exact == nil {
				exact = &copied
			}
		} else if adjacent == nil {
			adjacent = &copied
		}
	}
	if err := rows.Err(); err != nil {
		return Match{}, err
	}

	pick := exact
	if pick == nil {
		pick = adjacent
	}
	if pick == nil {
		return Match{}, services.Wrap(services.ErrNotFound, "registry", "find near",
			fmt.Sprintf("no %s record within %s of %s", p, maxSkew, target.Format(time.RFC3339)), nil)
	}
	skew := pick.StartTime.Sub(target)
	if skew < 0 {
		skew = -skew
	}
	return Match{Record: *pick, Skew: skew, Fuzzy: true, DayMatch: true}, nil
}

// Get returns the record with the given id, searching both platforms.
func (s *Store) Get(ctx context.Context, id string) (Record, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM stream_records WHERE video_id = ? LIMIT 1`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("get record: %w", err)
	}
	return rec, true, nil
}

// GetByKey returns the record for an exact (platform, id) pair.
func (s *Store) GetByKey(ctx context.Context, p platform.Platform, id string) (Record, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM stream_records WHERE platform = ? AND video_id = ?`,
		string(p), id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("get record: %w", err)
	}
	return rec, true, nil
}

// List returns a platform's records sorted descending by start time.
func (s *Store) List(ctx context.Context, p platform.Platform) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM stream_records WHERE platform = ? ORDER BY start_time DESC`,
		string(p))
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

const recordColumns = "platform, video_id, title, start_time, duration_seconds, origin"

func scanRecord(scanner interface{ Scan(dest ...any) error }) (Record, error) {
	var (
		platformStr string
		id          string
		title       string
		startRaw    string
		durationSec int64
		originStr   string
	)
	if err := scanner.Scan(&platformStr, &id, &title, &startRaw, &durationSec, &originStr); err != nil {
		return Record{}, err
	}

	rec := Record{
		Platform: platform.Platform(platformStr),
		ID:       id,
		Title:    title,
		Duration: time.Duration(durationSec) * time.Second,
		Origin:   Origin(originStr),
	}
	if parsed, err := time.Parse(time.RFC3339Nano, startRaw); err == nil {
		rec.StartTime = parsed
	}
	return rec, nil
}
