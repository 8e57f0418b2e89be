// Package catalog persists item metadata in SQLite and reconciles it against
// the artifacts present in a media.Store.
//
// Two tables are kept: items, the primary catalog of everything discovered,
// and downloads, a derived projection of the items whose raw artifact exists.
// The downloads table is rebuilt by ReconcileWithDownloads and never feeds
// back into items.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/alnah/go-ytclips/internal/format"
	"github.com/alnah/go-ytclips/internal/media"
)

// DBName is the catalog file name under the data root.
const DBName = "catalog.sqlite"

const schema = `
PRAGMA busy_timeout = 10000;
PRAGMA journal_mode = WAL;
PRAGMA synchronous  = NORMAL;
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS items (
	id               TEXT PRIMARY KEY NOT NULL,
	title            TEXT NOT NULL DEFAULT '',
	channel_title    TEXT NOT NULL DEFAULT '',
	duration         TEXT NOT NULL DEFAULT '',
	duration_seconds INTEGER NOT NULL DEFAULT 0,
	published_at     TEXT,
	license          TEXT NOT NULL DEFAULT '',
	updated_at       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS downloads (
	id            TEXT PRIMARY KEY NOT NULL,
	file_path     TEXT NOT NULL,
	blake3_hash   TEXT NOT NULL,
	size_bytes    INTEGER NOT NULL,
	downloaded_at TEXT NOT NULL
);
`

// Item is one catalog row.
type Item struct {
	ID              string
	Title           string
	Channel         string
	Duration        string // display form, e.g. "4:05"
	DurationSeconds int64
	PublishedAt     time.Time // zero when unknown
	License         string
}

// Download is an item whose raw artifact is on disk.
type Download struct {
	Item
	FilePath     string
	Blake3Hash   string
	SizeBytes    int64
	DownloadedAt time.Time
	// Cataloged is false when no items row exists and Item holds placeholders.
	Cataloged bool
}

// Store is the SQLite-backed catalog.
type Store struct {
	db    *sql.DB
	media *media.Store
	now   func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time source for updated_at (for testing).
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open opens or creates the catalog database at path. Use ":memory:" for a
// throwaway catalog.
func Open(path string, m *media.Store, opts ...Option) (*Store, error) {
	if m == nil {
		return nil, fmt.Errorf("media store cannot be nil")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	// One connection: SQLite has a single writer, and ":memory:" databases
	// are per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init catalog schema: %w", err)
	}

	s := &Store{db: db, media: m, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Upsert merges items by id, last write wins for every column except
// published_at, which keeps the first known value so list order is stable.
// It returns the catalog size afterwards.
func (s *Store) Upsert(ctx context.Context, items []Item) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO items (id, title, channel_title, duration, duration_seconds, published_at, license, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title            = excluded.title,
			channel_title    = excluded.channel_title,
			duration         = excluded.duration,
			duration_seconds = excluded.duration_seconds,
			published_at     = COALESCE(items.published_at, excluded.published_at),
			license          = excluded.license,
			updated_at       = excluded.updated_at
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	updated := formatTime(s.now())
	for _, it := range items {
		if err := media.ValidateID(it.ID); err != nil {
			return 0, err
		}
		if _, err := stmt.ExecContext(ctx, it.ID, it.Title, it.Channel, it.Duration,
			it.DurationSeconds, nullTime(it.PublishedAt), it.License, updated); err != nil {
			return 0, fmt.Errorf("upsert %s: %w", it.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit upsert: %w", err)
	}
	return s.count(ctx, "items")
}

// Get returns one item or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (Item, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, channel_title, duration, duration_seconds, published_at, license
		FROM items WHERE id = ?
	`, id)
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Item{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return it, err
}

// List returns every item, newest publication first. Items with no known
// publication date sort last; ties break on id.
func (s *Store) List(ctx context.Context) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, channel_title, duration, duration_seconds, published_at, license
		FROM items
		ORDER BY published_at IS NULL, published_at DESC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// Delete removes the catalog and downloads rows of id. Artifacts on disk are
// not touched; a full delete must purge the media store separately.
func (s *Store) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM downloads WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete download %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return nil
}

// RecordDownload fingerprints the raw artifact of id and stores it in the
// downloads table. A missing artifact returns media.ErrNotFound.
func (s *Store) RecordDownload(ctx context.Context, id string) (Download, error) {
	path, err := s.media.Stat(id, media.StageRaw)
	if err != nil {
		return Download{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return Download{}, err
	}

	var existing Download
	err = s.db.QueryRowContext(ctx, `SELECT size_bytes, blake3_hash FROM downloads WHERE id = ? AND downloaded_at = ?`,
		id, formatTime(info.ModTime())).Scan(&existing.SizeBytes, &existing.Blake3Hash)
	hash := existing.Blake3Hash
	if err != nil || existing.SizeBytes != info.Size() {
		// Unchanged files keep their hash; anything else is re-read.
		if hash, err = hashFile(path); err != nil {
			return Download{}, err
		}
	}

	d := Download{
		Item:         Item{ID: id},
		FilePath:     path,
		Blake3Hash:   hash,
		SizeBytes:    info.Size(),
		DownloadedAt: info.ModTime().UTC().Truncate(time.Second),
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO downloads (id, file_path, blake3_hash, size_bytes, downloaded_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			file_path     = excluded.file_path,
			blake3_hash   = excluded.blake3_hash,
			size_bytes    = excluded.size_bytes,
			downloaded_at = excluded.downloaded_at
	`, d.ID, d.FilePath, d.Blake3Hash, d.SizeBytes, formatTime(info.ModTime()))
	if err != nil {
		return Download{}, fmt.Errorf("record download %s: %w", id, err)
	}
	return d, nil
}

// ReconcileWithDownloads rebuilds the downloads table from the raw artifacts
// on disk, including items the catalog does not know. The items table is
// never modified. It returns the number of downloads.
func (s *Store) ReconcileWithDownloads(ctx context.Context) (int, error) {
	ids, err := s.media.Items()
	if err != nil {
		return 0, fmt.Errorf("list items on disk: %w", err)
	}

	present := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !s.media.Exists(id, media.StageRaw) {
			continue
		}
		if _, err := s.RecordDownload(ctx, id); err != nil {
			return 0, err
		}
		present[id] = true
	}

	stale, err := s.ids(ctx, `SELECT id FROM downloads`)
	if err != nil {
		return 0, err
	}
	for _, id := range stale {
		if present[id] {
			continue
		}
		if _, err := s.db.ExecContext(ctx, `DELETE FROM downloads WHERE id = ?`, id); err != nil {
			return 0, fmt.Errorf("drop stale download %s: %w", id, err)
		}
	}
	return s.count(ctx, "downloads")
}

// PruneMissingArtifacts deletes catalog rows whose raw artifact is gone and
// returns the row counts before and after.
func (s *Store) PruneMissingArtifacts(ctx context.Context) (before, after int, err error) {
	ids, err := s.ids(ctx, `SELECT id FROM items`)
	if err != nil {
		return 0, 0, err
	}
	before = len(ids)

	for _, id := range ids {
		if s.media.Exists(id, media.StageRaw) {
			continue
		}
		if _, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id); err != nil {
			return before, 0, fmt.Errorf("prune %s: %w", id, err)
		}
		if _, err := s.db.ExecContext(ctx, `DELETE FROM downloads WHERE id = ?`, id); err != nil {
			return before, 0, fmt.Errorf("prune download %s: %w", id, err)
		}
	}

	after, err = s.count(ctx, "items")
	return before, after, err
}

// ListDownloaded returns the downloads table joined with catalog metadata,
// newest publication first. Rows with no catalog entry get the placeholder
// title "Video <id>". Rows whose file has since disappeared are skipped.
func (s *Store) ListDownloaded(ctx context.Context) ([]Download, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.file_path, d.blake3_hash, d.size_bytes, d.downloaded_at,
		       i.id IS NOT NULL, COALESCE(i.title, ''), COALESCE(i.channel_title, ''),
		       COALESCE(i.duration, ''), COALESCE(i.duration_seconds, 0), i.published_at, COALESCE(i.license, '')
		FROM downloads d
		LEFT JOIN items i ON i.id = d.id
		ORDER BY i.published_at IS NULL, i.published_at DESC, d.id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query downloads: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Download
	for rows.Next() {
		var (
			d            Download
			downloadedAt string
			published    sql.NullString
		)
		if err := rows.Scan(&d.ID, &d.FilePath, &d.Blake3Hash, &d.SizeBytes, &downloadedAt,
			&d.Cataloged, &d.Title, &d.Channel, &d.Duration, &d.DurationSeconds, &published, &d.License); err != nil {
			return nil, fmt.Errorf("scan download: %w", err)
		}
		d.DownloadedAt = parseTime(downloadedAt)
		if published.Valid {
			d.PublishedAt = parseTime(published.String)
		}
		if !d.Cataloged {
			d.Title = "Video " + d.ID
			d.Duration = format.Clock(0)
		}
		if !s.media.Exists(d.ID, media.StageRaw) {
			continue
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Complete returns the catalog items whose segments exist on disk.
func (s *Store) Complete(ctx context.Context) ([]Item, error) {
	items, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []Item
	for _, it := range items {
		if s.media.Exists(it.ID, media.StageSegment) {
			out = append(out, it)
		}
	}
	return out, nil
}

func (s *Store) count(ctx context.Context, table string) (int, error) {
	var n int
	// table is one of two constants above
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil { // #nosec G202
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

func (s *Store) ids(ctx context.Context, query string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(sc scanner) (Item, error) {
	var (
		it        Item
		published sql.NullString
	)
	if err := sc.Scan(&it.ID, &it.Title, &it.Channel, &it.Duration, &it.DurationSeconds, &published, &it.License); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Item{}, err
		}
		return Item{}, fmt.Errorf("scan item: %w", err)
	}
	if published.Valid {
		it.PublishedAt = parseTime(published.String)
	}
	return it, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return formatTime(t)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
