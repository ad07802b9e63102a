// Package sqlitecache persists the reading cache in a SQLite database.
package sqlitecache

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/milad/octosync/internal/cache"
	"github.com/milad/octosync/internal/domain"

	_ "github.com/mattn/go-sqlite3"
)

var _ cache.ReadingCache = (*Cache)(nil)

// Cache keeps one row per reading. Timestamps are stored as RFC 3339 text
// (offset preserved) next to a unix-nanosecond sort key.
type Cache struct {
	path string
	db   *sql.DB
	log  *slog.Logger
}

// Open opens (creating if needed) the database at path and its schema.
func Open(path string, logger *slog.Logger) (*Cache, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create directory for %q: %w", cache.ErrIO, path, err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("%w: sqlite open %q: %w", cache.ErrIO, path, err)
	}
	// Single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: sqlite schema %q: %w", cache.ErrIO, path, err)
	}

	logger.Debug("opened sqlite cache", slog.String("cache_path", path))
	return &Cache{path: path, db: db, log: logger.With(slog.String("cache_path", path))}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS readings (
			energy_type    TEXT    NOT NULL,
			start_unix_ns  INTEGER NOT NULL,
			end_unix_ns    INTEGER NOT NULL,
			interval_start TEXT    NOT NULL,
			interval_end   TEXT    NOT NULL,
			consumption    REAL    NOT NULL,
			PRIMARY KEY (energy_type, start_unix_ns, end_unix_ns)
		);
	`)
	return err
}

func (c *Cache) Location() string { return "sqlite:" + c.path }

// Load reads every row back into a Store. Rows that do not parse or that
// break the store invariants make the whole database corrupt.
func (c *Cache) Load() (*cache.Store, error) {
	s := cache.NewStore()
	for _, t := range domain.EnergyTypes {
		readings, err := c.read(t)
		if err != nil {
			return nil, err
		}
		if _, err := s.Merge(t, readings); err != nil {
			return nil, &cache.CorruptCacheError{Path: c.Location(), Err: err}
		}
		c.log.Debug("loaded readings", slog.String("energy_type", t.String()), slog.Int("count", len(readings)))
	}
	return s, nil
}

func (c *Cache) read(t domain.EnergyType) ([]domain.Reading, error) {
	rows, err := c.db.Query(`
		SELECT interval_start, interval_end, consumption
		FROM readings
		WHERE energy_type = ?
		ORDER BY start_unix_ns ASC
	`, t.String())
	if err != nil {
		return nil, fmt.Errorf("%w: sqlite query %s readings: %w", cache.ErrIO, t, err)
	}
	defer rows.Close()

	var out []domain.Reading
	for rows.Next() {
		var (
			start, end string
			r          = domain.Reading{Type: t}
		)
		if err := rows.Scan(&start, &end, &r.Consumption); err != nil {
			return nil, fmt.Errorf("%w: sqlite scan %s reading: %w", cache.ErrIO, t, err)
		}
		if r.IntervalStart, err = time.Parse(time.RFC3339Nano, start); err != nil {
			return nil, &cache.CorruptCacheError{Path: c.Location(), Err: err}
		}
		if r.IntervalEnd, err = time.Parse(time.RFC3339Nano, end); err != nil {
			return nil, &cache.CorruptCacheError{Path: c.Location(), Err: err}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: sqlite rows: %w", cache.ErrIO, err)
	}
	return out, nil
}

// Flush writes the store in one transaction. The store only grows, so rows
// already present are left alone.
func (c *Cache) Flush(s *cache.Store) error {
	start := time.Now()
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: sqlite begin: %w", cache.ErrIO, err)
	}

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO readings (energy_type, start_unix_ns, end_unix_ns, interval_start, interval_end, consumption)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("%w: sqlite prepare: %w", cache.ErrIO, err)
	}
	defer stmt.Close()

	n := 0
	for _, t := range domain.EnergyTypes {
		for r := range s.All(t) {
			_, err := stmt.Exec(t.String(),
				r.IntervalStart.UnixNano(), r.IntervalEnd.UnixNano(),
				r.IntervalStart.Format(time.RFC3339Nano), r.IntervalEnd.Format(time.RFC3339Nano),
				r.Consumption,
			)
			if err != nil {
				tx.Rollback()
				return fmt.Errorf("%w: sqlite insert: %w", cache.ErrIO, err)
			}
			n++
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: sqlite commit: %w", cache.ErrIO, err)
	}

	c.log.Info("flushed cache", slog.Int("readings", n), slog.Duration("took", time.Since(start)))
	return nil
}

// Close closes the database.
func (c *Cache) Close() error {
	return c.db.Close()
}
