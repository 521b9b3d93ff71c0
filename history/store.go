// Package history keeps a local log of feed updates and freshness probes.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// timeLayout is fixed width so stored times sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type Store struct {
	db *sql.DB
}

func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating history dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening history db: %w", err)
	}
	// batches record from several goroutines
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS feed_events (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			feed       TEXT NOT NULL,
			kind       TEXT NOT NULL,
			ok         INTEGER NOT NULL,
			detail     TEXT NOT NULL DEFAULT '',
			valid_from TEXT NOT NULL DEFAULT '',
			valid_to   TEXT NOT NULL DEFAULT '',
			at         TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_feed_events_feed ON feed_events(feed, at DESC);
	`)
	if err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record appends e. A zero At is set to now.
func (s *Store) Record(e Event) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO feed_events (feed, kind, ok, detail, valid_from, valid_to, at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.Feed, e.Kind, e.OK, e.Detail, e.ValidFrom, e.ValidTo, e.At.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("recording %s event for %s: %w", e.Kind, e.Feed, err)
	}
	return nil
}

// Events returns matching events, newest first.
func (s *Store) Events(opts QueryOpts) ([]Event, error) {
	var (
		where []string
		args  []interface{}
	)
	if opts.Feed != "" {
		where = append(where, "feed = ?")
		args = append(args, opts.Feed)
	}
	if opts.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, opts.Kind)
	}

	query := "SELECT id, feed, kind, ok, detail, valid_from, valid_to, at FROM feed_events"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY at DESC, id DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(" LIMIT %d", limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			e  Event
			at string
		)
		if err := rows.Scan(&e.ID, &e.Feed, &e.Kind, &e.OK, &e.Detail, &e.ValidFrom, &e.ValidTo, &at); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		e.At, err = time.Parse(timeLayout, at)
		if err != nil {
			return nil, fmt.Errorf("parsing event time %q: %w", at, err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// LastSuccess returns the newest successful event of kind for feed.
func (s *Store) LastSuccess(feed, kind string) (Event, bool, error) {
	events, err := s.Events(QueryOpts{Feed: feed, Kind: kind, Limit: 50})
	if err != nil {
		return Event{}, false, err
	}
	for _, e := range events {
		if e.OK {
			return e, true, nil
		}
	}
	return Event{}, false, nil
}
