// Package sqlite is the SQLite implementation of the access-log store.
package sqlite

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/oxproject/oxweb/internal/storage/accesslog"
)

// Store persists access records in a SQLite database.
type Store struct {
	db *sqlx.DB
}

var _ accesslog.Store = (*Store)(nil)

// New opens (creating if needed) the database at path and initializes the
// schema. ":memory:" gives an ephemeral store for tests.
func New(path string) (*Store, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS access_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			request_id TEXT NOT NULL,
			method TEXT NOT NULL,
			path TEXT NOT NULL,
			protocol TEXT,
			source_addr TEXT,
			status INTEGER NOT NULL,
			modified INTEGER NOT NULL DEFAULT 0,
			arena_bytes INTEGER NOT NULL DEFAULT 0,
			modules_invoked INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_access_log_created ON access_log(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_access_log_request ON access_log(request_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("execute %q: %w", stmt[:30], err)
		}
	}
	return nil
}

// Save writes one record.
func (s *Store) Save(ctx context.Context, rec *accesslog.Record) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO access_log (
			request_id, method, path, protocol, source_addr,
			status, modified, arena_bytes, modules_invoked, created_at
		) VALUES (
			:request_id, :method, :path, :protocol, :source_addr,
			:status, :modified, :arena_bytes, :modules_invoked, :created_at
		)`, rec)
	if err != nil {
		return fmt.Errorf("insert access record: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]accesslog.Record, error) {
	var recs []accesslog.Record
	err := s.db.SelectContext(ctx, &recs, `
		SELECT request_id, method, path, protocol, source_addr,
		       status, modified, arena_bytes, modules_invoked, created_at
		FROM access_log
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("select access records: %w", err)
	}
	return recs, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }
