package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when a record is not found
	ErrNotFound = errors.New("record not found")
)

// Store is the canonical catalog store: one SQLite file holding the server
// table plus the scan and sync audit logs. The connection is opened once
// and shared read/write across all scanners and orchestrators.
type Store struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS servers (
	name            TEXT PRIMARY KEY,
	version         TEXT NOT NULL DEFAULT '',
	description     TEXT NOT NULL DEFAULT '',
	author          TEXT NOT NULL DEFAULT '',
	repository_url  TEXT NOT NULL DEFAULT '',
	package_manager TEXT NOT NULL DEFAULT 'npm',
	install_command TEXT NOT NULL DEFAULT '',
	config_path     TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL DEFAULT 'discovered',
	installed       INTEGER NOT NULL DEFAULT 0,
	metadata        TEXT,
	last_updated    INTEGER NOT NULL,
	created_at      INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS scan_history (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	scan_type       TEXT NOT NULL,
	servers_found   INTEGER NOT NULL DEFAULT 0,
	new_servers     INTEGER NOT NULL DEFAULT 0,
	updated_servers INTEGER NOT NULL DEFAULT 0,
	scan_duration   REAL NOT NULL DEFAULT 0,
	status          TEXT NOT NULL,
	details         TEXT,
	created_at      INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS sync_logs (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	sync_type      TEXT NOT NULL,
	status         TEXT NOT NULL,
	records_synced INTEGER NOT NULL DEFAULT 0,
	error_message  TEXT NOT NULL DEFAULT '',
	details        TEXT,
	created_at     INTEGER NOT NULL,
	completed_at   INTEGER
);
`

// Open opens (creating if necessary) the SQLite store at the given path
// and ensures the schema exists.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", path, err)
	}

	// SQLite handles one writer at a time; a single connection avoids
	// SQLITE_BUSY errors from the pool.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the filesystem location of the store file.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
