// Package db wraps the project's SQLite state database: the history ledger,
// sessions, recently used inputs and pending confirmations.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps database/sql with the schema this module expects.
type DB struct {
	*sql.DB
	path string
}

// Open opens (or creates) the SQLite database at path without migrating.
func Open(path string) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// SQLite writes are single-threaded; a single connection avoids
	// SQLITE_BUSY churn under database/sql's pool.
	conn.SetMaxOpenConns(1)

	return &DB{DB: conn, path: path}, nil
}

// OpenAndMigrate opens the database and applies the schema.
func OpenAndMigrate(path string) (*DB, error) {
	database, err := Open(path)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

// Path returns the filesystem path the database was opened with.
func (db *DB) Path() string { return db.path }

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	project_path TEXT NOT NULL,
	started_at TEXT NOT NULL,
	last_active_at TEXT NOT NULL,
	ended_at TEXT
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_active
	ON sessions(name, project_path) WHERE ended_at IS NULL;

CREATE TABLE IF NOT EXISTS ledger_entries (
	seq INTEGER NOT NULL,
	session_id TEXT NOT NULL,
	entry_id TEXT NOT NULL,
	command TEXT NOT NULL,
	raw TEXT NOT NULL DEFAULT '',
	forward_delta TEXT NOT NULL,
	inverse_delta TEXT NOT NULL,
	risk_tier TEXT NOT NULL,
	created_at TEXT NOT NULL,
	PRIMARY KEY (session_id, seq),
	FOREIGN KEY (session_id) REFERENCES sessions(id)
);

CREATE TABLE IF NOT EXISTS ledger_meta (
	session_id TEXT PRIMARY KEY,
	cursor INTEGER NOT NULL DEFAULT 0,
	next_seq INTEGER NOT NULL DEFAULT 1,
	FOREIGN KEY (session_id) REFERENCES sessions(id)
);

CREATE TABLE IF NOT EXISTS recent_inputs (
	kind TEXT NOT NULL,
	identifier TEXT NOT NULL,
	project_path TEXT NOT NULL,
	used_at TEXT NOT NULL,
	PRIMARY KEY (kind, identifier, project_path)
);

CREATE TABLE IF NOT EXISTS pending_confirmations (
	session_id TEXT PRIMARY KEY,
	mode TEXT NOT NULL,
	command TEXT NOT NULL,
	raw TEXT NOT NULL,
	confidence INTEGER NOT NULL DEFAULT 0,
	candidates TEXT NOT NULL DEFAULT '[]',
	confirm_word TEXT NOT NULL DEFAULT '',
	reason TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	expires_at TEXT NOT NULL,
	FOREIGN KEY (session_id) REFERENCES sessions(id)
);
`

// Migrate applies the schema. Idempotent.
func (db *DB) Migrate() error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}

// now returns the canonical timestamp string used throughout the schema.
func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}
