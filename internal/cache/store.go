// Package cache provides the durable key/value store behind the sync core:
// SQLite-backed entries with per-entry expiry, plus a small audit table of
// sync outcomes. Everything above it treats cache failures as degradation,
// never as fatal errors.
package cache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// TTL classes for persisted entries. Volatile derived data (due-item lists)
// uses the short class; durable queues and snapshots use the long class.
const (
	TTLShort = 7 * 24 * time.Hour
	TTLLong  = 30 * 24 * time.Hour
)

// Store is the persistent cache. All methods are safe for use from
// concurrent async tasks within one process; cross-process access is
// last-writer-wins behind the authoritative remote.
type Store struct {
	db *sql.DB
}

// Open creates a Store connected to the SQLite database at dsn, applies
// recommended pragmas, and creates the schema.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &Store{db: db}, nil
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// applyPragmas configures SQLite for single-user local-first performance.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

func migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS cache_entries (
			key        TEXT PRIMARY KEY,
			data       BLOB NOT NULL,
			expires_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cache_expires ON cache_entries (expires_at)`,
		`CREATE TABLE IF NOT EXISTS sync_events (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			learner_id TEXT NOT NULL,
			submitted  INTEGER NOT NULL,
			accepted   INTEGER NOT NULL,
			rejected   INTEGER NOT NULL,
			error      TEXT NOT NULL DEFAULT '',
			timestamp  INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sync_events_ts ON sync_events (timestamp)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec schema: %w", err)
		}
	}
	return nil
}

// DefaultDBPath resolves the database file path in priority order:
// 1. WORDTRAIL_DB environment variable
// 2. $XDG_DATA_HOME/wordtrail/syncore.db
// 3. ~/.local/share/wordtrail/syncore.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("WORDTRAIL_DB"); p != "" {
		return p, EnsureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "wordtrail", "syncore.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}
