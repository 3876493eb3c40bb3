package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/drill/internal/config"
	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Init initializes the SQLite database at baseDir/drill.db.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.drill.
func Init(baseDir string) (*sql.DB, error) {
	// Create base directory with restricted permissions
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	_ = os.Chmod(baseDir, 0700)

	// Pragmas in the connection string apply to every pooled connection
	dbPath := filepath.Join(baseDir, "drill.db")
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	// Run migrations (this creates the file if it doesn't exist)
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	// Set file permissions after file exists (best-effort)
	_ = os.Chmod(dbPath, 0600)

	return db, nil
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
func ConfigurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: Initial schema (v1)
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS sources (
		  id            TEXT PRIMARY KEY,
		  title         TEXT NOT NULL,
		  author        TEXT,
		  genre         TEXT NOT NULL,
		  source_type   TEXT NOT NULL,
		  candidates    INTEGER NOT NULL,
		  accepted      INTEGER NOT NULL,
		  rejected_json TEXT,
		  created_at    INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS passages (
		  id            TEXT PRIMARY KEY,
		  source_id     TEXT NOT NULL REFERENCES sources(id),
		  text          TEXT NOT NULL,
		  word_count    INTEGER NOT NULL,
		  source_title  TEXT NOT NULL,
		  source_author TEXT,
		  genre         TEXT NOT NULL,
		  source_type   TEXT NOT NULL,
		  created_at    INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_passages_genre_created
		ON passages(genre, created_at DESC);

		CREATE TABLE IF NOT EXISTS items (
		  id           TEXT PRIMARY KEY,
		  passage_id   TEXT NOT NULL REFERENCES passages(id),
		  difficulty   TEXT NOT NULL CHECK (difficulty IN ('easy', 'medium', 'hard')),
		  payload_json TEXT,
		  created_at   INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_items_passage
		ON items(passage_id);

		CREATE TABLE IF NOT EXISTS sessions (
		  id           TEXT PRIMARY KEY,
		  seed         INTEGER NOT NULL,
		  target_count INTEGER NOT NULL,
		  mix_easy     INTEGER NOT NULL,
		  mix_medium   INTEGER NOT NULL,
		  mix_hard     INTEGER NOT NULL,
		  genre        TEXT,
		  created_at   INTEGER NOT NULL,
		  graded_at    INTEGER,
		  correct      INTEGER NOT NULL DEFAULT 0,
		  total        INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS session_items (
		  session_id TEXT NOT NULL REFERENCES sessions(id),
		  position   INTEGER NOT NULL,
		  item_id    TEXT NOT NULL REFERENCES items(id),
		  PRIMARY KEY (session_id, position)
		);

		CREATE TABLE IF NOT EXISTS attempts (
		  id         INTEGER PRIMARY KEY AUTOINCREMENT,
		  session_id TEXT NOT NULL REFERENCES sessions(id),
		  item_id    TEXT NOT NULL REFERENCES items(id),
		  correct    INTEGER NOT NULL,
		  created_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS review_records (
		  item_id           TEXT PRIMARY KEY,
		  source_session_id TEXT NOT NULL,
		  interval_days     INTEGER NOT NULL,
		  ease_factor       REAL NOT NULL,
		  repetition_count  INTEGER NOT NULL,
		  next_review_date  TEXT NOT NULL,
		  last_review_date  TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_review_records_next
		ON review_records(next_review_date);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := SetUserVersion(db, 1); err != nil {
			return err
		}
	}

	// Future migrations go here:
	// if version < 2 { ... }

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}
