package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"
)

const currentVersion = 1

// Store is the durable record of categories and interval records.
// Mutations are serialized behind writeMu and run inside a transaction;
// reads go straight to the pool and may run concurrently.
type Store struct {
	db      *sql.DB
	writeMu sync.Mutex
	logger  *slog.Logger

	seedDefaults bool
}

// Option configures a Store at open time.
type Option func(*Store)

// WithDefaultCategories seeds the default category set when the database
// is created for the first time.
func WithDefaultCategories() Option {
	return func(s *Store) { s.seedDefaults = true }
}

// WithLogger sets the logger used for migration and seeding events.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// Applied to every pooled connection through the DSN.
var pragmas = []string{
	"journal_mode(WAL)",
	"foreign_keys(1)",
	"busy_timeout(5000)",
}

// New opens (or creates) the SQLite database at dbPath and runs migrations.
func New(dbPath string, opts ...Option) (*Store, error) {
	memory := dbPath == ":memory:"
	if !memory {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Every connection to ":memory:" is its own database.
	if memory {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(4)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open database: %w: %w", ErrStorageUnavailable, err)
	}

	s := &Store{db: db, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// NewMemory creates an in-memory store for testing.
func NewMemory(opts ...Option) (*Store, error) {
	return New(":memory:", opts...)
}

func (s *Store) Close() error {
	return s.db.Close()
}

func dsn(dbPath string) string {
	params := make([]string, 0, len(pragmas)+1)
	for _, p := range pragmas {
		params = append(params, "_pragma="+p)
	}
	params = append(params, "_txlock=immediate")
	return dbPath + "?" + strings.Join(params, "&")
}

// withTx runs fn in a write transaction. Only one runs at a time.
// Errors returned by fn are passed through untouched so domain errors
// survive; failures of the transaction itself become ErrStorageUnavailable.
func (s *Store) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable(op, err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return unavailable(op, err)
	}
	return nil
}

func (s *Store) migrate() error {
	var version int
	err := s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	if version >= currentVersion {
		return nil
	}

	fresh := version == 0
	if version < 1 {
		if err := s.migrateV1(); err != nil {
			return err
		}
		s.logger.Info("store migrated", "from", version, "to", 1)
	}

	if fresh && s.seedDefaults {
		if err := s.seedCategories(); err != nil {
			return fmt.Errorf("seed categories: %w", err)
		}
	}

	_, err = s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentVersion))
	return err
}

func (s *Store) migrateV1() error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS categories (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		name        TEXT NOT NULL UNIQUE,
		color       TEXT NOT NULL DEFAULT '#808080',
		created_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now')),
		updated_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
	);

	CREATE TABLE IF NOT EXISTS intervals (
		id               TEXT PRIMARY KEY,
		category_id      INTEGER REFERENCES categories(id),
		phase            TEXT NOT NULL CHECK(phase IN ('work','short_break','long_break')),
		start_ts         TEXT NOT NULL,
		end_ts           TEXT NOT NULL,
		planned_seconds  INTEGER NOT NULL CHECK(planned_seconds >= 0),
		actual_seconds   INTEGER NOT NULL CHECK(actual_seconds >= 0),
		status           TEXT NOT NULL CHECK(status IN ('completed','abandoned')),
		note             TEXT NOT NULL DEFAULT '',
		created_at       TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now')),
		CHECK(end_ts >= start_ts),
		CHECK(actual_seconds <= planned_seconds),
		CHECK(status <> 'completed' OR actual_seconds = planned_seconds),
		CHECK(phase <> 'work' OR category_id IS NOT NULL)
	);

	CREATE INDEX IF NOT EXISTS idx_intervals_start    ON intervals(start_ts);
	CREATE INDEX IF NOT EXISTS idx_intervals_category ON intervals(category_id);

	-- Interval history is append-only.
	CREATE TRIGGER IF NOT EXISTS intervals_no_update
	BEFORE UPDATE ON intervals
	BEGIN
		SELECT RAISE(ABORT, 'intervals are append-only');
	END;

	CREATE TABLE IF NOT EXISTS settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(ddl)
	return err
}

// DefaultDBPath returns ~/.config/grindstone/grindstone.db
func DefaultDBPath() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, "grindstone", "grindstone.db"), nil
}
