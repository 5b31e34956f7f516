package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"net/url"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/assetpipe/internal/engine"
)

//go:embed schema.sql
var schemaSQL string

var _ engine.Journal = (*Store)(nil)

// migration moves the schema to version. Statements run in one transaction
// together with the user_version bump.
type migration struct {
	version int
	name    string
	stmts   []string
}

// migrations must stay sorted by version. Never edit a released entry;
// append a new one.
var migrations = []migration{
	{
		version: 1,
		name:    "index work_items.source for per-file history",
		stmts: []string{
			`CREATE INDEX IF NOT EXISTS idx_work_items_source ON work_items(source)`,
		},
	},
	{
		version: 2,
		name:    "allow abandoned outcomes",
		// SQLite cannot alter a CHECK constraint; rebuild the table.
		stmts: []string{
			`CREATE TABLE outcomes_v2 (
				id         INTEGER PRIMARY KEY AUTOINCREMENT,
				item_id    TEXT NOT NULL UNIQUE REFERENCES work_items(id),
				seq        INTEGER NOT NULL,
				status     TEXT NOT NULL CHECK (status IN ('done', 'failed', 'abandoned')),
				code       TEXT NOT NULL DEFAULT '',
				error      TEXT NOT NULL DEFAULT '',
				bytes      INTEGER NOT NULL DEFAULT 0,
				elapsed_ns INTEGER NOT NULL DEFAULT 0
			)`,
			`INSERT INTO outcomes_v2 (id, item_id, seq, status, code, error, bytes, elapsed_ns)
			 SELECT id, item_id, seq, status, code, error, bytes, elapsed_ns FROM outcomes`,
			`DROP TABLE outcomes`,
			`ALTER TABLE outcomes_v2 RENAME TO outcomes`,
			`CREATE INDEX IF NOT EXISTS idx_outcomes_status ON outcomes(status)`,
		},
	},
}

var currentSchemaVersion = migrations[len(migrations)-1].version

// Store is the processing journal. Uses SQLite with WAL mode so `history`
// can read while a pipeline is running.
type Store struct {
	db *sql.DB
}

// Open creates or opens the journal at path and migrates it to the current
// schema. Safe to call on an existing journal.
func Open(path string) (*Store, error) {
	db, err := connect(path, url.Values{
		"_journal_mode": {"WAL"},
		"_synchronous":  {"NORMAL"},
		"_busy_timeout": {"5000"},
		"_foreign_keys": {"on"},
	})
	if err != nil {
		return nil, err
	}

	// Workers of every unit write concurrently; SQLite allows one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// OpenReadOnly opens an existing journal without creating or migrating it.
// A journal written by a newer schema is rejected.
func OpenReadOnly(path string) (*Store, error) {
	db, err := connect(path, url.Values{
		"mode":          {"ro"},
		"_busy_timeout": {"5000"},
	})
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}
	version, err := s.Version(context.Background())
	if err != nil {
		db.Close()
		return nil, err
	}
	if version > currentSchemaVersion {
		db.Close()
		return nil, fmt.Errorf("journal schema v%d is newer than supported v%d", version, currentSchemaVersion)
	}
	return s, nil
}

// connect opens path as a SQLite URI so that go-sqlite3 applies params as
// per-connection pragmas.
func connect(path string, params url.Values) (*sql.DB, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database path: %w", err)
	}
	dsn := (&url.URL{Scheme: "file", Path: abs, RawQuery: params.Encode()}).String()

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database %s: %w", path, err)
	}
	return db, nil
}

// migrate applies every migration newer than the stored user_version.
func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= version {
			continue
		}
		if err := applyMigration(db, m); err != nil {
			return fmt.Errorf("migrate to v%d (%s): %w", m.version, m.name, err)
		}
	}
	return nil
}

func applyMigration(db *sql.DB, m migration) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range m.stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	// PRAGMA does not take bound parameters.
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
		return err
	}
	return tx.Commit()
}

// Version returns the journal's schema version.
func (s *Store) Version(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("get user_version: %w", err)
	}
	return version, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
func (s *Store) DB() *sql.DB {
	return s.db
}
