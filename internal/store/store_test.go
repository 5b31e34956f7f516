package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestOpen_CreatesAndReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("database file was not created: %v", err)
	}
	if err := s.RecordQueued(ctx, testItem("a", 1)); err != nil {
		t.Fatalf("RecordQueued() failed: %v", err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()

	seq, err := s.LastSeq(ctx)
	if err != nil {
		t.Fatalf("LastSeq() failed: %v", err)
	}
	if seq != 1 {
		t.Errorf("LastSeq() after reopen = %d, want 1", seq)
	}
}

func TestOpen_RelativePath(t *testing.T) {
	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd() failed: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("Chdir() failed: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(oldWD) })

	s, err := Open("pipeline.db")
	if err != nil {
		t.Fatalf("Open() with relative path failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat("pipeline.db"); err != nil {
		t.Errorf("database not created in working directory: %v", err)
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open("/nonexistent/dir/journal.db")
	if err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestOpenReadOnly_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.db")

	if _, err := OpenReadOnly(path); err == nil {
		t.Fatal("expected error for missing journal, got nil")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("OpenReadOnly created %s", path)
	}
}

func TestOpenReadOnly_ReadsButRejectsWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()

	w, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if err := w.RecordQueued(ctx, testItem("a", 7)); err != nil {
		t.Fatalf("RecordQueued() failed: %v", err)
	}
	w.Close()

	r, err := OpenReadOnly(path)
	if err != nil {
		t.Fatalf("OpenReadOnly() failed: %v", err)
	}
	defer r.Close()

	seq, err := r.LastSeq(ctx)
	if err != nil {
		t.Fatalf("LastSeq() failed: %v", err)
	}
	if seq != 7 {
		t.Errorf("LastSeq() = %d, want 7", seq)
	}
	if err := r.RecordQueued(ctx, testItem("b", 8)); err == nil {
		t.Error("expected write to a read-only journal to fail")
	}
}

func TestOpenReadOnly_NewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion+1)); err != nil {
		t.Fatalf("failed to bump user_version: %v", err)
	}
	s.Close()

	if _, err := OpenReadOnly(path); err == nil {
		t.Error("expected error for a journal from a newer schema")
	}
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{db: nil}
	if err := s.Close(); err != nil {
		t.Errorf("Close() on nil db should not error: %v", err)
	}
}

func TestClose_MultipleCalls(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("first Close() failed: %v", err)
	}
	_ = s.Close()
}

func TestPragmas(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		name string
		want string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"}, // NORMAL
		{"busy_timeout", "5000"},
		{"foreign_keys", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pragma(t, s.db, tt.name); got != tt.want {
				t.Errorf("PRAGMA %s = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestSchema_Columns(t *testing.T) {
	s := createTestStore(t)

	tables := map[string][]string{
		"work_items": {"id", "seq", "source", "destination", "kind", "enqueued_at"},
		"outcomes":   {"id", "item_id", "seq", "status", "code", "error", "bytes", "elapsed_ns"},
	}
	for table, want := range tables {
		got := tableColumns(t, s.db, table)
		for _, col := range want {
			if !slices.Contains(got, col) {
				t.Errorf("%s missing column %q, have %v", table, col, got)
			}
		}
	}
}

func TestConstraint_OutcomeRequiresWorkItem(t *testing.T) {
	s := createTestStore(t)

	_, err := s.db.Exec(`INSERT INTO outcomes (item_id, seq, status) VALUES ('missing', 1, 'done')`)
	if err == nil {
		t.Error("expected foreign key violation for outcome without work item")
	}
}

func TestConstraint_OutcomeStatusChecked(t *testing.T) {
	s := createTestStore(t)
	if err := s.RecordQueued(context.Background(), testItem("a", 1)); err != nil {
		t.Fatalf("RecordQueued() failed: %v", err)
	}

	_, err := s.db.Exec(`INSERT INTO outcomes (item_id, seq, status) VALUES ('a', 1, 'pending')`)
	if err == nil {
		t.Error("expected CHECK violation for unknown status")
	}
}

func TestMigrations_SortedAndUnique(t *testing.T) {
	for i := 1; i < len(migrations); i++ {
		if migrations[i].version <= migrations[i-1].version {
			t.Errorf("migration %q (v%d) does not follow v%d",
				migrations[i].name, migrations[i].version, migrations[i-1].version)
		}
	}
}

func TestMigrate_FreshJournalAtCurrentVersion(t *testing.T) {
	s := createTestStore(t)

	version, err := s.Version(context.Background())
	if err != nil {
		t.Fatalf("Version() failed: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("Version() = %d, want %d", version, currentSchemaVersion)
	}
	if idx := tableIndexes(t, s.db, "work_items"); !slices.Contains(idx, "idx_work_items_source") {
		t.Errorf("work_items missing source index, indexes: %v", idx)
	}
}

func TestMigrate_UpgradesFromV0(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	// A v0 journal: base schema, no migrations applied.
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		t.Fatalf("failed to apply schema: %v", err)
	}
	if _, err := db.Exec("PRAGMA user_version = 0"); err != nil {
		t.Fatalf("failed to set user_version: %v", err)
	}
	db.Close()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	version, err := s.Version(context.Background())
	if err != nil {
		t.Fatalf("Version() failed: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("Version() = %d, want %d after migration", version, currentSchemaVersion)
	}
	if idx := tableIndexes(t, s.db, "work_items"); !slices.Contains(idx, "idx_work_items_source") {
		t.Errorf("expected source index after migration, got %v", idx)
	}
}

func TestMigrate_V1KeepsOutcomesAndAllowsAbandoned(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	stmts := append([]string{schemaSQL}, migrations[0].stmts...)
	stmts = append(stmts,
		`INSERT INTO work_items (id, seq, source, destination, kind, enqueued_at) VALUES ('a', 1, '/src/a.png', '/dst/a.png', 'raw', 0)`,
		`INSERT INTO work_items (id, seq, source, destination, kind, enqueued_at) VALUES ('b', 2, '/src/b.png', '/dst/b.png', 'raw', 0)`,
		`INSERT INTO outcomes (item_id, seq, status) VALUES ('a', 1, 'done')`,
		"PRAGMA user_version = 1",
	)
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("failed to build v1 journal: %v", err)
		}
	}
	db.Close()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	counts, err := s.OutcomeCounts(ctx)
	if err != nil {
		t.Fatalf("OutcomeCounts() failed: %v", err)
	}
	if counts.Done != 1 || counts.Unfinished != 1 {
		t.Errorf("OutcomeCounts() = %+v, want 1 done and 1 unfinished", counts)
	}
	if _, err := s.db.Exec(`INSERT INTO outcomes (item_id, seq, status) VALUES ('b', 2, 'abandoned')`); err != nil {
		t.Errorf("abandoned status rejected after migration: %v", err)
	}
	if idx := tableIndexes(t, s.db, "outcomes"); !slices.Contains(idx, "idx_outcomes_status") {
		t.Errorf("outcomes missing status index after rebuild, indexes: %v", idx)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		version, err := s.Version(context.Background())
		if err != nil {
			t.Fatalf("Version() failed: %v", err)
		}
		if version != currentSchemaVersion {
			t.Errorf("iteration %d: Version() = %d, want %d", i, version, currentSchemaVersion)
		}
		s.Close()
	}
}

func pragma(t *testing.T, db *sql.DB, name string) string {
	t.Helper()
	var value string
	if err := db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		t.Fatalf("PRAGMA %s failed: %v", name, err)
	}
	return value
}

func tableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		t.Fatalf("failed to get table info for %q: %v", table, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("failed to scan column name: %v", err)
		}
		columns = append(columns, name)
	}
	return columns
}

func tableIndexes(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='index' AND tbl_name=?", table)
	if err != nil {
		t.Fatalf("failed to get indexes for %q: %v", table, err)
	}
	defer rows.Close()

	var indexes []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("failed to scan index name: %v", err)
		}
		indexes = append(indexes, name)
	}
	return indexes
}
