package sqlitemigrate

import (
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

func openTempDB(t *testing.T) *sql.DB {
	t.Helper()
	sqlDB, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "migrate.db"))
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	t.Cleanup(func() {
		if err := sqlDB.Close(); err != nil {
			t.Errorf("close sqlite db: %v", err)
		}
	})
	return sqlDB
}

func TestApplyMigrationsRunsOnceAndIsIdempotent(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"0001_create.sql": {Data: []byte(`-- +migrate Up
CREATE TABLE widgets (id INTEGER PRIMARY KEY, name TEXT NOT NULL);
-- +migrate Down
DROP TABLE widgets;
`)},
		"0002_index.sql": {Data: []byte(`-- +migrate Up
CREATE INDEX idx_widgets_name ON widgets (name);
-- +migrate Down
DROP INDEX idx_widgets_name;
`)},
	}

	sqlDB := openTempDB(t)
	for i := 0; i < 2; i++ {
		if err := ApplyMigrations(sqlDB, fsys, ""); err != nil {
			t.Fatalf("apply migrations (pass %d): %v", i+1, err)
		}
	}

	if _, err := sqlDB.Exec(`INSERT INTO widgets (name) VALUES ('a')`); err != nil {
		t.Fatalf("table should exist: %v", err)
	}

	var count int
	if err := sqlDB.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&count); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if count != 2 {
		t.Fatalf("applied migrations = %d, want 2", count)
	}
}

func TestExtractUpMigration(t *testing.T) {
	t.Parallel()

	content := "-- +migrate Up\nCREATE TABLE a (id INTEGER);\n-- +migrate Down\nDROP TABLE a;\n"
	up := ExtractUpMigration(content)
	if want := "\nCREATE TABLE a (id INTEGER);\n"; up != want {
		t.Fatalf("up = %q, want %q", up, want)
	}

	plain := "CREATE TABLE b (id INTEGER);"
	if got := ExtractUpMigration(plain); got != plain {
		t.Fatalf("unmarked content = %q, want unchanged", got)
	}
}

func TestApplyMigrationsRequiresDB(t *testing.T) {
	t.Parallel()

	if err := ApplyMigrations(nil, fstest.MapFS{}, ""); err == nil {
		t.Fatal("expected missing db error")
	}
}
