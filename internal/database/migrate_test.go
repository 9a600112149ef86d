package database

import (
	"io/fs"
	"regexp"
	"strings"
	"testing"
)

var migrationName = regexp.MustCompile(`^(\d{6})_[a-z0-9_]+\.(up|down)\.sql$`)

// TestMigrations_Paired checks that every embedded migration follows the
// golang-migrate naming scheme and has both an up and a down file.
func TestMigrations_Paired(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		t.Fatalf("reading embedded migrations: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("no migrations embedded")
	}

	dirs := make(map[string]map[string]bool)
	for _, e := range entries {
		m := migrationName.FindStringSubmatch(e.Name())
		if m == nil {
			t.Errorf("%s: does not match NNNNNN_name.(up|down).sql", e.Name())
			continue
		}
		if dirs[m[1]] == nil {
			dirs[m[1]] = make(map[string]bool)
		}
		dirs[m[1]][m[2]] = true
	}
	for version, got := range dirs {
		if !got["up"] || !got["down"] {
			t.Errorf("migration %s must have both up and down files", version)
		}
	}
}

// TestMigrations_SingleStatement keeps each file to one statement. The
// MariaDB DSN does not enable multiStatements.
func TestMigrations_SingleStatement(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		t.Fatalf("reading embedded migrations: %v", err)
	}
	for _, e := range entries {
		data, err := fs.ReadFile(migrationsFS, "migrations/"+e.Name())
		if err != nil {
			t.Fatalf("reading %s: %v", e.Name(), err)
		}
		body := strings.TrimSpace(string(data))
		if n := strings.Count(body, ";"); n != 1 || !strings.HasSuffix(body, ";") {
			t.Errorf("%s: want exactly one terminated statement, found %d semicolons", e.Name(), n)
		}
	}
}

func TestMigrations_PreferencesTable(t *testing.T) {
	data, err := fs.ReadFile(migrationsFS, "migrations/000001_user_preferences.up.sql")
	if err != nil {
		t.Fatalf("reading migration: %v", err)
	}
	for _, col := range []string{"user_id", "language"} {
		if !strings.Contains(string(data), col) {
			t.Errorf("user_preferences migration is missing column %q", col)
		}
	}
}
