package db

import (
	"os"
	"path/filepath"
	"testing"
)

func writeMigrationFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, sql := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(sql), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func TestLoadMigrationsSortsByVersion(t *testing.T) {
	dir := writeMigrationFiles(t, map[string]string{
		"003_system_keys.sql": "CREATE TABLE system_keys (id UUID PRIMARY KEY);",
		"001_accounts.sql":    "CREATE TABLE accounts (id UUID PRIMARY KEY);",
		"002_hospitals.sql":   "CREATE TABLE hospitals (id UUID PRIMARY KEY);",
	})

	m := NewMigrator(nil, dir)
	migrations, err := m.LoadMigrations()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(migrations) != 3 {
		t.Fatalf("expected 3 migrations, got %d", len(migrations))
	}
	for i, want := range []int{1, 2, 3} {
		if migrations[i].Version != want {
			t.Errorf("position %d: expected version %d, got %d", i, want, migrations[i].Version)
		}
	}
	if migrations[0].Name != "001_accounts.sql" {
		t.Errorf("unexpected first migration: %s", migrations[0].Name)
	}
	if migrations[0].SQL != "CREATE TABLE accounts (id UUID PRIMARY KEY);" {
		t.Errorf("SQL content not loaded: %q", migrations[0].SQL)
	}
}

func TestLoadMigrationsSkipsNonMigrationFiles(t *testing.T) {
	dir := writeMigrationFiles(t, map[string]string{
		"001_accounts.sql": "CREATE TABLE accounts (id UUID PRIMARY KEY);",
		"README.md":        "notes",
		"notes.sql":        "-- no version prefix",
		"abc_def.sql":      "-- non numeric prefix",
	})

	m := NewMigrator(nil, dir)
	migrations, err := m.LoadMigrations()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(migrations) != 1 {
		t.Fatalf("expected 1 migration, got %d", len(migrations))
	}
}

func TestLoadMigrationsMissingDir(t *testing.T) {
	m := NewMigrator(nil, "/nonexistent/migrations")
	if _, err := m.LoadMigrations(); err == nil {
		t.Error("expected error for missing directory")
	}
}
