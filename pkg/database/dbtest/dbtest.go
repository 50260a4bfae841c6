// Package dbtest opens throwaway migrated sqlite databases for tests.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"

	"shelfhub/pkg/database"
)

func New(t testing.TB) *database.DB {
	t.Helper()

	cfg := database.Config{
		Driver: database.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "test.db"),
	}
	db, err := database.OpenAndMigrate(context.Background(), cfg)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// InsertUser adds a bare user row so entries can reference it.
func InsertUser(t testing.TB, db *database.DB, id, email string) {
	t.Helper()

	_, err := db.Exec(db.Rebind(`
		INSERT INTO users (id, email, password_hash, token_version, created_at)
		VALUES (?, ?, 'x', 0, CURRENT_TIMESTAMP)
	`), id, email)
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
}
