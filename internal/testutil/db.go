package testutil

import (
	"path/filepath"
	"testing"

	"github.com/slashdash/sabe/internal/db"
)

// NewTestDB returns a temporary, migrated SQLite database for tests.
//
// The caller does not need to close it; cleanup is registered on t.Cleanup.
func NewTestDB(t *testing.T) *db.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "state.db")
	return NewTestDBAtPath(t, path)
}

// NewTestDBAtPath creates a migrated SQLite database at a specific path.
func NewTestDBAtPath(t *testing.T, path string) *db.DB {
	t.Helper()

	if path == "" {
		t.Fatalf("NewTestDBAtPath: path is required")
	}

	database, err := db.OpenAndMigrate(path)
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}

	t.Cleanup(func() {
		_ = database.Close()
	})

	return database
}

// NewTestSession creates an active session in the given database.
func NewTestSession(t *testing.T, database *db.DB) *db.Session {
	t.Helper()

	s := &db.Session{Name: "test", ProjectPath: t.TempDir()}
	if err := database.CreateSession(s); err != nil {
		t.Fatalf("creating test session: %v", err)
	}
	return s
}
