package test_utils

import (
	"database/sql"
	"testing"

	"github.com/spendlog/spendlog/internal/database"
	_ "modernc.org/sqlite" // Import the SQLite driver
)

// NewInMemoryDB creates a new in-memory SQLite database for testing.
// Each database is isolated from others.
func NewInMemoryDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	// every connection to :memory: gets its own database
	db.SetMaxOpenConns(1)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// SetupTestDB creates a new in-memory SQLite database and applies the embedded migrations.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db := NewInMemoryDB(t)

	if err := database.MigrateSQLite(db); err != nil {
		t.Fatalf("Failed to apply migrations: %v", err)
	}

	return db
}
