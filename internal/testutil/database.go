package testutil

import (
	"testing"

	"mirror-go/internal/database"
	"mirror-go/internal/mirror"
)

// NewTestHistory creates a new in-memory SQLite history store with schema applied.
// The store is automatically closed when the test completes.
func NewTestHistory(t *testing.T) mirror.History {
	t.Helper()

	db, err := database.NewSQLiteDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}
