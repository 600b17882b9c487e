package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/tutor-scheduler/internal/persistence/sqlite"
)

// SQLiteHarness is a migrated SQLite store in a temporary directory.
type SQLiteHarness struct {
	Storage *sqlite.Storage
	Path    string
}

// NewSQLiteHarness opens and migrates a fresh database. The store is closed
// when the test finishes.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "tutor.db")
	ctx := context.Background()

	storage, err := sqlite.Open(ctx, path)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}
	if _, err := storage.Migrate(ctx, nil); err != nil {
		_ = storage.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	tb.Cleanup(func() { _ = storage.Close() })
	return &SQLiteHarness{Storage: storage, Path: path}
}
