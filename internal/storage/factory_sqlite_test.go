//go:build cgo

package storage_test

import (
	"context"
	"os"
	"testing"

	"github.com/MereWhiplash/jobmatch/internal/storage"
)

func TestNew_SQLite(t *testing.T) {
	f, err := os.CreateTemp("", "test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(f.Name())
	f.Close()

	ctx := context.Background()
	store, err := storage.New(ctx, storage.Config{
		Driver:     "sqlite",
		SQLitePath: f.Name(),
	})
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	defer store.Close()

	// Verify it works
	if err := store.SaveSession(ctx, newSession("u", "c", 1, epoch)); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}
}
