//go:build cgo

package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/MereWhiplash/jobmatch/internal/storage"
	"github.com/MereWhiplash/jobmatch/internal/types"
)

func TestSQLiteStorage(t *testing.T) {
	// Use temp file for test database
	f, err := os.CreateTemp("", "test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(f.Name())
	f.Close()

	store, err := storage.NewSQLite(f.Name())
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	defer store.Close()

	runStorageSuite(t, store)
}

func TestSQLiteStorage_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "jobmatch.db")
	ctx := context.Background()

	store, err := storage.NewSQLite(path)
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	if err := store.SaveSession(ctx, newSession("u1", "c1", 2, epoch)); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}
	entry := types.IndexEntry{Kind: types.KindJob, ID: "j1", Vector: types.Vector{1, 2, 3}, TextHash: "h", UpdatedAt: epoch}
	if err := store.UpsertEntry(ctx, entry); err != nil {
		t.Fatalf("UpsertEntry failed: %v", err)
	}
	store.Close()

	store, err = storage.NewSQLite(path)
	if err != nil {
		t.Fatalf("failed to reopen storage: %v", err)
	}
	defer store.Close()

	got, err := store.GetSession(ctx, "u1", "c1")
	if err != nil {
		t.Fatalf("GetSession after reopen failed: %v", err)
	}
	if got.Version != 2 {
		t.Errorf("expected version 2, got %d", got.Version)
	}

	entries, err := store.ListEntries(ctx, types.KindJob)
	if err != nil {
		t.Fatalf("ListEntries failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Vector[2] != 3 {
		t.Errorf("unexpected entries after reopen: %+v", entries)
	}
}
