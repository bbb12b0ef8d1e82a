package storage_test

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MereWhiplash/jobmatch/internal/storage"
)

// cleanupPostgres removes all test data before each test
func cleanupPostgres(t *testing.T, dsn string) {
	t.Helper()
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("failed to connect for cleanup: %v", err)
	}
	defer pool.Close()

	for _, table := range []string{"sessions", "index_entries"} {
		if _, err := pool.Exec(ctx, "DELETE FROM "+table); err != nil {
			t.Fatalf("failed to cleanup %s: %v", table, err)
		}
	}
}

func TestPostgresStorage(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set, skipping Postgres tests")
	}

	ctx := context.Background()
	store, err := storage.NewPostgres(ctx, dsn)
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	defer store.Close()
	cleanupPostgres(t, dsn)

	runStorageSuite(t, store)
}
