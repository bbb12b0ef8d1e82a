package storage_test

import (
	"context"
	"testing"

	"github.com/MereWhiplash/jobmatch/internal/storage"
)

func TestNew_Memory(t *testing.T) {
	store, err := storage.New(context.Background(), storage.Config{Driver: "memory"})
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	defer store.Close()

	if _, ok := store.(*storage.Memory); !ok {
		t.Errorf("expected *storage.Memory, got %T", store)
	}
}

func TestNew_MissingSettings(t *testing.T) {
	ctx := context.Background()
	for _, cfg := range []storage.Config{
		{Driver: "sqlite"},
		{Driver: "postgres"},
		{Driver: "mongodb"},
		{Driver: "redis"},
		{Driver: "cassandra"},
	} {
		t.Run(cfg.Driver, func(t *testing.T) {
			if _, err := storage.New(ctx, cfg); err == nil {
				t.Errorf("expected error for %+v", cfg)
			}
		})
	}
}
