package storage

import (
	"context"
	"testing"
)

// DropForTest removes every collection the backend owns
func (m *MongoDB) DropForTest(ctx context.Context, t *testing.T) {
	t.Helper()
	if err := m.db.Drop(ctx); err != nil {
		t.Fatalf("failed to drop test database: %v", err)
	}
	if err := m.initIndexes(ctx); err != nil {
		t.Fatalf("failed to recreate indexes: %v", err)
	}
}
