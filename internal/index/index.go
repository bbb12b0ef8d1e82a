// Package index answers cosine nearest-neighbour queries over embedded jobs and candidates.
package index

import (
	"context"

	"github.com/MereWhiplash/jobmatch/internal/types"
)

// Predicate selects which entries a query may return. It runs before ranking.
type Predicate func(e *types.IndexEntry) bool

// Hit is one ranked query result
type Hit struct {
	ID         string           `json:"id"`
	Score      float64          `json:"score"`
	Attributes types.Attributes `json:"attributes"`
}

// Index stores id → (vector, metadata) and ranks by cosine similarity
type Index interface {
	// Upsert atomically replaces any entry with the same id
	Upsert(ctx context.Context, e types.IndexEntry) error
	// Remove deletes an entry; removing a missing id is a no-op
	Remove(ctx context.Context, id string) error
	// Query returns at most k hits, score descending then id ascending
	Query(ctx context.Context, vec types.Vector, k int, pred Predicate) ([]Hit, error)
	// Get returns a copy of the entry or types.ErrNotFound
	Get(ctx context.Context, id string) (types.IndexEntry, error)
	Len() int
}

// Store persists index entries for one process restart to the next
type Store interface {
	UpsertEntry(ctx context.Context, e types.IndexEntry) error
	DeleteEntry(ctx context.Context, kind types.EntityKind, id string) error
	ListEntries(ctx context.Context, kind types.EntityKind) ([]types.IndexEntry, error)
}
