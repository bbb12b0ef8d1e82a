package embedcache

import (
	"context"
	"sync"

	"github.com/MereWhiplash/jobmatch/internal/types"
)

// DefaultMemoryEntries bounds a MemoryStore created with a non-positive size
const DefaultMemoryEntries = 10000

// MemoryStore is an in-process tier holding at most a fixed number of vectors.
// Once full, the oldest entry is evicted first.
type MemoryStore struct {
	mu      sync.RWMutex
	order   []string
	next    int
	vectors map[string]types.Vector
}

// NewMemoryStore creates an empty MemoryStore holding up to size vectors
func NewMemoryStore(size int) *MemoryStore {
	if size <= 0 {
		size = DefaultMemoryEntries
	}
	return &MemoryStore{
		order:   make([]string, 0, size),
		vectors: make(map[string]types.Vector, size),
	}
}

// Get implements Store
func (m *MemoryStore) Get(_ context.Context, key string) (types.Vector, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.vectors[key]
	return v, ok, nil
}

// Set implements Store
func (m *MemoryStore) Set(_ context.Context, key string, v types.Vector) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.vectors[key]; !ok {
		if len(m.order) < cap(m.order) {
			m.order = append(m.order, key)
		} else {
			delete(m.vectors, m.order[m.next])
			m.order[m.next] = key
			m.next = (m.next + 1) % len(m.order)
		}
	}
	m.vectors[key] = v.Clone()
	return nil
}

// Len returns the number of cached vectors
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.vectors)
}
