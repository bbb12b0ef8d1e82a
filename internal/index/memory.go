package index

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"

	"github.com/MereWhiplash/jobmatch/internal/types"
)

type slot struct {
	entry types.IndexEntry
	norm  float64
}

// Memory is an exact in-process index. Entries are immutable once stored;
// an upsert swaps the whole slot so readers never see a mixed state.
type Memory struct {
	mu    sync.RWMutex
	slots map[string]*slot
	dim   int
}

// NewMemory creates an empty index
func NewMemory() *Memory {
	return &Memory{slots: make(map[string]*slot)}
}

// Upsert implements Index
func (m *Memory) Upsert(_ context.Context, e types.IndexEntry) error {
	s := &slot{entry: e.Clone(), norm: norm(e.Vector)}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkLocked(e); err != nil {
		return err
	}
	m.slots[e.ID] = s
	if len(m.slots) == 1 {
		m.dim = len(e.Vector)
	}
	return nil
}

// Check reports whether e would be accepted by Upsert
func (m *Memory) Check(e types.IndexEntry) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.checkLocked(e)
}

func (m *Memory) checkLocked(e types.IndexEntry) error {
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("%w: entry id is required", types.ErrValidation)
	}
	if len(e.Vector) == 0 {
		return fmt.Errorf("%w: entry %s has no vector", types.ErrValidation, e.ID)
	}
	if len(m.slots) == 0 {
		return nil
	}
	if _, replacing := m.slots[e.ID]; replacing && len(m.slots) == 1 {
		return nil
	}
	if len(e.Vector) != m.dim {
		return fmt.Errorf("%w: entry %s has %d dimensions, index has %d", types.ErrValidation, e.ID, len(e.Vector), m.dim)
	}
	return nil
}

// Remove implements Index
func (m *Memory) Remove(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.slots, id)
	return nil
}

// Get implements Index
func (m *Memory) Get(_ context.Context, id string) (types.IndexEntry, error) {
	m.mu.RLock()
	s, ok := m.slots[id]
	m.mu.RUnlock()
	if !ok {
		return types.IndexEntry{}, fmt.Errorf("%w: index entry %s", types.ErrNotFound, id)
	}
	return s.entry.Clone(), nil
}

// Len implements Index
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.slots)
}

// Query implements Index
func (m *Memory) Query(_ context.Context, vec types.Vector, k int, pred Predicate) ([]Hit, error) {
	if k <= 0 {
		return []Hit{}, nil
	}
	qnorm := norm(vec)

	m.mu.RLock()
	if len(m.slots) > 0 && len(vec) != m.dim {
		m.mu.RUnlock()
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d", types.ErrValidation, len(vec), m.dim)
	}
	snapshot := make([]*slot, 0, len(m.slots))
	for _, s := range m.slots {
		snapshot = append(snapshot, s)
	}
	m.mu.RUnlock()

	hits := make([]Hit, 0, len(snapshot))
	for _, s := range snapshot {
		if pred != nil && !pred(&s.entry) {
			continue
		}
		hits = append(hits, Hit{
			ID:         s.entry.ID,
			Score:      cosine(vec, s.entry.Vector, qnorm, s.norm),
			Attributes: s.entry.Attributes,
		})
	}

	slices.SortFunc(hits, func(a, b Hit) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func norm(v types.Vector) float64 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return math.Sqrt(sum)
}

// cosine is clamped to [0,1]; opposite or zero vectors score 0
func cosine(a, b types.Vector, na, nb float64) float64 {
	if na == 0 || nb == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return math.Max(0, math.Min(1, dot/(na*nb)))
}
