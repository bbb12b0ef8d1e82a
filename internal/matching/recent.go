package matching

import (
	"sync"

	"github.com/MereWhiplash/jobmatch/internal/types"
)

// bounded is a fixed-size FIFO map; once full, each new key evicts the oldest
type bounded[V any] struct {
	mu    sync.Mutex
	order []string
	next  int
	byKey map[string]V
}

func newBounded[V any](size int) *bounded[V] {
	return &bounded[V]{
		order: make([]string, 0, size),
		byKey: make(map[string]V, size),
	}
}

func (b *bounded[V]) put(key string, v V) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.byKey[key]; ok {
		b.byKey[key] = v
		return
	}
	if len(b.order) < cap(b.order) {
		b.order = append(b.order, key)
	} else {
		delete(b.byKey, b.order[b.next])
		b.order[b.next] = key
		b.next = (b.next + 1) % len(b.order)
	}
	b.byKey[key] = v
}

func (b *bounded[V]) get(key string) (V, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.byKey[key]
	return v, ok
}

func (b *bounded[V]) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.byKey)
}

// recentResults keeps the last results handed out so they can be explained by id
type recentResults = bounded[types.MatchResult]

func newRecentResults(size int) *recentResults {
	return newBounded[types.MatchResult](size)
}
