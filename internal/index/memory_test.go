package index

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MereWhiplash/jobmatch/internal/types"
)

func entry(id string, vec ...float32) types.IndexEntry {
	return types.IndexEntry{Kind: types.KindJob, ID: id, Vector: vec}
}

func TestMemory_QueryOrdering(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Upsert(ctx, entry("c", 1, 0)))
	require.NoError(t, m.Upsert(ctx, entry("a", 1, 0)))
	require.NoError(t, m.Upsert(ctx, entry("b", 1, 1)))
	require.NoError(t, m.Upsert(ctx, entry("d", 0, 1)))

	hits, err := m.Query(ctx, types.Vector{1, 0}, 10, nil)
	require.NoError(t, err)

	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	assert.Equal(t, []string{"a", "c", "b", "d"}, ids, "score desc, ties by id asc")
	assert.InDelta(t, 1.0, hits[0].Score, 1e-9)
	assert.InDelta(t, 0.7071, hits[2].Score, 1e-3)
	assert.InDelta(t, 0.0, hits[3].Score, 1e-9)
}

func TestMemory_QueryIsDeterministic(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	for i := 0; i < 50; i++ {
		require.NoError(t, m.Upsert(ctx, entry(fmt.Sprintf("job-%02d", i), float32(i%5), 1, float32(i%3))))
	}

	first, err := m.Query(ctx, types.Vector{1, 1, 1}, 20, nil)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := m.Query(ctx, types.Vector{1, 1, 1}, 20, nil)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestMemory_QueryAtMostK(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	for i := 0; i < 10; i++ {
		require.NoError(t, m.Upsert(ctx, entry(fmt.Sprintf("j%d", i), 1, float32(i))))
	}

	hits, err := m.Query(ctx, types.Vector{1, 2}, 3, nil)
	require.NoError(t, err)
	assert.Len(t, hits, 3)
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
	}

	hits, err = m.Query(ctx, types.Vector{1, 2}, 0, nil)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestMemory_NegativeSimilarityClamped(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Upsert(ctx, entry("opposite", -1, 0)))

	hits, err := m.Query(ctx, types.Vector{1, 0}, 1, nil)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 0.0, hits[0].Score)
}

func TestMemory_PreFilter(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	j1 := entry("J1", 0.9, 0.43589)
	j1.Attributes.Skills = []string{"python"}
	j2 := entry("J2", 0.95, 0.31225)
	j2.Attributes.Skills = []string{"go"}
	require.NoError(t, m.Upsert(ctx, j1))
	require.NoError(t, m.Upsert(ctx, j2))

	filters := types.HardFilters{RequiredSkills: []string{"python"}}
	hits, err := m.Query(ctx, types.Vector{1, 0}, 1, func(e *types.IndexEntry) bool {
		return filters.Match(e.Attributes)
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "J1", hits[0].ID, "a filtered entry never takes a slot from k")
}

func TestMemory_EmptyIndex(t *testing.T) {
	hits, err := NewMemory().Query(context.Background(), types.Vector{1, 2, 3}, 5, nil)
	require.NoError(t, err)
	assert.NotNil(t, hits)
	assert.Empty(t, hits)
}

func TestMemory_UpsertReplaces(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	old := entry("j", 1, 0)
	old.TextHash = "old"
	require.NoError(t, m.Upsert(ctx, old))

	updated := entry("j", 0, 1)
	updated.TextHash = "new"
	require.NoError(t, m.Upsert(ctx, updated))

	assert.Equal(t, 1, m.Len())
	got, err := m.Get(ctx, "j")
	require.NoError(t, err)
	assert.Equal(t, "new", got.TextHash)
	assert.Equal(t, types.Vector{0, 1}, got.Vector)
}

func TestMemory_UpsertDoesNotAlias(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	e := entry("j", 1, 0)
	require.NoError(t, m.Upsert(ctx, e))
	e.Vector[0] = 42

	got, err := m.Get(ctx, "j")
	require.NoError(t, err)
	assert.Equal(t, types.Vector{1, 0}, got.Vector)
}

func TestMemory_Validation(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	assert.ErrorIs(t, m.Upsert(ctx, entry("", 1)), types.ErrValidation)
	assert.ErrorIs(t, m.Upsert(ctx, entry("empty")), types.ErrValidation)

	require.NoError(t, m.Upsert(ctx, entry("a", 1, 2)))
	assert.ErrorIs(t, m.Upsert(ctx, entry("b", 1, 2, 3)), types.ErrValidation)

	_, err := m.Query(ctx, types.Vector{1}, 1, nil)
	assert.ErrorIs(t, err, types.ErrValidation)

	require.NoError(t, m.Upsert(ctx, entry("a", 1, 2, 3)), "sole entry may change dimension")
}

func TestMemory_RemoveAndGet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Upsert(ctx, entry("a", 1)))

	require.NoError(t, m.Remove(ctx, "a"))
	require.NoError(t, m.Remove(ctx, "a"))

	_, err := m.Get(ctx, "a")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestMemory_ConcurrentUpsertAndQuery(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Upsert(ctx, entry("j", 1, 0)))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			e := entry("j", float32(i), 1)
			e.TextHash = fmt.Sprint(i)
			m.Upsert(ctx, e)
		}(i)
		go func() {
			defer wg.Done()
			got, err := m.Get(ctx, "j")
			if assert.NoError(t, err) && got.TextHash != "" {
				assert.Equal(t, got.TextHash, fmt.Sprint(int(got.Vector[0])))
			}
		}()
	}
	wg.Wait()
}
