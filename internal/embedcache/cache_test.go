package embedcache

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MereWhiplash/jobmatch/internal/embedder"
	"github.com/MereWhiplash/jobmatch/internal/types"
)

type countingEmbedder struct {
	calls   atomic.Int64
	release chan struct{}
	err     error
}

func (e *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls.Add(1)
	if e.release != nil {
		<-e.release
	}
	if e.err != nil {
		return nil, e.err
	}
	return []float32{float32(len(text)), 1}, nil
}

func TestNormalizeAndKey(t *testing.T) {
	assert.Equal(t, "senior go engineer", Normalize("  senior \t go\n\nengineer  "))
	assert.Equal(t, Key("senior go engineer"), Key("senior   go engineer "))
	assert.NotEqual(t, Key("senior go engineer"), Key("junior go engineer"))

	// "é" precomposed and decomposed normalize to the same key
	assert.Equal(t, Key("caf\u00e9"), Key("cafe\u0301"))
	assert.Len(t, Key("x"), 64)
}

func TestGetOrCompute_CachesByNormalizedText(t *testing.T) {
	e := &countingEmbedder{}
	c := New(e, nil)
	ctx := context.Background()

	v1, err := c.GetOrCompute(ctx, "go developer")
	require.NoError(t, err)
	v2, err := c.GetOrCompute(ctx, "  go   developer ")
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.EqualValues(t, 1, e.calls.Load())
	assert.Equal(t, Stats{Hits: 1, Misses: 1, Computes: 1}, c.Stats())
}

func TestGetOrCompute_EmptyText(t *testing.T) {
	e := &countingEmbedder{}
	c := New(e, nil)

	_, err := c.GetOrCompute(context.Background(), " \n\t ")
	assert.ErrorIs(t, err, types.ErrValidation)
	assert.Zero(t, e.calls.Load())
}

func TestGetOrCompute_ConcurrentCallersShareOneCall(t *testing.T) {
	e := &countingEmbedder{release: make(chan struct{})}
	c := New(e, nil)

	const callers = 32
	var wg sync.WaitGroup
	results := make([]types.Vector, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.GetOrCompute(context.Background(), "rust engineer")
		}(i)
	}

	require.Eventually(t, func() bool { return e.calls.Load() == 1 }, time.Second, time.Millisecond)
	close(e.release)
	wg.Wait()

	assert.EqualValues(t, 1, e.calls.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0], results[i])
	}
}

func TestGetOrCompute_FailureWritesNothing(t *testing.T) {
	store := NewMemoryStore(0)
	e := &countingEmbedder{err: errors.New("connection refused")}
	c := New(e, nil, store)

	_, err := c.GetOrCompute(context.Background(), "data engineer")
	assert.ErrorIs(t, err, types.ErrProviderUnavailable)
	assert.Zero(t, store.Len())

	e.err = nil
	v, err := c.GetOrCompute(context.Background(), "data engineer")
	require.NoError(t, err)
	assert.NotEmpty(t, v)
	assert.EqualValues(t, 2, e.calls.Load(), "failures are not cached")
	assert.Equal(t, 1, store.Len())
}

func TestGetOrCompute_AbandonedCallerStillPopulates(t *testing.T) {
	store := NewMemoryStore(0)
	e := &countingEmbedder{release: make(chan struct{})}
	c := New(e, nil, store)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.GetOrCompute(ctx, "platform engineer")
		done <- err
	}()

	require.Eventually(t, func() bool { return e.calls.Load() == 1 }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(e.release)
	require.Eventually(t, func() bool { return store.Len() == 1 }, time.Second, time.Millisecond)

	_, err := c.GetOrCompute(context.Background(), "platform engineer")
	require.NoError(t, err)
	assert.EqualValues(t, 1, e.calls.Load())
}

func TestGetOrCompute_DeadlineIsProviderUnavailable(t *testing.T) {
	e := &countingEmbedder{release: make(chan struct{})}
	defer close(e.release)
	c := New(e, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := c.GetOrCompute(ctx, "sre")
	assert.ErrorIs(t, err, types.ErrProviderUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGetOrCompute_PromotesLowerTierHits(t *testing.T) {
	fast := NewMemoryStore(0)
	slow := NewMemoryStore(0)
	require.NoError(t, slow.Set(context.Background(), Key("designer"), types.Vector{0.3, 0.4}))

	var e embedder.Func = func(ctx context.Context, text string) ([]float32, error) {
		t.Fatal("provider must not be called on a tier hit")
		return nil, nil
	}
	c := New(e, nil, fast, slow)

	v, err := c.GetOrCompute(context.Background(), "designer")
	require.NoError(t, err)
	assert.Equal(t, types.Vector{0.3, 0.4}, v)
	assert.Equal(t, 1, fast.Len())
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set, skipping Redis tests")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	ctx := context.Background()
	store := NewRedisStore(client, "jobmatch:test:emb:", time.Minute)
	key := Key("redis tier")

	_, ok, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, key, types.Vector{1, 2, 3}))
	v, ok, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, types.Vector{1, 2, 3}, v)

	client.Del(ctx, "jobmatch:test:emb:"+key)
}

func TestMemoryStore_EvictsOldest(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(2)
	require.NoError(t, store.Set(ctx, "a", types.Vector{1}))
	require.NoError(t, store.Set(ctx, "b", types.Vector{2}))
	require.NoError(t, store.Set(ctx, "a", types.Vector{3}))
	require.NoError(t, store.Set(ctx, "c", types.Vector{4}))

	assert.Equal(t, 2, store.Len())
	_, ok, _ := store.Get(ctx, "a")
	assert.False(t, ok, "oldest key evicted first")
	v, ok, _ := store.Get(ctx, "c")
	assert.True(t, ok)
	assert.Equal(t, types.Vector{4}, v)
}
