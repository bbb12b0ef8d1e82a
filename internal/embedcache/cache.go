// Package embedcache memoizes embeddings by content hash with single-flight duplicate suppression.
package embedcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/unicode/norm"

	"github.com/MereWhiplash/jobmatch/internal/embedder"
	"github.com/MereWhiplash/jobmatch/internal/logger"
	"github.com/MereWhiplash/jobmatch/internal/types"
)

// Store is one cache tier
type Store interface {
	Get(ctx context.Context, key string) (types.Vector, bool, error)
	Set(ctx context.Context, key string, v types.Vector) error
}

// Stats counts cache activity since construction
type Stats struct {
	Hits     int64 `json:"hits"`
	Misses   int64 `json:"misses"`
	Computes int64 `json:"computes"`
}

// Cache returns the embedding of a text, computing it at most once per content hash
type Cache struct {
	embedder embedder.Embedder
	tiers    []Store
	group    singleflight.Group
	log      *zap.Logger

	hits     atomic.Int64
	misses   atomic.Int64
	computes atomic.Int64
}

// New creates a cache over the given tiers, fastest first.
// Without tiers an in-process MemoryStore is used.
func New(e embedder.Embedder, log *zap.Logger, tiers ...Store) *Cache {
	if len(tiers) == 0 {
		tiers = []Store{NewMemoryStore(DefaultMemoryEntries)}
	}
	return &Cache{
		embedder: e,
		tiers:    tiers,
		log:      logger.OrNop(log),
	}
}

// Normalize applies NFC, collapses whitespace runs and trims
func Normalize(text string) string {
	return strings.Join(strings.Fields(norm.NFC.String(text)), " ")
}

// Key is the hex SHA-256 of the normalized text
func Key(text string) string {
	sum := sha256.Sum256([]byte(Normalize(text)))
	return hex.EncodeToString(sum[:])
}

// GetOrCompute returns the cached vector for text or computes it.
// Concurrent callers for the same normalized text share one provider call. A caller
// that gives up returns its context error while the call finishes and fills the cache.
func (c *Cache) GetOrCompute(ctx context.Context, text string) (types.Vector, error) {
	normalized := Normalize(text)
	if normalized == "" {
		return nil, fmt.Errorf("%w: text is empty", types.ErrValidation)
	}
	key := Key(normalized)

	if v, ok := c.lookup(ctx, key); ok {
		c.hits.Add(1)
		return v, nil
	}
	c.misses.Add(1)

	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		if v, ok, _ := c.tiers[0].Get(detached, key); ok {
			return v, nil
		}

		c.computes.Add(1)
		vec, err := c.embedder.Embed(detached, normalized)
		if err != nil {
			if !errors.Is(err, types.ErrProviderUnavailable) {
				err = fmt.Errorf("%w: %w", types.ErrProviderUnavailable, err)
			}
			c.log.Warn("embedding failed",
				zap.String("key", key[:12]),
				zap.String("text", logger.Truncate(normalized, 80)),
				zap.Error(err))
			return nil, err
		}

		v := types.Vector(vec)
		c.store(detached, key, v, len(c.tiers))
		return v, nil
	})

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w", types.ErrProviderUnavailable, ctx.Err())
		}
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(types.Vector).Clone(), nil
	}
}

// Stats returns a snapshot of the counters
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		Computes: c.computes.Load(),
	}
}

// lookup consults tiers in order and promotes a hit into the faster tiers.
// A failing tier counts as a miss.
func (c *Cache) lookup(ctx context.Context, key string) (types.Vector, bool) {
	for i, tier := range c.tiers {
		v, ok, err := tier.Get(ctx, key)
		if err != nil {
			c.log.Warn("cache tier read failed", zap.Int("tier", i), zap.Error(err))
			continue
		}
		if ok {
			c.store(ctx, key, v, i)
			return v.Clone(), true
		}
	}
	return nil, false
}

// store writes v into tiers [0, upto)
func (c *Cache) store(ctx context.Context, key string, v types.Vector, upto int) {
	for i := 0; i < upto; i++ {
		if err := c.tiers[i].Set(ctx, key, v); err != nil {
			c.log.Warn("cache tier write failed", zap.Int("tier", i), zap.Error(err))
		}
	}
}
