package embedcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MereWhiplash/jobmatch/internal/types"
)

// RedisStore is a shared tier so several processes reuse each other's embeddings
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a RedisStore. A zero ttl keeps entries forever.
func NewRedisStore(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "jobmatch:emb:"
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

// Get implements Store
func (r *RedisStore) Get(ctx context.Context, key string) (types.Vector, bool, error) {
	b, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get embedding: %w", err)
	}
	v, err := types.DecodeVector(b)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// Set implements Store
func (r *RedisStore) Set(ctx context.Context, key string, v types.Vector) error {
	if err := r.client.Set(ctx, r.prefix+key, v.Encode(), r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set embedding: %w", err)
	}
	return nil
}
