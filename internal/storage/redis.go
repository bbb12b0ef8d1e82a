package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MereWhiplash/jobmatch/internal/types"
)

// RedisOptions configures the Redis backend
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	// SessionTTL expires a session this long after its last save; zero keeps it
	SessionTTL time.Duration
}

// Redis implements Storage on Redis.
//
// Keys:
//
//	<prefix>session:<user>:<id>   JSON session
//	<prefix>sessions:<user>       sorted set of session ids scored by updated_at
//	<prefix>entries:<kind>        hash of id → JSON entry
type Redis struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

const maxSaveRetries = 8

// NewRedis connects to Redis and verifies the connection
func NewRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return NewRedisFromClient(client, opts.Prefix, opts.SessionTTL), nil
}

// NewRedisFromClient wraps an existing client. Close closes the client.
func NewRedisFromClient(client redis.UniversalClient, prefix string, ttl time.Duration) *Redis {
	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

func (r *Redis) sessionKey(userID, id string) string {
	return r.prefix + "session:" + userID + ":" + id
}

func (r *Redis) userKey(userID string) string {
	return r.prefix + "sessions:" + userID
}

func (r *Redis) entriesKey(kind types.EntityKind) string {
	return r.prefix + "entries:" + string(kind)
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) GetSession(ctx context.Context, userID, id string) (*types.Session, error) {
	data, err := r.client.Get(ctx, r.sessionKey(userID, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, notFound(userID, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var sess types.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &sess, nil
}

// ListSessions reads ids from the user's sorted set. Ids whose session key
// expired are pruned from the set.
func (r *Redis) ListSessions(ctx context.Context, userID string) ([]types.SessionSummary, error) {
	ids, err := r.client.ZRevRange(ctx, r.userKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	out := []types.SessionSummary{}
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.sessionKey(userID, id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}

	var expired []any
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			expired = append(expired, ids[i])
			continue
		}
		var sess types.Session
		if err := json.Unmarshal([]byte(s), &sess); err != nil {
			return nil, fmt.Errorf("failed to decode session %s: %w", ids[i], err)
		}
		out = append(out, sess.Summary())
	}
	if len(expired) > 0 {
		r.client.ZRem(ctx, r.userKey(userID), expired...)
	}

	types.SortSummaries(out)
	return out, nil
}

// SaveSession runs an optimistic WATCH/MULTI transaction so the version check
// and the write are atomic
func (r *Redis) SaveSession(ctx context.Context, sess *types.Session) error {
	if err := validateSession(sess); err != nil {
		return err
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	key := r.sessionKey(sess.UserID, sess.ID)
	userKey := r.userKey(sess.UserID)

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			var stored struct {
				Version int64 `json:"version"`
			}
			if err := json.Unmarshal(raw, &stored); err != nil {
				return fmt.Errorf("failed to decode stored session: %w", err)
			}
			if err := checkVersion(sess, stored.Version); err != nil {
				return err
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, r.ttl)
			pipe.ZAdd(ctx, userKey, redis.Z{Score: float64(sess.UpdatedAt.UnixMilli()), Member: sess.ID})
			if r.ttl > 0 {
				pipe.Expire(ctx, userKey, r.ttl)
			}
			return nil
		})
		return err
	}

	for range maxSaveRetries {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil && !errors.Is(err, types.ErrConflict) {
			return fmt.Errorf("failed to save session: %w", err)
		}
		return err
	}
	return fmt.Errorf("%w: session %s kept changing during save", types.ErrConflict, sess.ID)
}

func (r *Redis) DeleteSession(ctx context.Context, userID, id string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.sessionKey(userID, id))
		pipe.ZRem(ctx, r.userKey(userID), id)
		return nil
	})
	return err
}

func (r *Redis) UpsertEntry(ctx context.Context, e types.IndexEntry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}
	if err := r.client.HSet(ctx, r.entriesKey(e.Kind), e.ID, data).Err(); err != nil {
		return fmt.Errorf("failed to upsert entry: %w", err)
	}
	return nil
}

func (r *Redis) DeleteEntry(ctx context.Context, kind types.EntityKind, id string) error {
	return r.client.HDel(ctx, r.entriesKey(kind), id).Err()
}

func (r *Redis) ListEntries(ctx context.Context, kind types.EntityKind) ([]types.IndexEntry, error) {
	all, err := r.client.HGetAll(ctx, r.entriesKey(kind)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}

	out := make([]types.IndexEntry, 0, len(all))
	for id, v := range all {
		var e types.IndexEntry
		if err := json.Unmarshal([]byte(v), &e); err != nil {
			return nil, fmt.Errorf("failed to decode entry %s: %w", id, err)
		}
		out = append(out, e)
	}
	return out, nil
}
