package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/MereWhiplash/jobmatch/internal/types"
)

// Postgres implements Storage using PostgreSQL with pgvector
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a new Postgres storage
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	p := &Postgres{pool: pool}
	if err := p.initSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return p, nil
}

func (p *Postgres) initSchema(ctx context.Context) error {
	schema := `
		CREATE EXTENSION IF NOT EXISTS vector;

		CREATE TABLE IF NOT EXISTS sessions (
			user_id TEXT NOT NULL,
			id TEXT NOT NULL,
			state TEXT NOT NULL,
			version BIGINT NOT NULL,
			preferences JSONB NOT NULL,
			messages JSONB NOT NULL,
			message_count INTEGER NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (user_id, id)
		);

		CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(user_id, updated_at DESC);

		CREATE TABLE IF NOT EXISTS index_entries (
			kind TEXT NOT NULL CHECK(kind IN ('job', 'candidate')),
			id TEXT NOT NULL,
			attributes JSONB NOT NULL,
			text_hash TEXT NOT NULL,
			embedding vector NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (kind, id)
		);
	`
	_, err := p.pool.Exec(ctx, schema)
	return err
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) GetSession(ctx context.Context, userID, id string) (*types.Session, error) {
	sess := &types.Session{ID: id, UserID: userID}
	var state string
	var prefs, msgs []byte
	err := p.pool.QueryRow(ctx,
		`SELECT state, version, preferences, messages, created_at, updated_at
		 FROM sessions WHERE user_id = $1 AND id = $2`,
		userID, id,
	).Scan(&state, &sess.Version, &prefs, &msgs, &sess.CreatedAt, &sess.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound(userID, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	sess.State = types.SessionState(state)
	if err := json.Unmarshal(prefs, &sess.Preferences); err != nil {
		return nil, fmt.Errorf("failed to decode preferences: %w", err)
	}
	if err := json.Unmarshal(msgs, &sess.Messages); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}
	return sess, nil
}

func (p *Postgres) ListSessions(ctx context.Context, userID string) ([]types.SessionSummary, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, state, message_count, preferences, created_at, updated_at
		 FROM sessions WHERE user_id = $1
		 ORDER BY updated_at DESC, id ASC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []types.SessionSummary{}
	for rows.Next() {
		sum := types.SessionSummary{UserID: userID}
		var state string
		var prefs []byte
		if err := rows.Scan(&sum.ID, &state, &sum.MessageCount, &prefs, &sum.CreatedAt, &sum.UpdatedAt); err != nil {
			return nil, err
		}
		sum.State = types.SessionState(state)
		if err := json.Unmarshal(prefs, &sum.Preferences); err != nil {
			return nil, fmt.Errorf("failed to decode preferences: %w", err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// SaveSession upserts only when the stored version is not newer. A miss on an
// existing row means the write was stale.
func (p *Postgres) SaveSession(ctx context.Context, sess *types.Session) error {
	if err := validateSession(sess); err != nil {
		return err
	}

	prefs, err := json.Marshal(sess.Preferences)
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}
	msgs, err := json.Marshal(nonNilMessages(sess.Messages))
	if err != nil {
		return fmt.Errorf("failed to marshal messages: %w", err)
	}

	tag, err := p.pool.Exec(ctx,
		`INSERT INTO sessions (user_id, id, state, version, preferences, messages, message_count, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (user_id, id) DO UPDATE SET
			state = EXCLUDED.state,
			version = EXCLUDED.version,
			preferences = EXCLUDED.preferences,
			messages = EXCLUDED.messages,
			message_count = EXCLUDED.message_count,
			updated_at = EXCLUDED.updated_at
		 WHERE sessions.version <= EXCLUDED.version`,
		sess.UserID, sess.ID, string(sess.State), sess.Version, string(prefs), string(msgs),
		len(sess.Messages), sess.CreatedAt, sess.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var stored int64
		if err := p.pool.QueryRow(ctx,
			`SELECT version FROM sessions WHERE user_id = $1 AND id = $2`,
			sess.UserID, sess.ID,
		).Scan(&stored); err != nil {
			return fmt.Errorf("%w: session %s changed concurrently", types.ErrConflict, sess.ID)
		}
		return checkVersion(sess, stored)
	}
	return nil
}

func (p *Postgres) DeleteSession(ctx context.Context, userID, id string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1 AND id = $2`, userID, id)
	return err
}

func (p *Postgres) UpsertEntry(ctx context.Context, e types.IndexEntry) error {
	attrs, err := json.Marshal(e.Attributes)
	if err != nil {
		return fmt.Errorf("failed to marshal attributes: %w", err)
	}

	_, err = p.pool.Exec(ctx,
		`INSERT INTO index_entries (kind, id, attributes, text_hash, embedding, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (kind, id) DO UPDATE SET
			attributes = EXCLUDED.attributes,
			text_hash = EXCLUDED.text_hash,
			embedding = EXCLUDED.embedding,
			updated_at = EXCLUDED.updated_at`,
		string(e.Kind), e.ID, string(attrs), e.TextHash, pgvector.NewVector(e.Vector), e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert entry: %w", err)
	}
	return nil
}

func (p *Postgres) DeleteEntry(ctx context.Context, kind types.EntityKind, id string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM index_entries WHERE kind = $1 AND id = $2`, string(kind), id)
	return err
}

func (p *Postgres) ListEntries(ctx context.Context, kind types.EntityKind) ([]types.IndexEntry, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, attributes, text_hash, embedding::text, updated_at
		 FROM index_entries WHERE kind = $1 ORDER BY id`,
		string(kind),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.IndexEntry
	for rows.Next() {
		e := types.IndexEntry{Kind: kind}
		var attrs []byte
		var vec pgvector.Vector
		if err := rows.Scan(&e.ID, &attrs, &e.TextHash, &vec, &e.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(attrs, &e.Attributes); err != nil {
			return nil, fmt.Errorf("failed to decode attributes for %s: %w", e.ID, err)
		}
		e.Vector = vec.Slice()
		out = append(out, e)
	}
	return out, rows.Err()
}
