//go:build cgo

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/MereWhiplash/jobmatch/internal/types"
)

// SQLite implements Storage using SQLite. Vectors are stored as sqlite-vec float32 blobs.
type SQLite struct {
	conn *sql.DB
}

// NewSQLite creates a new SQLite storage
func NewSQLite(path string) (*SQLite, error) {
	sqlite_vec.Auto()

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &SQLite{conn: conn}
	if err := s.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

func (s *SQLite) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS sessions (
			user_id TEXT NOT NULL,
			id TEXT NOT NULL,
			state TEXT NOT NULL,
			version INTEGER NOT NULL,
			preferences TEXT NOT NULL,
			messages TEXT NOT NULL,
			message_count INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			PRIMARY KEY (user_id, id)
		);

		CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(user_id, updated_at DESC);

		CREATE TABLE IF NOT EXISTS index_entries (
			kind TEXT NOT NULL CHECK(kind IN ('job', 'candidate')),
			id TEXT NOT NULL,
			attributes TEXT NOT NULL,
			text_hash TEXT NOT NULL,
			embedding BLOB NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			PRIMARY KEY (kind, id)
		);
	`
	_, err := s.conn.Exec(schema)
	return err
}

func (s *SQLite) Close() error {
	return s.conn.Close()
}

func (s *SQLite) GetSession(ctx context.Context, userID, id string) (*types.Session, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT state, version, preferences, messages, created_at, updated_at
		 FROM sessions WHERE user_id = ? AND id = ?`,
		userID, id,
	)

	sess := &types.Session{ID: id, UserID: userID}
	var state, prefs, msgs string
	err := row.Scan(&state, &sess.Version, &prefs, &msgs, &sess.CreatedAt, &sess.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(userID, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	sess.State = types.SessionState(state)
	if err := json.Unmarshal([]byte(prefs), &sess.Preferences); err != nil {
		return nil, fmt.Errorf("failed to decode preferences: %w", err)
	}
	if err := json.Unmarshal([]byte(msgs), &sess.Messages); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}
	return sess, nil
}

func (s *SQLite) ListSessions(ctx context.Context, userID string) ([]types.SessionSummary, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, state, message_count, preferences, created_at, updated_at
		 FROM sessions WHERE user_id = ?
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
		var state, prefs string
		if err := rows.Scan(&sum.ID, &state, &sum.MessageCount, &prefs, &sum.CreatedAt, &sum.UpdatedAt); err != nil {
			return nil, err
		}
		sum.State = types.SessionState(state)
		if err := json.Unmarshal([]byte(prefs), &sum.Preferences); err != nil {
			return nil, fmt.Errorf("failed to decode preferences: %w", err)
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	types.SortSummaries(out)
	return out, nil
}

func (s *SQLite) SaveSession(ctx context.Context, sess *types.Session) error {
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

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var stored int64
	err = tx.QueryRowContext(ctx,
		`SELECT version FROM sessions WHERE user_id = ? AND id = ?`,
		sess.UserID, sess.ID,
	).Scan(&stored)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("failed to read session version: %w", err)
	default:
		if err := checkVersion(sess, stored); err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (user_id, id, state, version, preferences, messages, message_count, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, id) DO UPDATE SET
			state = excluded.state,
			version = excluded.version,
			preferences = excluded.preferences,
			messages = excluded.messages,
			message_count = excluded.message_count,
			updated_at = excluded.updated_at`,
		sess.UserID, sess.ID, string(sess.State), sess.Version, string(prefs), string(msgs),
		len(sess.Messages), sess.CreatedAt.UTC(), sess.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return tx.Commit()
}

func (s *SQLite) DeleteSession(ctx context.Context, userID, id string) error {
	_, err := s.conn.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ? AND id = ?`, userID, id)
	return err
}

func (s *SQLite) UpsertEntry(ctx context.Context, e types.IndexEntry) error {
	attrs, err := json.Marshal(e.Attributes)
	if err != nil {
		return fmt.Errorf("failed to marshal attributes: %w", err)
	}
	blob, err := sqlite_vec.SerializeFloat32(e.Vector)
	if err != nil {
		return fmt.Errorf("failed to serialize embedding: %w", err)
	}

	_, err = s.conn.ExecContext(ctx,
		`INSERT INTO index_entries (kind, id, attributes, text_hash, embedding, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(kind, id) DO UPDATE SET
			attributes = excluded.attributes,
			text_hash = excluded.text_hash,
			embedding = excluded.embedding,
			updated_at = excluded.updated_at`,
		string(e.Kind), e.ID, string(attrs), e.TextHash, blob, e.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert entry: %w", err)
	}
	return nil
}

func (s *SQLite) DeleteEntry(ctx context.Context, kind types.EntityKind, id string) error {
	_, err := s.conn.ExecContext(ctx, `DELETE FROM index_entries WHERE kind = ? AND id = ?`, string(kind), id)
	return err
}

func (s *SQLite) ListEntries(ctx context.Context, kind types.EntityKind) ([]types.IndexEntry, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, attributes, text_hash, embedding, updated_at
		 FROM index_entries WHERE kind = ? ORDER BY id`,
		string(kind),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.IndexEntry
	for rows.Next() {
		e := types.IndexEntry{Kind: kind}
		var attrs string
		var blob []byte
		var updated time.Time
		if err := rows.Scan(&e.ID, &attrs, &e.TextHash, &blob, &updated); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(attrs), &e.Attributes); err != nil {
			return nil, fmt.Errorf("failed to decode attributes for %s: %w", e.ID, err)
		}
		if e.Vector, err = types.DecodeVector(blob); err != nil {
			return nil, fmt.Errorf("failed to decode embedding for %s: %w", e.ID, err)
		}
		e.UpdatedAt = updated
		out = append(out, e)
	}
	return out, rows.Err()
}
