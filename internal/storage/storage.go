// Package storage persists conversation sessions and index entries.
// Backends: memory, sqlite (sqlite-vec), postgres (pgvector), mongodb, redis.
package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/MereWhiplash/jobmatch/internal/types"
)

// Storage is the key-value persistence backend behind the conversation store
// and the durable vector index
type Storage interface {
	// GetSession returns types.ErrNotFound when the session does not exist
	GetSession(ctx context.Context, userID, id string) (*types.Session, error)
	// ListSessions returns summaries, most recently updated first
	ListSessions(ctx context.Context, userID string) ([]types.SessionSummary, error)
	// SaveSession is last-write-wins by (user, id). A version lower than the
	// stored one is stale and fails with types.ErrConflict.
	SaveSession(ctx context.Context, s *types.Session) error
	// DeleteSession is a no-op when the session does not exist
	DeleteSession(ctx context.Context, userID, id string) error

	UpsertEntry(ctx context.Context, e types.IndexEntry) error
	DeleteEntry(ctx context.Context, kind types.EntityKind, id string) error
	ListEntries(ctx context.Context, kind types.EntityKind) ([]types.IndexEntry, error)

	Close() error
}

func validateSession(s *types.Session) error {
	if s == nil {
		return fmt.Errorf("%w: session is nil", types.ErrValidation)
	}
	if strings.TrimSpace(s.UserID) == "" || strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("%w: session needs user id and id", types.ErrValidation)
	}
	return nil
}

func checkVersion(s *types.Session, stored int64) error {
	if s.Version < stored {
		return fmt.Errorf("%w: session %s is at version %d, write has %d", types.ErrConflict, s.ID, stored, s.Version)
	}
	return nil
}

func notFound(userID, id string) error {
	return fmt.Errorf("%w: conversation %s for user %s", types.ErrNotFound, id, userID)
}

func nonNilMessages(m []types.Message) []types.Message {
	if m == nil {
		return []types.Message{}
	}
	return m
}
