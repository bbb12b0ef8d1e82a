//go:build !cgo

package storage

import (
	"context"
	"fmt"

	"github.com/MereWhiplash/jobmatch/internal/types"
)

// SQLite is a stub for non-CGO builds
type SQLite struct{}

var errNoCGO = fmt.Errorf("SQLite storage requires CGO (build with CGO_ENABLED=1)")

// NewSQLite returns an error in non-CGO builds
func NewSQLite(path string) (*SQLite, error) {
	return nil, errNoCGO
}

func (s *SQLite) GetSession(ctx context.Context, userID, id string) (*types.Session, error) {
	return nil, errNoCGO
}

func (s *SQLite) ListSessions(ctx context.Context, userID string) ([]types.SessionSummary, error) {
	return nil, errNoCGO
}

func (s *SQLite) SaveSession(ctx context.Context, sess *types.Session) error {
	return errNoCGO
}

func (s *SQLite) DeleteSession(ctx context.Context, userID, id string) error {
	return errNoCGO
}

func (s *SQLite) UpsertEntry(ctx context.Context, e types.IndexEntry) error {
	return errNoCGO
}

func (s *SQLite) DeleteEntry(ctx context.Context, kind types.EntityKind, id string) error {
	return errNoCGO
}

func (s *SQLite) ListEntries(ctx context.Context, kind types.EntityKind) ([]types.IndexEntry, error) {
	return nil, errNoCGO
}

func (s *SQLite) Close() error {
	return nil
}
