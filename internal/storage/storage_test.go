package storage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MereWhiplash/jobmatch/internal/conversation"
	"github.com/MereWhiplash/jobmatch/internal/index"
	"github.com/MereWhiplash/jobmatch/internal/storage"
	"github.com/MereWhiplash/jobmatch/internal/types"
)

var (
	_ conversation.Store = storage.Storage(nil)
	_ index.Store        = storage.Storage(nil)
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newSession(userID, id string, version int64, at time.Time) *types.Session {
	loc := []string{"remote"}
	return &types.Session{
		ID:     id,
		UserID: userID,
		Messages: []types.Message{
			{Role: types.RoleUser, Content: "remote please", Timestamp: at},
		},
		Preferences: types.Preferences{Locations: loc},
		State:       types.StateEliciting,
		Version:     version,
		CreatedAt:   at,
		UpdatedAt:   at,
	}
}

// runStorageSuite exercises the behaviour every backend must share
func runStorageSuite(t *testing.T, store storage.Storage) {
	ctx := context.Background()

	t.Run("get missing session", func(t *testing.T) {
		_, err := store.GetSession(ctx, "u-missing", "nope")
		if !errors.Is(err, types.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("save and get", func(t *testing.T) {
		s := newSession("u1", "c1", 1, epoch)
		if err := store.SaveSession(ctx, s); err != nil {
			t.Fatalf("SaveSession failed: %v", err)
		}

		got, err := store.GetSession(ctx, "u1", "c1")
		if err != nil {
			t.Fatalf("GetSession failed: %v", err)
		}
		if got.Version != 1 || got.State != types.StateEliciting {
			t.Errorf("unexpected session: %+v", got)
		}
		if len(got.Messages) != 1 || got.Messages[0].Content != "remote please" {
			t.Errorf("unexpected messages: %+v", got.Messages)
		}
		if got.Preferences.Value(types.FieldLocation) != "remote" {
			t.Errorf("expected location remote, got %q", got.Preferences.Value(types.FieldLocation))
		}
		if !got.UpdatedAt.Equal(epoch) {
			t.Errorf("expected updated_at %v, got %v", epoch, got.UpdatedAt)
		}
	})

	t.Run("returned session is a copy", func(t *testing.T) {
		got, err := store.GetSession(ctx, "u1", "c1")
		if err != nil {
			t.Fatalf("GetSession failed: %v", err)
		}
		got.Messages = append(got.Messages, types.Message{Role: types.RoleAssistant, Content: "x"})
		got.Preferences.Locations[0] = "paris"

		again, err := store.GetSession(ctx, "u1", "c1")
		if err != nil {
			t.Fatalf("GetSession failed: %v", err)
		}
		if len(again.Messages) != 1 || again.Preferences.Locations[0] != "remote" {
			t.Errorf("stored session was mutated through a returned copy: %+v", again)
		}
	})

	t.Run("stale version conflicts", func(t *testing.T) {
		s := newSession("u1", "c2", 3, epoch)
		if err := store.SaveSession(ctx, s); err != nil {
			t.Fatalf("SaveSession failed: %v", err)
		}

		stale := newSession("u1", "c2", 2, epoch)
		stale.State = types.StateClosed
		err := store.SaveSession(ctx, stale)
		if !errors.Is(err, types.ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}

		got, err := store.GetSession(ctx, "u1", "c2")
		if err != nil {
			t.Fatalf("GetSession failed: %v", err)
		}
		if got.State != types.StateEliciting {
			t.Errorf("stale write was applied: %v", got.State)
		}
	})

	t.Run("same version is idempotent", func(t *testing.T) {
		s := newSession("u1", "c2", 3, epoch)
		if err := store.SaveSession(ctx, s); err != nil {
			t.Fatalf("re-save at same version failed: %v", err)
		}
		s.Version = 4
		if err := store.SaveSession(ctx, s); err != nil {
			t.Fatalf("save at newer version failed: %v", err)
		}
	})

	t.Run("list newest first", func(t *testing.T) {
		for i, id := range []string{"a", "b", "c"} {
			s := newSession("u-list", id, 1, epoch.Add(time.Duration(i)*time.Minute))
			if err := store.SaveSession(ctx, s); err != nil {
				t.Fatalf("SaveSession failed: %v", err)
			}
		}
		if err := store.SaveSession(ctx, newSession("someone-else", "z", 1, epoch)); err != nil {
			t.Fatalf("SaveSession failed: %v", err)
		}

		list, err := store.ListSessions(ctx, "u-list")
		if err != nil {
			t.Fatalf("ListSessions failed: %v", err)
		}
		if len(list) != 3 {
			t.Fatalf("expected 3 sessions, got %d", len(list))
		}
		for i, want := range []string{"c", "b", "a"} {
			if list[i].ID != want {
				t.Errorf("position %d: expected %s, got %s", i, want, list[i].ID)
			}
			if list[i].MessageCount != 1 {
				t.Errorf("expected message count 1, got %d", list[i].MessageCount)
			}
		}
	})

	t.Run("list unknown user is empty", func(t *testing.T) {
		list, err := store.ListSessions(ctx, "nobody")
		if err != nil {
			t.Fatalf("ListSessions failed: %v", err)
		}
		if list == nil || len(list) != 0 {
			t.Errorf("expected empty non-nil list, got %#v", list)
		}
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		if err := store.DeleteSession(ctx, "u-list", "a"); err != nil {
			t.Fatalf("DeleteSession failed: %v", err)
		}
		if err := store.DeleteSession(ctx, "u-list", "a"); err != nil {
			t.Fatalf("second DeleteSession failed: %v", err)
		}
		if _, err := store.GetSession(ctx, "u-list", "a"); !errors.Is(err, types.ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
		list, err := store.ListSessions(ctx, "u-list")
		if err != nil {
			t.Fatalf("ListSessions failed: %v", err)
		}
		if len(list) != 2 {
			t.Errorf("expected 2 sessions after delete, got %d", len(list))
		}
	})

	t.Run("invalid session", func(t *testing.T) {
		err := store.SaveSession(ctx, &types.Session{ID: "x"})
		if !errors.Is(err, types.ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("entries", func(t *testing.T) {
		job := types.IndexEntry{
			Kind:       types.KindJob,
			ID:         "j1",
			Vector:     types.Vector{0.25, -1, 0.5},
			Attributes: types.Attributes{Location: "Berlin", Remote: true, Skills: []string{"go"}},
			TextHash:   "abc",
			UpdatedAt:  epoch,
		}
		cand := types.IndexEntry{
			Kind:      types.KindCandidate,
			ID:        "j1",
			Vector:    types.Vector{1, 0, 0},
			TextHash:  "def",
			UpdatedAt: epoch,
		}
		for _, e := range []types.IndexEntry{job, cand} {
			if err := store.UpsertEntry(ctx, e); err != nil {
				t.Fatalf("UpsertEntry failed: %v", err)
			}
		}

		job.Vector = types.Vector{0, 1, 0}
		job.TextHash = "abc2"
		if err := store.UpsertEntry(ctx, job); err != nil {
			t.Fatalf("UpsertEntry replace failed: %v", err)
		}

		jobs, err := store.ListEntries(ctx, types.KindJob)
		if err != nil {
			t.Fatalf("ListEntries failed: %v", err)
		}
		if len(jobs) != 1 {
			t.Fatalf("expected 1 job entry, got %d", len(jobs))
		}
		got := jobs[0]
		if got.ID != "j1" || got.Kind != types.KindJob || got.TextHash != "abc2" {
			t.Errorf("unexpected entry: %+v", got)
		}
		if len(got.Vector) != 3 || got.Vector[1] != 1 {
			t.Errorf("unexpected vector: %v", got.Vector)
		}
		if !got.Attributes.Equal(job.Attributes) {
			t.Errorf("attributes mismatch: %+v", got.Attributes)
		}

		if err := store.DeleteEntry(ctx, types.KindJob, "j1"); err != nil {
			t.Fatalf("DeleteEntry failed: %v", err)
		}
		if err := store.DeleteEntry(ctx, types.KindJob, "j1"); err != nil {
			t.Fatalf("second DeleteEntry failed: %v", err)
		}
		jobs, err = store.ListEntries(ctx, types.KindJob)
		if err != nil {
			t.Fatalf("ListEntries failed: %v", err)
		}
		if len(jobs) != 0 {
			t.Errorf("expected no job entries, got %d", len(jobs))
		}

		cands, err := store.ListEntries(ctx, types.KindCandidate)
		if err != nil {
			t.Fatalf("ListEntries failed: %v", err)
		}
		if len(cands) != 1 || cands[0].TextHash != "def" {
			t.Errorf("candidate entry affected by job delete: %+v", cands)
		}
	})
}
