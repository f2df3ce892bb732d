package users

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"boardsync/internal/domain"
	"boardsync/internal/domain/models"
	"boardsync/internal/store"
	"boardsync/internal/store/memory"
)

func newTestService(t *testing.T) (*Service, *memory.Adapter, *store.Collections) {
	t.Helper()
	adapter := memory.New()
	colls := store.NewCollections("test_")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(adapter, colls, logger), adapter, colls
}

func seedProfile(t *testing.T, adapter *memory.Adapter, colls *store.Collections, id, email string) {
	t.Helper()
	fields, err := store.FieldsOf(&models.UserProfile{ID: id, Email: email, DisplayName: "Test User"})
	if err != nil {
		t.Fatalf("fields: %v", err)
	}
	if err := adapter.Set(context.Background(), colls.Users, id, fields); err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

func TestResolveEmail(t *testing.T) {
	svc, adapter, colls := newTestService(t)
	seedProfile(t, adapter, colls, "u1", "u1@example.com")
	ctx := context.Background()

	user, err := svc.ResolveEmail(ctx, "u1@example.com")
	if err != nil {
		t.Fatalf("ResolveEmail: %v", err)
	}
	if user.ID != "u1" || user.DisplayName != "Test User" {
		t.Fatalf("user = %+v", user)
	}

	if _, err := svc.ResolveEmail(ctx, "nobody@example.com"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestResolveEmailServesFromCache(t *testing.T) {
	svc, adapter, colls := newTestService(t)
	seedProfile(t, adapter, colls, "u1", "u1@example.com")
	ctx := context.Background()

	if _, err := svc.ResolveEmail(ctx, "u1@example.com"); err != nil {
		t.Fatalf("ResolveEmail: %v", err)
	}

	// Profile disappears from the store; the cached entry still serves.
	if err := adapter.DeleteDoc(ctx, colls.Users, "u1"); err != nil {
		t.Fatalf("DeleteDoc: %v", err)
	}
	user, err := svc.ResolveEmail(ctx, "u1@example.com")
	if err != nil {
		t.Fatalf("cached ResolveEmail: %v", err)
	}
	if user.ID != "u1" {
		t.Fatalf("user = %+v", user)
	}

	// GetByID is fed by the same cache.
	if _, err := svc.GetByID(ctx, "u1"); err != nil {
		t.Fatalf("cached GetByID: %v", err)
	}

	// Invalidation forces a store round trip, which now misses.
	svc.Invalidate("u1")
	if _, err := svc.ResolveEmail(ctx, "u1@example.com"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err after invalidate = %v, want not found", err)
	}
}

func TestResolveIDsChunksLargeMemberSets(t *testing.T) {
	svc, adapter, colls := newTestService(t)
	ctx := context.Background()

	// 35 ids exceed the per-query id limit, forcing a chunked fetch.
	ids := make([]string, 35)
	for i := range ids {
		ids[i] = fmt.Sprintf("u%02d", i)
		seedProfile(t, adapter, colls, ids[i], ids[i]+"@example.com")
	}

	users, err := svc.ResolveIDs(ctx, ids)
	if err != nil {
		t.Fatalf("ResolveIDs: %v", err)
	}
	if len(users) != 35 {
		t.Fatalf("resolved %d users, want 35", len(users))
	}
	// Input order is preserved across chunk boundaries.
	for i, user := range users {
		if user.ID != ids[i] {
			t.Fatalf("users[%d] = %s, want %s", i, user.ID, ids[i])
		}
	}
}

func TestResolveIDsServesCachedAndSkipsMissing(t *testing.T) {
	svc, adapter, colls := newTestService(t)
	ctx := context.Background()
	seedProfile(t, adapter, colls, "u1", "u1@example.com")
	seedProfile(t, adapter, colls, "u2", "u2@example.com")

	if _, err := svc.GetByID(ctx, "u1"); err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	// u1 now serves from cache even after deletion from the store.
	if err := adapter.DeleteDoc(ctx, colls.Users, "u1"); err != nil {
		t.Fatalf("DeleteDoc: %v", err)
	}

	users, err := svc.ResolveIDs(ctx, []string{"u1", "ghost", "u2"})
	if err != nil {
		t.Fatalf("ResolveIDs: %v", err)
	}
	if len(users) != 2 || users[0].ID != "u1" || users[1].ID != "u2" {
		t.Fatalf("users = %+v, want [u1 u2]", users)
	}
}

func TestClearEmptiesCache(t *testing.T) {
	svc, adapter, colls := newTestService(t)
	seedProfile(t, adapter, colls, "u1", "u1@example.com")
	ctx := context.Background()

	if _, err := svc.GetByID(ctx, "u1"); err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if err := adapter.DeleteDoc(ctx, colls.Users, "u1"); err != nil {
		t.Fatalf("DeleteDoc: %v", err)
	}

	svc.Clear()
	if _, err := svc.GetByID(ctx, "u1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err after clear = %v, want not found", err)
	}
}
