package board

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"boardsync/internal/domain/models"
	"boardsync/internal/store"
	"boardsync/internal/store/memory"
	"boardsync/internal/users"
)

type fixture struct {
	t       *testing.T
	ctx     context.Context
	adapter *memory.Adapter
	colls   *store.Collections
	service *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	adapter := memory.New()
	colls := store.NewCollections("test_")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	userService := users.NewService(adapter, colls, logger)
	return &fixture{
		t:       t,
		ctx:     context.Background(),
		adapter: adapter,
		colls:   colls,
		service: NewService(adapter, colls, userService, logger),
	}
}

func (f *fixture) seedUser(id, email string) {
	f.t.Helper()
	fields, err := store.FieldsOf(&models.UserProfile{ID: id, Email: email})
	if err != nil {
		f.t.Fatalf("seed user %s: %v", id, err)
	}
	if err := f.adapter.Set(f.ctx, f.colls.Users, id, fields); err != nil {
		f.t.Fatalf("seed user %s: %v", id, err)
	}
}

func (f *fixture) seedBoard(b *models.Board) {
	f.t.Helper()
	fields, err := store.FieldsOf(b)
	if err != nil {
		f.t.Fatalf("seed board %s: %v", b.ID, err)
	}
	if err := f.adapter.Set(f.ctx, f.colls.Boards, b.ID, fields); err != nil {
		f.t.Fatalf("seed board %s: %v", b.ID, err)
	}
}

func (f *fixture) seedColumn(c *models.Column) {
	f.t.Helper()
	fields, err := store.FieldsOf(c)
	if err != nil {
		f.t.Fatalf("seed column %s: %v", c.ID, err)
	}
	if err := f.adapter.Set(f.ctx, f.colls.Columns, c.ID, fields); err != nil {
		f.t.Fatalf("seed column %s: %v", c.ID, err)
	}
}

func (f *fixture) seedCard(c *models.Card) {
	f.t.Helper()
	fields, err := store.FieldsOf(c)
	if err != nil {
		f.t.Fatalf("seed card %s: %v", c.ID, err)
	}
	if err := f.adapter.Set(f.ctx, f.colls.Cards, c.ID, fields); err != nil {
		f.t.Fatalf("seed card %s: %v", c.ID, err)
	}
}

func (f *fixture) mustBoard(id string) *models.Board {
	f.t.Helper()
	b, err := f.service.getBoard(f.ctx, id)
	if err != nil {
		f.t.Fatalf("get board %s: %v", id, err)
	}
	return b
}

func (f *fixture) mustCard(id string) *models.Card {
	f.t.Helper()
	c, err := f.service.getCard(f.ctx, id)
	if err != nil {
		f.t.Fatalf("get card %s: %v", id, err)
	}
	return c
}

// seedHierarchy builds the common three-level fixture:
//
//	root (owner u1, member u1)
//	 └─ card rc1 ── sub1 (owner u1)
//	      └─ card sc1 ── sub2 (owner u1)
//	root template tmpl1
func (f *fixture) seedHierarchy() {
	f.seedBoard(&models.Board{ID: "root", Name: "Root", OwnerID: "u1", MemberIDs: []string{"u1"}})
	f.seedCard(&models.Card{ID: "rc1", BoardID: "root", ColumnID: "root-col", Title: "Epic", SubBoardID: "sub1"})
	f.seedBoard(&models.Board{
		ID: "sub1", Name: "Sub 1", OwnerID: "u1", MemberIDs: []string{"u1"},
		ParentCardID: "rc1", ParentBoardID: "root",
	})
	f.seedCard(&models.Card{ID: "sc1", BoardID: "sub1", ColumnID: "sub1-col", Title: "Story", SubBoardID: "sub2"})
	f.seedBoard(&models.Board{
		ID: "sub2", Name: "Sub 2", OwnerID: "u1", MemberIDs: []string{"u1"},
		ParentCardID: "sc1", ParentBoardID: "sub1",
	})
	f.seedBoard(&models.Board{
		ID: "tmpl1", Name: "Template", OwnerID: "u1", MemberIDs: []string{"u1"},
		IsTemplate: true, TemplateForBoardID: "root",
	})
}
