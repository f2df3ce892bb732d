package board

import (
	"errors"
	"fmt"
	"testing"

	"boardsync/internal/domain"
	"boardsync/internal/domain/models"
)

func seedBoardWithColumns(f *fixture) {
	f.seedBoard(&models.Board{ID: "b1", Name: "Board", OwnerID: "u1", MemberIDs: []string{"u1"}})
	f.seedColumn(&models.Column{ID: "col-a", BoardID: "b1", Name: "A", Order: 0})
	f.seedColumn(&models.Column{ID: "col-b", BoardID: "b1", Name: "B", Order: 1})
}

func TestCreateCardAppendsToColumn(t *testing.T) {
	f := newFixture(t)
	seedBoardWithColumns(f)
	f.seedCard(&models.Card{ID: "existing", BoardID: "b1", ColumnID: "col-a", Title: "first", Order: 4})

	card, err := f.service.CreateCard(f.ctx, &CreateCardRequest{
		BoardID: "b1", ColumnID: "col-a", Title: "second", UserID: "u1",
	})
	if err != nil {
		t.Fatalf("CreateCard: %v", err)
	}
	if card.Order != 5 {
		t.Errorf("order = %d, want 5 (after highest live order)", card.Order)
	}
}

func TestCreateCardValidation(t *testing.T) {
	f := newFixture(t)
	seedBoardWithColumns(f)

	tests := []struct {
		name string
		req  CreateCardRequest
	}{
		{"missing title", CreateCardRequest{BoardID: "b1", ColumnID: "col-a", UserID: "u1"}},
		{"missing column", CreateCardRequest{BoardID: "b1", Title: "x", UserID: "u1"}},
		{"missing board", CreateCardRequest{ColumnID: "col-a", Title: "x", UserID: "u1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.service.CreateCard(f.ctx, &tt.req); !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("err = %v, want validation", err)
			}
		})
	}
}

func TestCreateCardRejectsForeignColumn(t *testing.T) {
	f := newFixture(t)
	seedBoardWithColumns(f)
	f.seedBoard(&models.Board{ID: "b2", Name: "Other", OwnerID: "u1", MemberIDs: []string{"u1"}})

	_, err := f.service.CreateCard(f.ctx, &CreateCardRequest{
		BoardID: "b2", ColumnID: "col-a", Title: "x", UserID: "u1",
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
}

func TestMoveCardRejectsCrossBoardColumn(t *testing.T) {
	f := newFixture(t)
	seedBoardWithColumns(f)
	f.seedBoard(&models.Board{ID: "b2", Name: "Other", OwnerID: "u1", MemberIDs: []string{"u1"}})
	f.seedColumn(&models.Column{ID: "b2-col", BoardID: "b2", Name: "Elsewhere", Order: 0})
	f.seedCard(&models.Card{ID: "c1", BoardID: "b1", ColumnID: "col-a", Title: "x"})

	err := f.service.MoveCard(f.ctx, "c1", "b2-col", 0, "u1")
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
	if f.mustCard("c1").ColumnID != "col-a" {
		t.Error("rejected move still changed the card")
	}
}

func TestArchiveCardIsIdempotent(t *testing.T) {
	f := newFixture(t)
	seedBoardWithColumns(f)
	f.seedCard(&models.Card{ID: "c1", BoardID: "b1", ColumnID: "col-a", Title: "x"})

	for range 2 {
		if err := f.service.ArchiveCard(f.ctx, "c1", "u1"); err != nil {
			t.Fatalf("ArchiveCard: %v", err)
		}
	}
	if !f.mustCard("c1").Archived {
		t.Fatal("card not archived")
	}

	if err := f.service.RestoreCard(f.ctx, "c1", "u1"); err != nil {
		t.Fatalf("RestoreCard: %v", err)
	}
	if f.mustCard("c1").Archived {
		t.Fatal("card still archived after restore")
	}
}

func TestReorderCardsAssignsDenseOrders(t *testing.T) {
	f := newFixture(t)
	seedBoardWithColumns(f)
	f.seedCard(&models.Card{ID: "c1", BoardID: "b1", ColumnID: "col-a", Title: "one", Order: 0})
	f.seedCard(&models.Card{ID: "c2", BoardID: "b1", ColumnID: "col-a", Title: "two", Order: 3})
	f.seedCard(&models.Card{ID: "c3", BoardID: "b1", ColumnID: "col-a", Title: "three", Order: 7})

	if err := f.service.ReorderCards(f.ctx, "col-a", []string{"c3", "c1", "c2"}, "u1"); err != nil {
		t.Fatalf("ReorderCards: %v", err)
	}

	want := map[string]int{"c3": 0, "c1": 1, "c2": 2}
	for id, order := range want {
		if got := f.mustCard(id).Order; got != order {
			t.Errorf("card %s order = %d, want %d", id, got, order)
		}
	}
}

func TestReorderCardsRejectsForeignCard(t *testing.T) {
	f := newFixture(t)
	seedBoardWithColumns(f)
	f.seedCard(&models.Card{ID: "c1", BoardID: "b1", ColumnID: "col-a", Title: "one", Order: 0})
	f.seedCard(&models.Card{ID: "c2", BoardID: "b1", ColumnID: "col-b", Title: "elsewhere", Order: 0})

	if err := f.service.ReorderCards(f.ctx, "col-a", []string{"c1", "c2"}, "u1"); err == nil {
		t.Fatal("reorder accepted a card from another column")
	}
	if got := f.mustCard("c1").Order; got != 0 {
		t.Errorf("failed reorder mutated card order to %d", got)
	}
}

func TestImportCardsSplitsIntoBatches(t *testing.T) {
	f := newFixture(t)
	seedBoardWithColumns(f)
	f.seedCard(&models.Card{ID: "existing", BoardID: "b1", ColumnID: "col-a", Title: "first", Order: 0})

	// 1000 cards spans three store batches.
	cards := make([]ImportCard, 1000)
	for i := range cards {
		cards[i] = ImportCard{Title: fmt.Sprintf("imported %d", i)}
	}

	imported, err := f.service.ImportCards(f.ctx, "b1", "col-a", cards, "u1")
	if err != nil {
		t.Fatalf("ImportCards: %v", err)
	}
	if imported != 1000 {
		t.Fatalf("imported = %d, want 1000", imported)
	}

	live, err := f.service.liveCards(f.ctx, "b1")
	if err != nil {
		t.Fatalf("liveCards: %v", err)
	}
	if len(live) != 1001 {
		t.Fatalf("live cards = %d, want 1001", len(live))
	}

	// Orders continue densely after the existing card.
	seen := make(map[int]bool, len(live))
	for _, c := range live {
		if seen[c.Order] {
			t.Fatalf("duplicate order %d", c.Order)
		}
		seen[c.Order] = true
	}
	for i := range 1001 {
		if !seen[i] {
			t.Fatalf("order %d missing from dense sequence", i)
		}
	}
}

func TestImportCardsRejectsForeignColumn(t *testing.T) {
	f := newFixture(t)
	seedBoardWithColumns(f)
	f.seedBoard(&models.Board{ID: "b2", Name: "Other", OwnerID: "u1", MemberIDs: []string{"u1"}})

	_, err := f.service.ImportCards(f.ctx, "b2", "col-a", []ImportCard{{Title: "x"}}, "u1")
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
}
