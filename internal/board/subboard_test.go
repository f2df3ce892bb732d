package board

import (
	"errors"
	"testing"

	"boardsync/internal/domain"
	"boardsync/internal/domain/models"
)

func TestCreateSubBoardInheritsMembers(t *testing.T) {
	f := newFixture(t)
	f.seedBoard(&models.Board{ID: "root", Name: "Root", OwnerID: "u1", MemberIDs: []string{"u1", "u2", "u3"}})
	f.seedCard(&models.Card{ID: "rc1", BoardID: "root", ColumnID: "col", Title: "Epic"})

	sub, err := f.service.CreateSubBoard(f.ctx, "rc1", "root", "Breakdown", "u2", "")
	if err != nil {
		t.Fatalf("CreateSubBoard: %v", err)
	}

	if sub.OwnerID != "u2" {
		t.Errorf("owner = %s, want requester u2", sub.OwnerID)
	}
	if len(sub.MemberIDs) != 3 {
		t.Errorf("members = %v, want full parent member set", sub.MemberIDs)
	}
	if sub.ParentCardID != "rc1" || sub.ParentBoardID != "root" {
		t.Errorf("parent link = %s/%s, want rc1/root", sub.ParentCardID, sub.ParentBoardID)
	}

	card := f.mustCard("rc1")
	if card.SubBoardID != sub.ID {
		t.Errorf("card.subBoardId = %s, want %s", card.SubBoardID, sub.ID)
	}
	approved, total := counters(t, card)
	if approved != 0 || total != 0 {
		t.Errorf("fresh counters = %d/%d, want 0/0", approved, total)
	}
}

func TestCreateSubBoardRequiresMembership(t *testing.T) {
	f := newFixture(t)
	f.seedBoard(&models.Board{ID: "root", Name: "Root", OwnerID: "u1", MemberIDs: []string{"u1"}})
	f.seedCard(&models.Card{ID: "rc1", BoardID: "root", ColumnID: "col", Title: "Epic"})

	_, err := f.service.CreateSubBoard(f.ctx, "rc1", "root", "Breakdown", "outsider", "")
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("err = %v, want forbidden", err)
	}
}

func TestCreateSubBoardRejectsAlreadyLinkedCard(t *testing.T) {
	f := newFixture(t)
	f.seedBoard(&models.Board{ID: "root", Name: "Root", OwnerID: "u1", MemberIDs: []string{"u1"}})
	f.seedCard(&models.Card{ID: "rc1", BoardID: "root", ColumnID: "col", Title: "Epic"})

	first, err := f.service.CreateSubBoard(f.ctx, "rc1", "root", "Breakdown", "u1", "")
	if err != nil {
		t.Fatalf("CreateSubBoard: %v", err)
	}

	if _, err := f.service.CreateSubBoard(f.ctx, "rc1", "root", "Second", "u1", ""); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("second create err = %v, want conflict", err)
	}

	tmpl := &models.TemplateSpec{
		Name:    "T",
		Columns: []models.TemplateColumn{{Name: "Todo"}},
	}
	if _, err := f.service.CreateSubBoardFromTemplate(f.ctx, "rc1", "root", tmpl, "u1"); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("template create err = %v, want conflict", err)
	}

	f.seedBoard(&models.Board{
		ID: "tmpl1", Name: "Template", OwnerID: "u1", MemberIDs: []string{"u1"},
		IsTemplate: true, TemplateForBoardID: "root",
	})
	if _, err := f.service.CloneTemplateBoardAsSubBoard(f.ctx, "tmpl1", "rc1", "root", "u1"); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("clone err = %v, want conflict", err)
	}

	// The original link survives every rejected attempt.
	if card := f.mustCard("rc1"); card.SubBoardID != first.ID {
		t.Errorf("card.subBoardId = %s, want %s", card.SubBoardID, first.ID)
	}
}

func TestCreateSubBoardMissingParentCard(t *testing.T) {
	f := newFixture(t)
	f.seedBoard(&models.Board{ID: "root", Name: "Root", OwnerID: "u1", MemberIDs: []string{"u1"}})

	_, err := f.service.CreateSubBoard(f.ctx, "missing", "root", "Breakdown", "u1", "")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestCreateSubBoardFromTemplateSeedsCards(t *testing.T) {
	f := newFixture(t)
	f.seedBoard(&models.Board{ID: "root", Name: "Root", OwnerID: "u1", MemberIDs: []string{"u1"}})
	f.seedCard(&models.Card{ID: "rc1", BoardID: "root", ColumnID: "col", Title: "Epic"})

	tmpl := &models.TemplateSpec{
		Name:               "Release Checklist",
		ApprovalColumnName: "Done",
		Columns: []models.TemplateColumn{
			{Name: "Todo", Cards: []models.TemplateCard{{Title: "write notes"}, {Title: "tag build"}}},
			{Name: "Done", Cards: []models.TemplateCard{{Title: "kickoff"}}},
		},
	}

	sub, err := f.service.CreateSubBoardFromTemplate(f.ctx, "rc1", "root", tmpl, "u1")
	if err != nil {
		t.Fatalf("CreateSubBoardFromTemplate: %v", err)
	}
	if sub.ApprovalColumnName != "Done" {
		t.Errorf("approvalColumnName = %q, want Done", sub.ApprovalColumnName)
	}

	columns, err := f.service.liveColumns(f.ctx, sub.ID)
	if err != nil {
		t.Fatalf("liveColumns: %v", err)
	}
	if len(columns) != 2 || columns[0].Name != "Todo" || columns[1].Name != "Done" {
		t.Fatalf("columns = %v, want [Todo Done] in order", columns)
	}

	cards, err := f.service.liveCards(f.ctx, sub.ID)
	if err != nil {
		t.Fatalf("liveCards: %v", err)
	}
	if len(cards) != 3 {
		t.Fatalf("seeded %d cards, want 3", len(cards))
	}

	// Seed cards count toward total but never toward approved, even the
	// one seeded into the approval column.
	approved, total := counters(t, f.mustCard("rc1"))
	if approved != 0 || total != 3 {
		t.Fatalf("counters = %d/%d, want 0/3", approved, total)
	}
}

func TestCreateSubBoardFromTemplateNilSpec(t *testing.T) {
	f := newFixture(t)
	f.seedBoard(&models.Board{ID: "root", Name: "Root", OwnerID: "u1", MemberIDs: []string{"u1"}})
	f.seedCard(&models.Card{ID: "rc1", BoardID: "root", ColumnID: "col", Title: "Epic"})

	_, err := f.service.CreateSubBoardFromTemplate(f.ctx, "rc1", "root", nil, "u1")
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
}

func TestCloneTemplateBoardAsSubBoard(t *testing.T) {
	f := newFixture(t)
	f.seedBoard(&models.Board{ID: "root", Name: "Root", OwnerID: "u1", MemberIDs: []string{"u1", "u2"}})
	f.seedCard(&models.Card{ID: "rc1", BoardID: "root", ColumnID: "col", Title: "Epic"})
	f.seedBoard(&models.Board{
		ID: "tmpl1", Name: "Sprint Template", OwnerID: "u1", MemberIDs: []string{"u1"},
		IsTemplate: true, TemplateForBoardID: "root", ApprovalColumnName: "Done",
	})
	f.seedColumn(&models.Column{ID: "t-todo", BoardID: "tmpl1", Name: "Todo", Order: 0})
	f.seedColumn(&models.Column{ID: "t-done", BoardID: "tmpl1", Name: "Done", Order: 1})
	f.seedCard(&models.Card{ID: "t-c1", BoardID: "tmpl1", ColumnID: "t-todo", Title: "plan", Order: 0})
	f.seedCard(&models.Card{ID: "t-c2", BoardID: "tmpl1", ColumnID: "t-todo", Title: "build", Order: 1})
	f.seedCard(&models.Card{ID: "t-c3", BoardID: "tmpl1", ColumnID: "t-done", Title: "scope", Order: 0})

	sub, err := f.service.CloneTemplateBoardAsSubBoard(f.ctx, "tmpl1", "rc1", "root", "u2")
	if err != nil {
		t.Fatalf("CloneTemplateBoardAsSubBoard: %v", err)
	}
	if sub.IsTemplate {
		t.Error("clone kept the template flag")
	}
	if sub.ApprovalColumnName != "Done" {
		t.Errorf("approvalColumnName = %q, want Done", sub.ApprovalColumnName)
	}
	if len(sub.MemberIDs) != 2 {
		t.Errorf("members = %v, want parent board member set", sub.MemberIDs)
	}

	columns, err := f.service.liveColumns(f.ctx, sub.ID)
	if err != nil {
		t.Fatalf("liveColumns: %v", err)
	}
	if len(columns) != 2 {
		t.Fatalf("cloned %d columns, want 2", len(columns))
	}
	for _, col := range columns {
		if col.ID == "t-todo" || col.ID == "t-done" {
			t.Errorf("clone reused template column id %s", col.ID)
		}
	}

	cards, err := f.service.liveCards(f.ctx, sub.ID)
	if err != nil {
		t.Fatalf("liveCards: %v", err)
	}
	if len(cards) != 3 {
		t.Fatalf("cloned %d cards, want 3", len(cards))
	}
	byName := map[string]string{columns[0].Name: columns[0].ID, columns[1].Name: columns[1].ID}
	for _, card := range cards {
		if card.ColumnID != byName["Todo"] && card.ColumnID != byName["Done"] {
			t.Errorf("card %s points at unmapped column %s", card.Title, card.ColumnID)
		}
	}

	// Template board itself is untouched.
	if tmplCards, _ := f.service.liveCards(f.ctx, "tmpl1"); len(tmplCards) != 3 {
		t.Errorf("template board mutated, has %d cards", len(tmplCards))
	}

	approved, total := counters(t, f.mustCard("rc1"))
	if approved != 0 || total != 3 {
		t.Fatalf("counters = %d/%d, want 0/3", approved, total)
	}
}

func TestRemoveSubBoardUnlinksAndArchives(t *testing.T) {
	f := newFixture(t)
	f.seedBoard(&models.Board{ID: "root", Name: "Root", OwnerID: "u1", MemberIDs: []string{"u1"}})
	f.seedCard(&models.Card{ID: "rc1", BoardID: "root", ColumnID: "col", Title: "Epic"})

	sub, err := f.service.CreateSubBoard(f.ctx, "rc1", "root", "Breakdown", "u1", "")
	if err != nil {
		t.Fatalf("CreateSubBoard: %v", err)
	}

	if err := f.service.RemoveSubBoard(f.ctx, "root", "rc1", sub.ID); err != nil {
		t.Fatalf("RemoveSubBoard: %v", err)
	}

	card := f.mustCard("rc1")
	if card.HasSubBoard() {
		t.Errorf("card still linked to %s", card.SubBoardID)
	}
	if card.SubBoardApprovedCount != nil || card.SubBoardTotalCount != nil {
		t.Error("counters survived the unlink")
	}

	child := f.mustBoard(sub.ID)
	if !child.Archived {
		t.Error("sub-board was not archived")
	}
	if child.ParentCardID != "rc1" {
		t.Errorf("sub-board lost its parentCardId, got %q", child.ParentCardID)
	}
}
