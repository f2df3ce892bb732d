package board

import (
	"errors"
	"testing"

	"boardsync/internal/domain"
	"boardsync/internal/domain/models"
)

func TestAddMemberPropagatesToDescendants(t *testing.T) {
	f := newFixture(t)
	f.seedHierarchy()
	f.seedUser("u2", "u2@example.com")

	user, err := f.service.AddMember(f.ctx, "root", "u2@example.com", &models.InviterInfo{UserID: "u1"})
	if err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	if user.ID != "u2" {
		t.Fatalf("resolved user = %s, want u2", user.ID)
	}

	for _, boardID := range []string{"root", "sub1", "sub2", "tmpl1"} {
		if !f.mustBoard(boardID).HasMember("u2") {
			t.Errorf("board %s missing propagated member u2", boardID)
		}
	}
}

func TestAddMemberIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.seedHierarchy()
	f.seedUser("u2", "u2@example.com")

	for range 2 {
		if _, err := f.service.AddMember(f.ctx, "root", "u2@example.com", &models.InviterInfo{UserID: "u1"}); err != nil {
			t.Fatalf("AddMember: %v", err)
		}
	}

	for _, boardID := range []string{"root", "sub1", "sub2", "tmpl1"} {
		members := f.mustBoard(boardID).MemberIDs
		if len(members) != 2 {
			t.Errorf("board %s has %d members after repeated add, want 2: %v", boardID, len(members), members)
		}
	}
}

func TestAddMemberInviterMustBeMember(t *testing.T) {
	f := newFixture(t)
	f.seedHierarchy()
	f.seedUser("u2", "u2@example.com")

	_, err := f.service.AddMember(f.ctx, "root", "u2@example.com", &models.InviterInfo{UserID: "outsider"})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("err = %v, want forbidden", err)
	}
}

func TestAddMemberUnknownEmail(t *testing.T) {
	f := newFixture(t)
	f.seedHierarchy()

	_, err := f.service.AddMember(f.ctx, "root", "nobody@example.com", &models.InviterInfo{UserID: "u1"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

// A failing descendant update must not abort the traversal or roll back
// the parent: siblings of the failed board still receive the member.
func TestAddMemberToleratesPartialPropagationFailure(t *testing.T) {
	f := newFixture(t)
	f.seedBoard(&models.Board{ID: "root", Name: "Root", OwnerID: "u1", MemberIDs: []string{"u1"}})
	f.seedCard(&models.Card{ID: "c-a", BoardID: "root", ColumnID: "col", Title: "A", SubBoardID: "sub-a"})
	f.seedCard(&models.Card{ID: "c-b", BoardID: "root", ColumnID: "col", Title: "B", SubBoardID: "sub-b"})
	f.seedBoard(&models.Board{
		ID: "sub-a", Name: "A", OwnerID: "u1", MemberIDs: []string{"u1"},
		ParentCardID: "c-a", ParentBoardID: "root",
	})
	f.seedBoard(&models.Board{
		ID: "sub-b", Name: "B", OwnerID: "u1", MemberIDs: []string{"u1"},
		ParentCardID: "c-b", ParentBoardID: "root",
	})
	f.seedUser("u2", "u2@example.com")

	f.adapter.UpdateHook = func(collection, id string) error {
		if id == "sub-a" {
			return errors.New("simulated write failure")
		}
		return nil
	}

	if _, err := f.service.AddMember(f.ctx, "root", "u2@example.com", &models.InviterInfo{UserID: "u1"}); err != nil {
		t.Fatalf("AddMember: %v", err)
	}

	if !f.mustBoard("root").HasMember("u2") {
		t.Error("parent board lost the direct mutation")
	}
	if f.mustBoard("sub-a").HasMember("u2") {
		t.Error("failed board unexpectedly gained the member")
	}
	if !f.mustBoard("sub-b").HasMember("u2") {
		t.Error("sibling board missed the member despite independent subtree")
	}
}

func TestRemoveMemberPropagatesWithOwnerStickiness(t *testing.T) {
	f := newFixture(t)
	// u2 is a member everywhere and owns sub1; removal from root must
	// skip sub1 but still descend into sub2 below it.
	f.seedBoard(&models.Board{ID: "root", Name: "Root", OwnerID: "u1", MemberIDs: []string{"u1", "u2"}})
	f.seedCard(&models.Card{ID: "rc1", BoardID: "root", ColumnID: "col", Title: "Epic", SubBoardID: "sub1"})
	f.seedBoard(&models.Board{
		ID: "sub1", Name: "Sub 1", OwnerID: "u2", MemberIDs: []string{"u1", "u2"},
		ParentCardID: "rc1", ParentBoardID: "root",
	})
	f.seedCard(&models.Card{ID: "sc1", BoardID: "sub1", ColumnID: "col", Title: "Story", SubBoardID: "sub2"})
	f.seedBoard(&models.Board{
		ID: "sub2", Name: "Sub 2", OwnerID: "u1", MemberIDs: []string{"u1", "u2"},
		ParentCardID: "sc1", ParentBoardID: "sub1",
	})

	if err := f.service.RemoveMember(f.ctx, "root", "u2", "u1"); err != nil {
		t.Fatalf("RemoveMember: %v", err)
	}

	if f.mustBoard("root").HasMember("u2") {
		t.Error("root still lists removed member")
	}
	if !f.mustBoard("sub1").HasMember("u2") {
		t.Error("sub-board owner was removed from their own board")
	}
	if f.mustBoard("sub2").HasMember("u2") {
		t.Error("removal did not descend past the owner-retained board")
	}
}

func TestRemoveMemberCannotRemoveOwner(t *testing.T) {
	f := newFixture(t)
	f.seedHierarchy()

	err := f.service.RemoveMember(f.ctx, "root", "u1", "u1")
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("err = %v, want forbidden", err)
	}
	if !f.mustBoard("root").HasMember("u1") {
		t.Error("owner vanished from member set")
	}
}

func TestRemoveMemberIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.seedBoard(&models.Board{ID: "root", Name: "Root", OwnerID: "u1", MemberIDs: []string{"u1", "u2"}})

	for range 2 {
		if err := f.service.RemoveMember(f.ctx, "root", "u2", "u1"); err != nil {
			t.Fatalf("RemoveMember: %v", err)
		}
	}
	members := f.mustBoard("root").MemberIDs
	if len(members) != 1 || members[0] != "u1" {
		t.Fatalf("members = %v, want [u1]", members)
	}
}

func TestArchivedChildExcludedFromPropagation(t *testing.T) {
	f := newFixture(t)
	f.seedBoard(&models.Board{ID: "root", Name: "Root", OwnerID: "u1", MemberIDs: []string{"u1"}})
	f.seedCard(&models.Card{ID: "rc1", BoardID: "root", ColumnID: "col", Title: "Epic"})
	f.seedBoard(&models.Board{
		ID: "gone", Name: "Gone", OwnerID: "u1", MemberIDs: []string{"u1"}, Archived: true,
		ParentCardID: "rc1", ParentBoardID: "root",
	})
	f.seedUser("u2", "u2@example.com")

	if _, err := f.service.AddMember(f.ctx, "root", "u2@example.com", &models.InviterInfo{UserID: "u1"}); err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	if f.mustBoard("gone").HasMember("u2") {
		t.Error("archived sub-board received propagated member")
	}
}
