package models

import (
	"slices"
	"time"
)

// DefaultApprovalColumnName is the column whose card count is reported
// as "approved" on the parent card when a board does not override it.
const DefaultApprovalColumnName = "Approved"

// Board is a named, member-scoped container of columns and cards.
//
// A board plays exactly one of three roles: a normal board, a sub-board
// (ParentCardID set, linked under a card of another board), or a
// template (IsTemplate set, a reusable blueprint tied to a parent
// board). Field names follow the document-store schema.
type Board struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	OwnerID   string   `json:"ownerId"`
	MemberIDs []string `json:"memberIds"`
	Archived  bool     `json:"archived"`

	// Set iff this board is a sub-board. ParentCardID is
	// identity-establishing and never changes after creation.
	ParentCardID  string `json:"parentCardId,omitempty"`
	ParentBoardID string `json:"parentBoardId,omitempty"`

	// Set iff this board is a template of another board.
	IsTemplate         bool   `json:"isTemplate,omitempty"`
	TemplateForBoardID string `json:"templateForBoardId,omitempty"`

	// ApprovalColumnName overrides DefaultApprovalColumnName.
	ApprovalColumnName string `json:"approvalColumnName,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsSubBoard reports whether the board is linked under a parent card.
func (b *Board) IsSubBoard() bool {
	return b.ParentCardID != ""
}

// HasMember reports whether userID is in the board's member set.
func (b *Board) HasMember(userID string) bool {
	return slices.Contains(b.MemberIDs, userID)
}

// ApprovalColumn returns the effective approval column name.
func (b *Board) ApprovalColumn() string {
	if b.ApprovalColumnName != "" {
		return b.ApprovalColumnName
	}
	return DefaultApprovalColumnName
}
