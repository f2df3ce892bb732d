package models

import "time"

// Card is a unit of work inside a column. Cards are the only entities
// that can own a sub-board link: at most one live sub-board per card,
// recorded by SubBoardID with the reverse edge on the child board's
// parentCardId.
//
// SubBoardApprovedCount and SubBoardTotalCount are derived aggregates
// mirroring the linked sub-board's non-archived cards. They are unset
// unless SubBoardID is set, and always satisfy 0 <= approved <= total.
type Card struct {
	ID          string `json:"id"`
	BoardID     string `json:"boardId"`
	ColumnID    string `json:"columnId"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Order       int    `json:"order"`
	Archived    bool   `json:"archived"`

	SubBoardID            string `json:"subBoardId,omitempty"`
	SubBoardApprovedCount *int   `json:"subBoardApprovedCount,omitempty"`
	SubBoardTotalCount    *int   `json:"subBoardTotalCount,omitempty"`

	CommentCount int `json:"commentCount"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HasSubBoard reports whether the card currently links a sub-board.
func (c *Card) HasSubBoard() bool {
	return c.SubBoardID != ""
}
