package models

import "time"

// Column is an ordered lane of cards within a board. Order is a dense
// integer, unique among the board's non-archived columns but not
// required to be contiguous.
type Column struct {
	ID       string `json:"id"`
	BoardID  string `json:"boardId"`
	Name     string `json:"name"`
	Order    int    `json:"order"`
	Archived bool   `json:"archived"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
