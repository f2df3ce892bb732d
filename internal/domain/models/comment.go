package models

import "time"

// Comment is a user remark on a card. Comments are deleted before their
// card in the permanent-delete cascade.
type Comment struct {
	ID       string `json:"id"`
	CardID   string `json:"cardId"`
	AuthorID string `json:"authorId"`
	Body     string `json:"body"`

	CreatedAt time.Time `json:"createdAt"`
}
