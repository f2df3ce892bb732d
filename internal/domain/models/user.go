package models

import "time"

// UserProfile is the stored profile for a registered user, looked up by
// id or email when inviting members.
type UserProfile struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// InviterInfo identifies who issued a membership invitation; carried on
// AddMember for activity attribution.
type InviterInfo struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName,omitempty"`
}
