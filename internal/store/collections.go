package store

import "fmt"

// Collections holds environment-prefixed collection names, mirroring
// the dev_/test_/prod_ table split of the backing store.
type Collections struct {
	Boards   string
	Columns  string
	Cards    string
	Comments string
	Users    string
}

// NewCollections creates collection names with the given prefix.
func NewCollections(prefix string) *Collections {
	return &Collections{
		Boards:   fmt.Sprintf("%sboards", prefix),
		Columns:  fmt.Sprintf("%scolumns", prefix),
		Cards:    fmt.Sprintf("%scards", prefix),
		Comments: fmt.Sprintf("%scomments", prefix),
		Users:    fmt.Sprintf("%susers", prefix),
	}
}
