package models

import "time"

// RefreshToken is a server-stored, single-use token exchanged for a new
// token pair. UserName is joined in from users on lookup.
type RefreshToken struct {
	UserID   string
	UserName string
	Token    string
	Expires  time.Time
}
