// Package models defines the data exchanged between the blog client and the
// REST backend.
package models

import "time"

// User is the account as the backend reports it. Email, CreatedAt,
// IsVerified and TwoFAEnabled are only present on the owner's own profile.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email,omitempty"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
	IsVerified   *bool      `json:"is_verified,omitempty"`
	TwoFAEnabled *bool      `json:"twofa_enabled,omitempty"`
}

// Verified reports false when the flag is absent.
func (u *User) Verified() bool {
	return u != nil && u.IsVerified != nil && *u.IsVerified
}

// TwoFactor reports whether login requires an emailed code. False when the
// flag is absent.
func (u *User) TwoFactor() bool {
	return u != nil && u.TwoFAEnabled != nil && *u.TwoFAEnabled
}

// UsersPage is one page of the public user directory.
type UsersPage struct {
	Users       []User `json:"users"`
	Total       int    `json:"total"`
	Pages       int    `json:"pages"`
	CurrentPage int    `json:"current_page"`
}

// ProfileUpdate is the body of PUT /profile.
type ProfileUpdate struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}
