// Package models defines server-side data models persisted in the database.
package models

import "time"

type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash []byte
	IsVerified   bool
	TwoFAEnabled bool
	CreatedAt    time.Time
}

// UserFilter selects one page of the user directory. Search matches a
// username substring, case-insensitively.
type UserFilter struct {
	Search  string
	Page    int
	PerPage int
}

// UsersPage is one page of the user directory.
type UsersPage struct {
	Users []User
	Total int
	Page  int
	Pages int
}
