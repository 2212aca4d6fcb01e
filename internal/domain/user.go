package domain

import "time"

// UserStatus represents lifecycle states for an account.
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

// User is the account record behind a Principal. Requesters, support
// agents, and administrators all live in the same table and differ only
// by Role.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Status       UserStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Principal derives the request-scoped principal for this account.
func (u *User) Principal() Principal {
	return Principal{ID: u.ID, Role: u.Role}
}
