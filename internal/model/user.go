package model

import "time"

type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

type User struct {
	ID           int64
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

// Actor is the identity performing an operation, as established by the
// auth middleware or the worker context.
type Actor struct {
	UserID int64
	Role   Role
}

// Privileged reports whether the actor may bypass ownership checks.
func (a Actor) Privileged() bool {
	return a.Role == RoleAdmin
}
