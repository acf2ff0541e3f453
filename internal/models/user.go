package models

import (
	"strings"
	"time"
)

// Role is the closed set of portal roles.
type Role string

const (
	RoleStudent  Role = "student"
	RoleLecturer Role = "lecturer"
	RoleAdmin    Role = "admin"
)

// Roles lists every role in privilege order.
var Roles = []Role{RoleStudent, RoleLecturer, RoleAdmin}

// ParseRole accepts the canonical names and the legacy ones
// (mahasiswa, dosen) still sent by older front-ends.
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "student", "mahasiswa":
		return RoleStudent, true
	case "lecturer", "dosen":
		return RoleLecturer, true
	case "admin":
		return RoleAdmin, true
	default:
		return "", false
	}
}

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleLecturer, RoleAdmin:
		return true
	default:
		return false
	}
}

func (r Role) String() string { return string(r) }

type User struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Role       Role      `json:"role"`
	Identifier string    `json:"nim_nip,omitempty"` // student or staff number
	Phone      string    `json:"phone,omitempty"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// UserSummary is the embedded view of a user inside a ticket.
type UserSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	Identifier string `json:"nim_nip,omitempty"`
}

func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, Identifier: u.Identifier}
}
