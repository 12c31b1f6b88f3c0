package model

import "github.com/google/uuid"

type Role string

const (
	RoleClient Role = "client"
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleMember, RoleAdmin:
		return true
	default:
		return false
	}
}

// Principal is the acting user of a request. Every operation receives it explicitly.
type Principal struct {
	ID   uuid.UUID
	Role Role
}

func (p Principal) IsClient() bool {
	return p.Role == RoleClient
}

func (p Principal) IsMember() bool {
	return p.Role == RoleMember
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// Is reports whether the principal is the given user acting in the given role.
func (p Principal) Is(role Role, id uuid.UUID) bool {
	return p.Role == role && p.ID == id
}
