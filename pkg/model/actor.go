package model

// Role is the authenticated principal's coarse-grained role.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleEmployee Role = "EMPLOYEE"
)

// Actor is the non-persistent, authenticated caller derived from the
// inbound JWT or API key. A nil *Actor means unauthenticated.
type Actor struct {
	UserID string
	Role   Role
}

func (a *Actor) IsAdmin() bool {
	return a != nil && a.Role == RoleAdmin
}
