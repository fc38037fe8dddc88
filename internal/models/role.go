package models

import "strings"

// Role is the permission tier of a user. Tiers are ordered Guest < VIP < Owner.
type Role string

const (
	RoleGuest Role = "guest"
	RoleVIP   Role = "vip"
	RoleOwner Role = "owner"
)

// Level returns the position of the role in the tier ordering.
// Unknown roles rank below Guest.
func (r Role) Level() int {
	switch r {
	case RoleGuest:
		return 1
	case RoleVIP:
		return 2
	case RoleOwner:
		return 3
	}
	return 0
}

// AtLeast reports whether r is the same tier as min or above it.
func (r Role) AtLeast(min Role) bool {
	return r.Level() >= min.Level()
}

func (r Role) Valid() bool {
	return r.Level() > 0
}

// ParseRole normalizes a role name. The second result is false for unknown names.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.Valid()
}
