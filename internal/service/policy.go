package service

import (
	"fmt"

	"student-registry/internal/apperr"
	"student-registry/internal/models"
)

// Operation is an action gated by the role policy
type Operation string

const (
	OpReadStudent  Operation = "read-student"
	OpWriteStudent Operation = "write-student"
	OpManageUsers  Operation = "manage-users"
	OpChatPost     Operation = "chat-post"
)

// minimum role per operation
var requiredRole = map[Operation]models.Role{
	OpReadStudent:  models.RoleGuest,
	OpChatPost:     models.RoleGuest,
	OpWriteStudent: models.RoleVIP,
	OpManageUsers:  models.RoleOwner,
}

// Permits reports whether role may perform op
func Permits(role models.Role, op Operation) bool {
	min, ok := requiredRole[op]
	if !ok || !role.Valid() {
		return false
	}
	return role.AtLeast(min)
}

// RequireActive checks that actor is an authenticated, non-suspended user
func RequireActive(actor *models.User) error {
	if actor == nil {
		return fmt.Errorf("%w: authentication required", apperr.ErrUnauthenticated)
	}
	if actor.Suspended {
		return fmt.Errorf("%w: account suspended", apperr.ErrForbidden)
	}
	return nil
}

// Authorize checks that actor is an active user allowed to perform op
func Authorize(actor *models.User, op Operation) error {
	if err := RequireActive(actor); err != nil {
		return err
	}
	if !Permits(actor.Role, op) {
		return fmt.Errorf("%w: role %s may not %s", apperr.ErrForbidden, actor.Role, op)
	}
	return nil
}

// CheckTarget applies the administration rules on the target account:
// the Owner account is immutable and nobody administers themselves.
func CheckTarget(actor, target *models.User) error {
	if target.Role == models.RoleOwner {
		return fmt.Errorf("%w: the owner account cannot be modified", apperr.ErrForbidden)
	}
	if actor != nil && actor.Username == target.Username {
		return fmt.Errorf("%w: cannot modify your own account", apperr.ErrForbidden)
	}
	return nil
}

// AssignableRole parses a role name that an Owner may grant.
// Only Guest and VIP are assignable.
func AssignableRole(name string) (models.Role, error) {
	role, ok := models.ParseRole(name)
	if !ok {
		return "", fmt.Errorf("%w: unknown role %q", apperr.ErrInvalid, name)
	}
	if role == models.RoleOwner {
		return "", fmt.Errorf("%w: the owner role cannot be assigned", apperr.ErrForbidden)
	}
	return role, nil
}
