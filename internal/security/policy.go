package security

import (
	"errors"
	"slices"

	"blogapp/internal/models"
)

// ErrForbidden is returned when a principal may not perform an action
var ErrForbidden = errors.New("you do not have permission to perform this action")

// Action names an operation guarded by the policy
type Action string

const (
	ActionCreatePost     Action = "post:create"
	ActionUpdatePost     Action = "post:update"
	ActionDeletePost     Action = "post:delete"
	ActionUpdateSelf     Action = "user:update-self"
	ActionDeleteSelf     Action = "user:delete-self"
	ActionChangePassword Action = "user:change-password"
)

// Rule describes who may perform an action.
// AdminBypass only matters when OwnershipRequired is set.
type Rule struct {
	AllowedRoles      []models.Role
	OwnershipRequired bool
	AdminBypass       bool
}

// Policy maps each action to its rule. Unknown actions are denied.
type Policy map[Action]Rule

var anyRole = []models.Role{models.RoleUser, models.RoleAdmin}

// DefaultPolicy is the rule set the API runs with. Admins may remove any post
// for moderation but may only edit posts they wrote.
func DefaultPolicy() Policy {
	return Policy{
		ActionCreatePost:     {AllowedRoles: anyRole},
		ActionUpdatePost:     {AllowedRoles: anyRole, OwnershipRequired: true},
		ActionDeletePost:     {AllowedRoles: anyRole, OwnershipRequired: true, AdminBypass: true},
		ActionUpdateSelf:     {AllowedRoles: anyRole},
		ActionDeleteSelf:     {AllowedRoles: anyRole},
		ActionChangePassword: {AllowedRoles: anyRole},
	}
}

// Authorize returns ErrForbidden unless principal may perform action on a
// resource owned by ownerID. ownerID is ignored for actions without ownership.
func (p Policy) Authorize(principal *models.User, action Action, ownerID int64) error {
	if !p.Allow(principal, action, ownerID) {
		return ErrForbidden
	}
	return nil
}

// Allow is the boolean form of Authorize
func (p Policy) Allow(principal *models.User, action Action, ownerID int64) bool {
	if principal == nil {
		return false
	}
	rule, ok := p[action]
	if !ok {
		return false
	}
	if !slices.Contains(rule.AllowedRoles, principal.Role) {
		return false
	}
	if !rule.OwnershipRequired {
		return true
	}
	if principal.ID == ownerID {
		return true
	}
	return rule.AdminBypass && principal.IsAdmin()
}

// HasRole reports whether principal holds one of roles
func HasRole(principal *models.User, roles ...models.Role) bool {
	return principal != nil && slices.Contains(roles, principal.Role)
}
