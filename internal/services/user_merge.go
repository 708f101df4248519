package services

import (
	"fmt"
	"slices"

	"usermanagement/internal/models"
	"usermanagement/internal/security"
)

// UserMerger applies a sparse UserUpdate to a stored user.
type UserMerger struct {
	hasher security.PasswordHasher
	roles  *RoleRegistry
}

// NewUserMerger creates a UserMerger. roles resolves incoming role kinds.
func NewUserMerger(hasher security.PasswordHasher, roles *RoleRegistry) *UserMerger {
	return &UserMerger{hasher: hasher, roles: roles}
}

// Merge returns existing with every present and different field of in
// applied, and whether anything changed. existing is not modified.
//
// The stored password is a hash, so a resubmitted password is compared with
// Matches rather than string equality and is only rehashed when it differs.
// A present role list replaces the current roles.
func (m *UserMerger) Merge(existing models.User, in models.UserUpdate) (models.User, bool, error) {
	merged := existing
	merged.Roles = slices.Clone(existing.Roles)
	changed := false

	changed = setIfChanged(&merged.Username, in.Username) || changed
	changed = setIfChanged(&merged.FirstName, in.FirstName) || changed
	changed = setIfChanged(&merged.LastName, in.LastName) || changed

	if in.Password != nil && !m.hasher.Matches(*in.Password, existing.Password) {
		hashed, err := m.hasher.Hash(*in.Password)
		if err != nil {
			return existing, false, err
		}
		merged.Password = hashed
		changed = true
	}

	if in.Roles != nil {
		roles, err := m.roles.ResolveSet(in.Roles)
		if err != nil {
			return existing, false, fmt.Errorf("failed to resolve roles: %w", err)
		}
		if !sameRoles(existing.Roles, roles) {
			merged.Roles = roles
			changed = true
		}
	}

	return merged, changed, nil
}

func setIfChanged(field *string, value *string) bool {
	if value == nil || *value == *field {
		return false
	}
	*field = *value
	return true
}
