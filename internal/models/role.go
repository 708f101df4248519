package models

import (
	"errors"
	"fmt"
)

// ErrInvalidRoleKind is returned for role names outside the known set.
var ErrInvalidRoleKind = errors.New("invalid role kind")

// RoleKind names one of the fixed roles a user can hold.
type RoleKind string

const (
	RoleAdmin RoleKind = "ROLE_ADMIN"
	RoleUser  RoleKind = "ROLE_USER"
)

var roleDescriptions = map[RoleKind]string{
	RoleAdmin: "Administrator: Full access",
	RoleUser:  "User: Read, Edit himself",
}

// ParseRoleKind converts a raw role name into a RoleKind.
func ParseRoleKind(s string) (RoleKind, error) {
	k := RoleKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRoleKind, s)
	}
	return k, nil
}

// ParseRoleKinds converts every name, failing on the first unknown one.
// A nil input stays nil so callers can tell "absent" from "empty".
func ParseRoleKinds(names []string) ([]RoleKind, error) {
	if names == nil {
		return nil, nil
	}
	kinds := make([]RoleKind, 0, len(names))
	for _, n := range names {
		k, err := ParseRoleKind(n)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

func (k RoleKind) Valid() bool {
	_, ok := roleDescriptions[k]
	return ok
}

func (k RoleKind) Description() string {
	return roleDescriptions[k]
}

// Role is the stored record for a RoleKind. At most one exists per name.
type Role struct {
	ID          uint64   `json:"-" gorm:"primaryKey;autoIncrement"`
	Name        RoleKind `json:"name" gorm:"type:varchar(32);not null;uniqueIndex"`
	Description string   `json:"description" gorm:"type:varchar(255)"`
}
