package services

import (
	"errors"
	"fmt"
	"slices"

	"usermanagement/internal/metrics"
	"usermanagement/internal/models"
	"usermanagement/internal/repositories"
)

// RoleRegistry maps role kinds to their single stored role record, creating
// the record on first use.
type RoleRegistry struct {
	repo repositories.RoleRepository
}

// NewRoleRegistry creates a RoleRegistry over repo.
func NewRoleRegistry(repo repositories.RoleRepository) *RoleRegistry {
	return &RoleRegistry{repo: repo}
}

// ResolveOrCreate returns the stored role for kind. When two callers race to
// create the same role the unique index rejects the loser, which then reads
// the winner's record.
func (r *RoleRegistry) ResolveOrCreate(kind models.RoleKind) (*models.Role, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidRoleKind, kind)
	}

	role, err := r.repo.GetByName(kind)
	if err == nil {
		return role, nil
	}
	if !errors.Is(err, repositories.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up role %s: %w", kind, err)
	}

	role = &models.Role{Name: kind, Description: kind.Description()}
	if err := r.repo.Create(role); err != nil {
		if !errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, fmt.Errorf("failed to create role %s: %w", kind, err)
		}
		role, err = r.repo.GetByName(kind)
		if err != nil {
			return nil, fmt.Errorf("failed to read concurrently created role %s: %w", kind, err)
		}
		return role, nil
	}
	metrics.RolesCreatedTotal.WithLabelValues(string(kind)).Inc()
	return role, nil
}

// ResolveSet resolves every distinct kind. The result is never nil and is
// ordered by role name.
func (r *RoleRegistry) ResolveSet(kinds []models.RoleKind) ([]models.Role, error) {
	unique := slices.Clone(kinds)
	slices.Sort(unique)
	unique = slices.Compact(unique)

	roles := make([]models.Role, 0, len(unique))
	for _, kind := range unique {
		role, err := r.ResolveOrCreate(kind)
		if err != nil {
			return nil, err
		}
		roles = append(roles, *role)
	}
	return roles, nil
}

func sameRoles(a, b []models.Role) bool {
	names := func(roles []models.Role) []string {
		out := make([]string, 0, len(roles))
		for _, r := range roles {
			out = append(out, string(r.Name))
		}
		slices.Sort(out)
		return slices.Compact(out)
	}
	return slices.Equal(names(a), names(b))
}
