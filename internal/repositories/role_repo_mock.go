package repositories

import (
	"fmt"
	"maps"
	"sync"

	"usermanagement/internal/models"
)

// MockRoleRepository is an in-memory implementation of RoleRepository with a
// unique constraint on the role name.
type MockRoleRepository struct {
	roles  map[models.RoleKind]models.Role
	nextID uint64
	mu     sync.RWMutex
}

// NewMockRoleRepository creates a new instance of MockRoleRepository.
func NewMockRoleRepository() *MockRoleRepository {
	return &MockRoleRepository{
		roles: make(map[models.RoleKind]models.Role),
	}
}

// GetByName returns the role stored for name.
func (r *MockRoleRepository) GetByName(name models.RoleKind) (*models.Role, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	role, ok := r.roles[name]
	if !ok {
		return nil, fmt.Errorf("role %s: %w", name, ErrRecordNotFound)
	}
	return &role, nil
}

// Create stores a new role, failing with ErrDuplicateKey if the name exists.
func (r *MockRoleRepository) Create(role *models.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.roles[role.Name]; ok {
		return fmt.Errorf("role %s: %w", role.Name, ErrDuplicateKey)
	}
	r.nextID++
	role.ID = r.nextID
	r.roles[role.Name] = *role
	return nil
}

// Count returns the number of stored roles.
func (r *MockRoleRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.roles)
}

func (r *MockRoleRepository) snapshot() (map[models.RoleKind]models.Role, uint64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.roles), r.nextID
}

func (r *MockRoleRepository) restore(roles map[models.RoleKind]models.Role, nextID uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.roles = roles
	r.nextID = max(r.nextID, nextID)
}
