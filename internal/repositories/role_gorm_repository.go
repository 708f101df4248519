package repositories

import (
	"errors"
	"fmt"

	"usermanagement/internal/models"

	"gorm.io/gorm"
)

// GORMRoleRepository is a GORM implementation of RoleRepository.
type GORMRoleRepository struct {
	db *gorm.DB
}

// NewGORMRoleRepository creates a new instance of GORMRoleRepository.
func NewGORMRoleRepository(db *gorm.DB) *GORMRoleRepository {
	return &GORMRoleRepository{
		db: db,
	}
}

// GetByName retrieves the role stored for the given kind.
func (r *GORMRoleRepository) GetByName(name models.RoleKind) (*models.Role, error) {
	var role models.Role
	if err := r.db.First(&role, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("role %s: %w", name, ErrRecordNotFound)
		}
		return nil, fmt.Errorf("failed to get role %s: %w", name, err)
	}
	return &role, nil
}

// Create inserts a role. The insert runs in its own (nested) transaction so
// that a unique violation only rolls back to the savepoint and leaves any
// enclosing transaction usable.
func (r *GORMRoleRepository) Create(role *models.Role) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(role).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("role %s: %w", role.Name, ErrDuplicateKey)
		}
		return fmt.Errorf("failed to create role %s: %w", role.Name, err)
	}
	return nil
}
