package repositories

import (
	"errors"

	"usermanagement/internal/models"
)

var (
	// ErrRecordNotFound is returned when a lookup matches no row.
	ErrRecordNotFound = errors.New("record not found")
	// ErrDuplicateKey is returned when a write violates a unique constraint.
	ErrDuplicateKey = errors.New("duplicate key")
)

// UserRepository defines the interface for user data access.
type UserRepository interface {
	Create(user *models.User) error
	Update(user *models.User) error
	GetByID(id uint64) (*models.User, error)
	// GetByIDForUpdate reads the user and locks its row until the
	// surrounding transaction ends.
	GetByIDForUpdate(id uint64) (*models.User, error)
	GetByUsername(username string) (*models.User, error)
	GetAll() ([]models.User, error)
	Delete(id uint64) error
}

// RoleRepository defines the interface for role data access.
type RoleRepository interface {
	GetByName(name models.RoleKind) (*models.Role, error)
	Create(role *models.Role) error
}

// Store groups the repositories that take part in one unit of work.
type Store interface {
	Users() UserRepository
	Roles() RoleRepository
	// Transaction runs fn against a Store bound to a single transaction.
	// The transaction commits when fn returns nil and rolls back otherwise.
	Transaction(fn func(tx Store) error) error
}
