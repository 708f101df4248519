package repositories

import (
	"errors"
	"fmt"

	"usermanagement/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMUserRepository is a GORM implementation of UserRepository.
type GORMUserRepository struct {
	db *gorm.DB
}

// NewGORMUserRepository creates a new instance of GORMUserRepository.
func NewGORMUserRepository(db *gorm.DB) *GORMUserRepository {
	return &GORMUserRepository{
		db: db,
	}
}

// Create inserts the user together with its role associations.
func (r *GORMUserRepository) Create(user *models.User) error {
	if err := r.db.Omit("Roles.*").Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("user with username %s: %w", user.Username, ErrDuplicateKey)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// Update writes every column of the user and replaces its role set.
func (r *GORMUserRepository) Update(user *models.User) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(user).Error; err != nil {
			return err
		}
		if len(user.Roles) == 0 {
			return tx.Model(user).Association("Roles").Clear()
		}
		return tx.Model(user).Association("Roles").Replace(user.Roles)
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("user with username %s: %w", user.Username, ErrDuplicateKey)
	default:
		return fmt.Errorf("failed to update user %d: %w", user.ID, err)
	}
}

// GetByID retrieves a user by their ID from the database.
func (r *GORMUserRepository) GetByID(id uint64) (*models.User, error) {
	return r.first(r.db, "id", id)
}

// GetByIDForUpdate retrieves a user by ID holding a row lock. SQLite has no
// row locks; there the enclosing transaction already serializes writers.
func (r *GORMUserRepository) GetByIDForUpdate(id uint64) (*models.User, error) {
	return r.first(r.db.Clauses(clause.Locking{Strength: "UPDATE"}), "id", id)
}

// GetByUsername retrieves a user by their username from the database.
func (r *GORMUserRepository) GetByUsername(username string) (*models.User, error) {
	return r.first(r.db, "username", username)
}

// GetAll retrieves all users ordered by ID.
func (r *GORMUserRepository) GetAll() ([]models.User, error) {
	var users []models.User
	if err := r.db.Preload("Roles").Order("id").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to get all users: %w", err)
	}
	return users, nil
}

// Delete removes the user and its role associations. Roles themselves stay.
func (r *GORMUserRepository) Delete(id uint64) error {
	res := r.db.Select("Roles").Delete(&models.User{ID: id})
	if res.Error != nil {
		return fmt.Errorf("failed to delete user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user with ID %d not found for deletion: %w", id, ErrRecordNotFound)
	}
	return nil
}

func (r *GORMUserRepository) first(db *gorm.DB, column string, value interface{}) (*models.User, error) {
	var user models.User
	if err := db.Preload("Roles").First(&user, column+" = ?", value).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user with %s %v: %w", column, value, ErrRecordNotFound)
		}
		return nil, fmt.Errorf("failed to get user by %s %v: %w", column, value, err)
	}
	return &user, nil
}
