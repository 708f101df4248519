package repositories

import (
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"usermanagement/internal/models"
)

// MockUserRepository is an in-memory implementation of UserRepository.
// It enforces the same unique username constraint as the database schema.
type MockUserRepository struct {
	users  map[uint64]models.User
	nextID uint64
	mu     sync.RWMutex
}

// NewMockUserRepository creates a new instance of MockUserRepository.
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		users: make(map[uint64]models.User),
	}
}

// Create assigns the next ID and stores a copy of the user.
func (r *MockUserRepository) Create(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.usernameTaken(user.Username, 0) {
		return fmt.Errorf("user with username %s: %w", user.Username, ErrDuplicateKey)
	}
	r.nextID++
	now := time.Now()
	user.ID = r.nextID
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = cloneUser(*user)
	return nil
}

// Update replaces the stored copy of an existing user.
func (r *MockUserRepository) Update(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.ID]; !ok {
		return fmt.Errorf("user with ID %d not found for update: %w", user.ID, ErrRecordNotFound)
	}
	if r.usernameTaken(user.Username, user.ID) {
		return fmt.Errorf("user with username %s: %w", user.Username, ErrDuplicateKey)
	}
	user.UpdatedAt = time.Now()
	r.users[user.ID] = cloneUser(*user)
	return nil
}

// GetByID returns a user by its ID.
func (r *MockUserRepository) GetByID(id uint64) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("user with id %d: %w", id, ErrRecordNotFound)
	}
	clone := cloneUser(user)
	return &clone, nil
}

// GetByIDForUpdate is GetByID; MockStore serializes transactions instead of
// locking rows.
func (r *MockUserRepository) GetByIDForUpdate(id uint64) (*models.User, error) {
	return r.GetByID(id)
}

// GetByUsername returns a user by its username.
func (r *MockUserRepository) GetByUsername(username string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Username == username {
			clone := cloneUser(u)
			return &clone, nil
		}
	}
	return nil, fmt.Errorf("user with username %s: %w", username, ErrRecordNotFound)
}

// GetAll returns all users ordered by ID.
func (r *MockUserRepository) GetAll() ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := slices.Sorted(maps.Keys(r.users))
	userList := make([]models.User, 0, len(ids))
	for _, id := range ids {
		userList = append(userList, cloneUser(r.users[id]))
	}
	return userList, nil
}

// Delete removes a user by its ID.
func (r *MockUserRepository) Delete(id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return fmt.Errorf("user with ID %d not found for deletion: %w", id, ErrRecordNotFound)
	}
	delete(r.users, id)
	return nil
}

func (r *MockUserRepository) usernameTaken(username string, except uint64) bool {
	for id, u := range r.users {
		if id != except && u.Username == username {
			return true
		}
	}
	return false
}

func (r *MockUserRepository) snapshot() (map[uint64]models.User, uint64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.users), r.nextID
}

func (r *MockUserRepository) restore(users map[uint64]models.User, nextID uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = users
	// IDs handed out inside a rolled back transaction are not reused.
	r.nextID = max(r.nextID, nextID)
}

func cloneUser(u models.User) models.User {
	u.Roles = slices.Clone(u.Roles)
	return u
}
