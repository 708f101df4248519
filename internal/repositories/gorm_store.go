package repositories

import "gorm.io/gorm"

// GORMStore is the Store backed by a GORM database handle.
type GORMStore struct {
	db    *gorm.DB
	users *GORMUserRepository
	roles *GORMRoleRepository
}

// NewGORMStore creates a Store whose repositories share db.
func NewGORMStore(db *gorm.DB) *GORMStore {
	return &GORMStore{
		db:    db,
		users: NewGORMUserRepository(db),
		roles: NewGORMRoleRepository(db),
	}
}

func (s *GORMStore) Users() UserRepository { return s.users }

func (s *GORMStore) Roles() RoleRepository { return s.roles }

// Transaction runs fn in a database transaction. Nested calls become savepoints.
func (s *GORMStore) Transaction(fn func(tx Store) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(NewGORMStore(tx))
	})
}
