package repositories

import "sync"

// MockStore is an in-memory Store. Transactions are serialized and roll back
// by restoring the state captured when they started.
type MockStore struct {
	users *MockUserRepository
	roles *MockRoleRepository
	txMu  sync.Mutex
}

// NewMockStore creates an empty in-memory Store.
func NewMockStore() *MockStore {
	return &MockStore{
		users: NewMockUserRepository(),
		roles: NewMockRoleRepository(),
	}
}

func (s *MockStore) Users() UserRepository { return s.users }

func (s *MockStore) Roles() RoleRepository { return s.roles }

// RoleCount returns how many roles are stored.
func (s *MockStore) RoleCount() int { return s.roles.Count() }

// Transaction runs fn with exclusive access to the store. Calls made outside
// a transaction are not blocked and may observe uncommitted state.
func (s *MockStore) Transaction(fn func(tx Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return s.savepoint(fn)
}

func (s *MockStore) savepoint(fn func(tx Store) error) error {
	users, userSeq := s.users.snapshot()
	roles, roleSeq := s.roles.snapshot()
	if err := fn(mockTx{s}); err != nil {
		s.users.restore(users, userSeq)
		s.roles.restore(roles, roleSeq)
		return err
	}
	return nil
}

// mockTx is the Store handed to a running transaction; nesting only
// captures a savepoint since the outer call already holds txMu.
type mockTx struct {
	*MockStore
}

func (t mockTx) Transaction(fn func(tx Store) error) error {
	return t.savepoint(fn)
}
