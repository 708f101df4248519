package repositories_test

import (
	"errors"
	"fmt"
	"testing"

	"usermanagement/internal/database"
	"usermanagement/internal/models"
	"usermanagement/internal/repositories"
	"usermanagement/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGORMStore(t *testing.T) *repositories.GORMStore {
	t.Helper()
	db, err := database.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })
	return repositories.NewGORMStore(db)
}

func seedRole(t *testing.T, store repositories.Store, kind models.RoleKind) models.Role {
	t.Helper()
	role := models.Role{Name: kind, Description: kind.Description()}
	require.NoError(t, store.Roles().Create(&role))
	return role
}

func TestGORMUserRepository_CreateAndGet(t *testing.T) {
	store := newGORMStore(t)
	role := seedRole(t, store, models.RoleUser)

	user := &models.User{Username: "alice", Password: "hash", FirstName: "Alice", Roles: []models.Role{role}}
	require.NoError(t, store.Users().Create(user))
	assert.NotZero(t, user.ID)

	byID, err := store.Users().GetByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)
	assert.Equal(t, []models.RoleKind{models.RoleUser}, byID.RoleNames())

	byName, err := store.Users().GetByUsername("alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byName.ID)

	_, err = store.Users().GetByID(999)
	assert.ErrorIs(t, err, repositories.ErrRecordNotFound)
	_, err = store.Users().GetByUsername("ghost")
	assert.ErrorIs(t, err, repositories.ErrRecordNotFound)
}

func TestGORMUserRepository_DuplicateUsername(t *testing.T) {
	store := newGORMStore(t)

	require.NoError(t, store.Users().Create(&models.User{Username: "alice", Password: "hash"}))
	err := store.Users().Create(&models.User{Username: "alice", Password: "hash"})
	assert.ErrorIs(t, err, repositories.ErrDuplicateKey)

	bob := &models.User{Username: "bob", Password: "hash"}
	require.NoError(t, store.Users().Create(bob))
	bob.Username = "alice"
	assert.ErrorIs(t, store.Users().Update(bob), repositories.ErrDuplicateKey)
}

func TestGORMUserRepository_UpdateReplacesRoles(t *testing.T) {
	store := newGORMStore(t)
	userRole := seedRole(t, store, models.RoleUser)
	adminRole := seedRole(t, store, models.RoleAdmin)

	user := &models.User{Username: "alice", Password: "hash", Roles: []models.Role{userRole}}
	require.NoError(t, store.Users().Create(user))

	user.LastName = "Doe"
	user.Roles = []models.Role{adminRole}
	require.NoError(t, store.Users().Update(user))

	got, err := store.Users().GetByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Doe", got.LastName)
	assert.Equal(t, []models.RoleKind{models.RoleAdmin}, got.RoleNames())

	got.Roles = []models.Role{}
	require.NoError(t, store.Users().Update(got))
	got, err = store.Users().GetByIDForUpdate(user.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Roles)
}

func TestGORMUserRepository_DeleteKeepsRoles(t *testing.T) {
	store := newGORMStore(t)
	role := seedRole(t, store, models.RoleUser)

	user := &models.User{Username: "alice", Password: "hash", Roles: []models.Role{role}}
	require.NoError(t, store.Users().Create(user))
	require.NoError(t, store.Users().Delete(user.ID))

	_, err := store.Users().GetByID(user.ID)
	assert.ErrorIs(t, err, repositories.ErrRecordNotFound)
	assert.ErrorIs(t, store.Users().Delete(user.ID), repositories.ErrRecordNotFound)

	_, err = store.Roles().GetByName(models.RoleUser)
	assert.NoError(t, err)
}

func TestGORMUserRepository_GetAllOrdersByID(t *testing.T) {
	store := newGORMStore(t)
	for _, name := range []string{"carol", "alice", "bob"} {
		require.NoError(t, store.Users().Create(&models.User{Username: name, Password: "hash"}))
	}

	users, err := store.Users().GetAll()
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "carol", users[0].Username)
	assert.Less(t, users[0].ID, users[1].ID)
	assert.Less(t, users[1].ID, users[2].ID)
}

func TestGORMRoleRepository_UniqueName(t *testing.T) {
	store := newGORMStore(t)
	seedRole(t, store, models.RoleAdmin)

	err := store.Roles().Create(&models.Role{Name: models.RoleAdmin})
	assert.ErrorIs(t, err, repositories.ErrDuplicateKey)

	_, err = store.Roles().GetByName(models.RoleUser)
	assert.ErrorIs(t, err, repositories.ErrRecordNotFound)
}

func TestGORMStore_DuplicateRoleInsideTransactionKeepsItUsable(t *testing.T) {
	store := newGORMStore(t)
	seedRole(t, store, models.RoleAdmin)

	err := store.Transaction(func(tx repositories.Store) error {
		err := tx.Roles().Create(&models.Role{Name: models.RoleAdmin})
		require.ErrorIs(t, err, repositories.ErrDuplicateKey)
		return tx.Users().Create(&models.User{Username: "alice", Password: "hash"})
	})
	require.NoError(t, err)

	_, err = store.Users().GetByUsername("alice")
	assert.NoError(t, err)
}

func TestGORMStore_TransactionRollsBack(t *testing.T) {
	store := newGORMStore(t)
	errBoom := errors.New("boom")

	err := store.Transaction(func(tx repositories.Store) error {
		require.NoError(t, tx.Users().Create(&models.User{Username: "alice", Password: "hash"}))
		return errBoom
	})
	assert.ErrorIs(t, err, errBoom)

	_, err = store.Users().GetByUsername("alice")
	assert.ErrorIs(t, err, repositories.ErrRecordNotFound)
}

// staleRoleRepository misses on its first lookup, as if another transaction
// created the role between our read and our insert.
type staleRoleRepository struct {
	repositories.RoleRepository
	missed bool
}

func (r *staleRoleRepository) GetByName(name models.RoleKind) (*models.Role, error) {
	if !r.missed {
		r.missed = true
		return nil, fmt.Errorf("role %s: %w", name, repositories.ErrRecordNotFound)
	}
	return r.RoleRepository.GetByName(name)
}

func TestGORMStore_RoleRegistryRecoversFromDuplicateInTransaction(t *testing.T) {
	store := newGORMStore(t)
	seeded := seedRole(t, store, models.RoleUser)

	err := store.Transaction(func(tx repositories.Store) error {
		registry := services.NewRoleRegistry(&staleRoleRepository{RoleRepository: tx.Roles()})
		role, err := registry.ResolveOrCreate(models.RoleUser)
		if err != nil {
			return err
		}
		assert.Equal(t, seeded.ID, role.ID)
		return tx.Users().Create(&models.User{Username: "alice", Password: "hash", Roles: []models.Role{*role}})
	})
	require.NoError(t, err)

	alice, err := store.Users().GetByUsername("alice")
	require.NoError(t, err)
	require.Len(t, alice.Roles, 1)
	assert.Equal(t, seeded.ID, alice.Roles[0].ID)
}
