package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"usermanagement/internal/database"
	"usermanagement/internal/handlers"
	"usermanagement/internal/middleware"
	"usermanagement/internal/repositories"
	"usermanagement/internal/security"
	"usermanagement/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	adminName     = "admin"
	adminPassword = "admin-secret"
)

// setupApp builds a Fiber app over an in-memory SQLite database.
func setupApp(t *testing.T) *fiber.App {
	t.Helper()
	db, err := database.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })

	store := repositories.NewGORMStore(db)
	hasher := security.NewBcryptHasher(4)
	authService, err := services.NewAuthService(store.Users(), hasher, adminName, adminPassword)
	require.NoError(t, err)
	userService := services.NewUserService(store, hasher, adminName, nil, zerolog.Nop())

	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler(zerolog.Nop())})
	apiV1 := app.Group("/api/v1", middleware.BasicAuth(authService, zerolog.Nop()))
	handlers.NewUserHandler(userService).RegisterRoutes(apiV1)
	return app
}

func do(t *testing.T, app *fiber.App, method, path, user, pass string, body interface{}) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.SetBasicAuth(user, pass)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func createUser(t *testing.T, app *fiber.App, username, password string, roles ...string) handlers.UserResponse {
	t.Helper()
	resp := do(t, app, http.MethodPost, "/api/v1/users", adminName, adminPassword, map[string]interface{}{
		"username":  username,
		"password":  password,
		"firstName": "First",
		"lastName":  "Last",
		"roles":     roles,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[handlers.UserResponse](t, resp)
}

func TestCreateAndGetUser(t *testing.T) {
	app := setupApp(t)

	created := createUser(t, app, "alice", "password123", "ROLE_USER")
	assert.NotZero(t, created.ID)
	assert.Equal(t, "alice", created.Username)
	assert.Equal(t, []string{"ROLE_USER"}, created.Roles)

	resp := do(t, app, http.MethodGet, fmt.Sprintf("/api/v1/users/%d", created.ID), "alice", "password123", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "password")

	resp = do(t, app, http.MethodGet, "/api/v1/users", "alice", "password123", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	all := decode[[]handlers.UserResponse](t, resp)
	assert.Len(t, all, 1)
}

func TestCreateUser_Conflict(t *testing.T) {
	app := setupApp(t)
	createUser(t, app, "alice", "password123")

	resp := do(t, app, http.MethodPost, "/api/v1/users", adminName, adminPassword, map[string]string{
		"username": "alice",
		"password": "other-password",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, handlers.ProblemContentType, resp.Header.Get("Content-Type"))

	resp = do(t, app, http.MethodPost, "/api/v1/users", adminName, adminPassword, map[string]string{
		"username": adminName,
		"password": "other-password",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestCreateUser_ValidationFailures(t *testing.T) {
	app := setupApp(t)

	resp := do(t, app, http.MethodPost, "/api/v1/users", adminName, adminPassword, map[string]interface{}{
		"username": "a",
		"password": "short",
		"roles":    []string{"ROLE_ROOT"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	problem := decode[handlers.Problem](t, resp)
	assert.Equal(t, http.StatusBadRequest, problem.Status)
	assert.Contains(t, problem.Errors, "username")
	assert.Contains(t, problem.Errors, "password")
	assert.Contains(t, problem.Errors, "roles[0]")
}

func TestGetUser_NotFoundAndBadID(t *testing.T) {
	app := setupApp(t)

	resp := do(t, app, http.MethodGet, "/api/v1/users/42", adminName, adminPassword, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, app, http.MethodGet, "/api/v1/users/abc", adminName, adminPassword, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUnauthenticated(t *testing.T) {
	app := setupApp(t)

	resp := do(t, app, http.MethodGet, "/api/v1/users", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, `Basic realm="usermanagement"`, resp.Header.Get(fiber.HeaderWWWAuthenticate))

	resp = do(t, app, http.MethodGet, "/api/v1/users", adminName, "wrong", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPatchUser_OwnerCanModify(t *testing.T) {
	app := setupApp(t)
	alice := createUser(t, app, "alice", "password123")
	path := fmt.Sprintf("/api/v1/users/%d", alice.ID)

	resp := do(t, app, http.MethodPatch, path, "alice", "password123", map[string]interface{}{
		"firstName": "Alicia",
		"password":  "new-password-1",
		"roles":     []string{"ROLE_ADMIN", "ROLE_USER"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	patched := decode[handlers.UserResponse](t, resp)
	assert.Equal(t, "Alicia", patched.FirstName)
	assert.Equal(t, "Last", patched.LastName)
	assert.ElementsMatch(t, []string{"ROLE_ADMIN", "ROLE_USER"}, patched.Roles)

	resp = do(t, app, http.MethodGet, path, "alice", "password123", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp = do(t, app, http.MethodGet, path, "alice", "new-password-1", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPatchUser_EmptyUsernameRejected(t *testing.T) {
	app := setupApp(t)
	alice := createUser(t, app, "alice", "password123")

	resp := do(t, app, http.MethodPatch, fmt.Sprintf("/api/v1/users/%d", alice.ID), "alice", "password123",
		map[string]string{"username": ""})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpdateUser_AccessDeniedForOtherUser(t *testing.T) {
	app := setupApp(t)
	alice := createUser(t, app, "alice", "password123")
	createUser(t, app, "bob", "password456")

	resp := do(t, app, http.MethodPut, fmt.Sprintf("/api/v1/users/%d", alice.ID), "bob", "password456", map[string]string{
		"username": "alice",
		"password": "password123",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	problem := decode[handlers.Problem](t, resp)
	assert.Contains(t, problem.Detail, "bob")

	resp = do(t, app, http.MethodDelete, fmt.Sprintf("/api/v1/users/%d", alice.ID), "bob", "password456", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestUpdateUser_AdminRenamesKeepingOmittedFields(t *testing.T) {
	app := setupApp(t)
	alice := createUser(t, app, "alice", "password123", "ROLE_USER")
	createUser(t, app, "bob", "password456")
	path := fmt.Sprintf("/api/v1/users/%d", alice.ID)

	resp := do(t, app, http.MethodPut, path, adminName, adminPassword, map[string]string{
		"username": "bob",
		"password": "password123",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = do(t, app, http.MethodPut, path, adminName, adminPassword, map[string]string{
		"username": "alice2",
		"password": "password123",
		"lastName": "",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[handlers.UserResponse](t, resp)
	assert.Equal(t, "alice2", updated.Username)
	assert.Equal(t, "First", updated.FirstName)
	assert.Empty(t, updated.LastName)
	assert.Equal(t, []string{"ROLE_USER"}, updated.Roles)
}

func TestDeleteUser(t *testing.T) {
	app := setupApp(t)
	alice := createUser(t, app, "alice", "password123")
	path := fmt.Sprintf("/api/v1/users/%d", alice.ID)

	resp := do(t, app, http.MethodDelete, path, "alice", "password123", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, app, http.MethodGet, path, adminName, adminPassword, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, app, http.MethodDelete, path, adminName, adminPassword, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPassword_ByteLimit(t *testing.T) {
	app := setupApp(t)
	// 40 runes but 80 bytes: within a rune count of 72, over bcrypt's byte limit.
	multibyte := strings.Repeat("é", 40)

	resp := do(t, app, http.MethodPost, "/api/v1/users", adminName, adminPassword, map[string]string{
		"username": "alice",
		"password": multibyte,
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	problem := decode[handlers.Problem](t, resp)
	assert.Equal(t, "password must be at most 72 bytes", problem.Errors["password"])

	alice := createUser(t, app, "alice", "password123")
	path := fmt.Sprintf("/api/v1/users/%d", alice.ID)

	resp = do(t, app, http.MethodPatch, path, "alice", "password123", map[string]string{"password": multibyte})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, app, http.MethodPut, path, "alice", "password123", map[string]string{
		"username": "alice",
		"password": multibyte,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// 36 runes, 72 bytes: accepted.
	resp = do(t, app, http.MethodPatch, path, "alice", "password123", map[string]string{"password": strings.Repeat("é", 36)})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
