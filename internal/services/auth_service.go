package services

import (
	"errors"
	"fmt"

	"usermanagement/internal/metrics"
	"usermanagement/internal/repositories"
	"usermanagement/internal/security"
)

// AuthService resolves basic-auth credentials to a principal name. The
// administrator is configured, not stored; everyone else is a stored user.
type AuthService struct {
	userRepo      repositories.UserRepository
	hasher        security.PasswordHasher
	adminUsername string
	adminHash     string
}

// NewAuthService creates a new AuthService. The admin password is hashed
// once here so it is never compared or kept in plaintext.
func NewAuthService(userRepo repositories.UserRepository, hasher security.PasswordHasher, adminUsername, adminPassword string) (*AuthService, error) {
	if adminUsername == "" || adminPassword == "" {
		return nil, fmt.Errorf("admin username and password are required")
	}
	adminHash, err := hasher.Hash(adminPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to hash admin password: %w", err)
	}
	return &AuthService{
		userRepo:      userRepo,
		hasher:        hasher,
		adminUsername: adminUsername,
		adminHash:     adminHash,
	}, nil
}

// AdminUsername returns the configured administrator name.
func (s *AuthService) AdminUsername() string {
	return s.adminUsername
}

// Authenticate returns the principal name for valid credentials. It does not
// reveal whether a username exists.
func (s *AuthService) Authenticate(username, password string) (string, error) {
	principal, err := s.authenticate(username, password)
	result := "success"
	if err != nil {
		result = "failure"
	}
	metrics.AuthenticationsTotal.WithLabelValues(result).Inc()
	return principal, err
}

func (s *AuthService) authenticate(username, password string) (string, error) {
	if username == "" || password == "" {
		return "", ErrInvalidCredentials
	}
	if username == s.adminUsername {
		if !s.hasher.Matches(password, s.adminHash) {
			return "", ErrInvalidCredentials
		}
		return s.adminUsername, nil
	}

	user, err := s.userRepo.GetByUsername(username)
	if errors.Is(err, repositories.ErrRecordNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("failed to load user for authentication: %w", err)
	}
	if !s.hasher.Matches(password, user.Password) {
		return "", ErrInvalidCredentials
	}
	return user.Username, nil
}
