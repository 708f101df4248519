package services

import (
	"errors"
	"fmt"

	"usermanagement/internal/models"
)

var (
	ErrNotFound      = errors.New("user not found")
	ErrAlreadyExists = errors.New("user already exists")
	ErrAccessDenied  = errors.New("access denied")
	// ErrPreconditionFailed means a caller passed an empty owner or principal
	// name. It points at a broken authentication boundary, not a client error.
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidRoleKind    = models.ErrInvalidRoleKind
)

// AccessDeniedError names who tried to change whose record, for audit logs.
type AccessDeniedError struct {
	Owner  string
	Actor  string
	Reason string
}

func (e *AccessDeniedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("access denied: user %q may not modify the record of %q", e.Actor, e.Owner)
	}
	return "access denied: " + e.Reason
}

func (e *AccessDeniedError) Unwrap() error {
	return ErrAccessDenied
}
