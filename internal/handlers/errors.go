package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"usermanagement/internal/models"
	"usermanagement/internal/security"
	"usermanagement/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// ProblemContentType is the media type of RFC 7807 error bodies.
const ProblemContentType = "application/problem+json"

// Realm is the basic authentication realm announced on 401 responses.
const Realm = "usermanagement"

const genericServerError = "An unexpected error occurred. Please try again later."

// Problem is an RFC 7807 problem document.
type Problem struct {
	Type     string            `json:"type"`
	Title    string            `json:"title"`
	Status   int               `json:"status"`
	Detail   string            `json:"detail,omitempty"`
	Instance string            `json:"instance,omitempty"`
	Errors   map[string]string `json:"errors,omitempty"`
}

// WriteProblem sends a problem document with the given status.
func WriteProblem(c *fiber.Ctx, status int, detail string, fields map[string]string) error {
	if status == fiber.StatusUnauthorized {
		c.Set(fiber.HeaderWWWAuthenticate, `Basic realm="`+Realm+`"`)
	}
	return c.Status(status).JSON(Problem{
		Type:     "about:blank",
		Title:    http.StatusText(status),
		Status:   status,
		Detail:   detail,
		Instance: c.Path(),
		Errors:   fields,
	}, ProblemContentType)
}

// ErrorHandler maps errors returned by handlers to problem documents and
// logs them: access denials with owner and actor for auditing, unexpected
// errors with their cause. Clients never see the cause of a 500.
func ErrorHandler(log zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status, detail, fields := resolveError(err)

		var denied *services.AccessDeniedError
		switch {
		case errors.As(err, &denied):
			log.Info().
				Str("owner", denied.Owner).
				Str("actor", denied.Actor).
				Str("method", c.Method()).
				Str("path", c.Path()).
				Msg("access denied")
		case status >= fiber.StatusInternalServerError:
			log.Error().
				Err(err).
				Str("method", c.Method()).
				Str("path", c.Path()).
				Msg("unhandled error")
		default:
			log.Info().
				Err(err).
				Int("status", status).
				Str("method", c.Method()).
				Str("path", c.Path()).
				Msg("request failed")
		}

		return WriteProblem(c, status, detail, fields)
	}
}

func resolveError(err error) (int, string, map[string]string) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return fiber.StatusBadRequest, "Validation failed", ve.Fields
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code, fe.Message, nil
	}

	switch {
	case errors.Is(err, services.ErrNotFound):
		return fiber.StatusNotFound, err.Error(), nil
	case errors.Is(err, services.ErrAlreadyExists):
		return fiber.StatusConflict, err.Error(), nil
	case errors.Is(err, services.ErrAccessDenied):
		return fiber.StatusForbidden, err.Error(), nil
	case errors.Is(err, models.ErrInvalidRoleKind):
		return fiber.StatusBadRequest, err.Error(), nil
	case errors.Is(err, security.ErrPasswordTooLong):
		return fiber.StatusBadRequest, fmt.Sprintf("password must be at most %d bytes", security.MaxPasswordBytes), nil
	case errors.Is(err, services.ErrInvalidCredentials):
		return fiber.StatusUnauthorized, err.Error(), nil
	}
	return fiber.StatusInternalServerError, genericServerError, nil
}
