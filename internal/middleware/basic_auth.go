package middleware

import (
	"errors"

	"usermanagement/internal/handlers"
	"usermanagement/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/rs/zerolog"
)

// BasicAuth is a Fiber middleware that requires HTTP basic credentials
// accepted by authService. The principal is stored in Locals under
// handlers.LocalsUsername.
func BasicAuth(authService *services.AuthService, log zerolog.Logger) fiber.Handler {
	return basicauth.New(basicauth.Config{
		Realm: handlers.Realm,
		Authorizer: func(username, password string) bool {
			_, err := authService.Authenticate(username, password)
			if err != nil && !errors.Is(err, services.ErrInvalidCredentials) {
				log.Error().Err(err).Str("username", username).Msg("authentication lookup failed")
			}
			return err == nil
		},
		Unauthorized: func(c *fiber.Ctx) error {
			return handlers.WriteProblem(c, fiber.StatusUnauthorized, "Full authentication is required to access this resource", nil)
		},
	})
}
