package middleware

import (
	"errors"
	"log/slog"
	"strings"

	"taskmanager/internal/logger"
	"taskmanager/internal/models"
	"taskmanager/internal/services"

	"github.com/gofiber/fiber/v2"
)

const (
	localsUser  = "user"
	localsToken = "token"
)

// Authenticator resolves a bearer token to the user owning it.
type Authenticator interface {
	Authenticate(token string) (*models.User, error)
}

// AuthRequired is a Fiber middleware that admits only requests carrying an
// active session token. Every rejection looks the same to the client.
func AuthRequired(auth Authenticator, log *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Expected format: "Bearer <token>"
		parts := strings.SplitN(c.Get(fiber.HeaderAuthorization), " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return unauthorized(c)
		}
		token := parts[1]

		user, err := auth.Authenticate(token)
		if err != nil {
			if !errors.Is(err, services.ErrUnauthorized) {
				log.Error("failed to authenticate request", logger.Err(err))
			}
			return unauthorized(c)
		}

		c.Locals(localsUser, user)
		c.Locals(localsToken, token)
		return c.Next()
	}
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": services.ErrUnauthorized.Error(),
	})
}

// CurrentUser returns the user admitted by AuthRequired.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(localsUser).(*models.User)
	return user
}

// CurrentToken returns the token the request was authenticated with.
func CurrentToken(c *fiber.Ctx) string {
	token, _ := c.Locals(localsToken).(string)
	return token
}
