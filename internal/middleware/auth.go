package middleware

import (
	"context"
	"strings"

	"task-manager/internal/apperror"
	"task-manager/internal/models"
	"task-manager/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Locals keys set by Authenticate.
const (
	LocalUser  = "user"
	LocalToken = "token"
)

type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*models.User, error)
}

func bearerToken(header string) (string, bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func unauthorized(c *fiber.Ctx) error {
	authFailures.Inc()
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"message": "Please authenticate.",
		"success": false,
		"status":  fiber.StatusUnauthorized,
	})
}

// Authenticate resolves the bearer token to a user and stores the user and
// the raw token in c.Locals. Every credential failure gets the same 401.
func Authenticate(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			logger.SecurityLogger.Warn("Missing or malformed bearer token", zap.String("path", c.Path()))
			return unauthorized(c)
		}

		user, err := verifier.Verify(c.UserContext(), token)
		if err != nil {
			if apperror.IsStorage(err) {
				logger.ErrorLogger.Error("Token verification failed", zap.Error(err))
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"message": "Internal server error",
					"success": false,
					"status":  fiber.StatusInternalServerError,
				})
			}
			logger.SecurityLogger.Warn("Rejected bearer token", zap.String("path", c.Path()))
			return unauthorized(c)
		}

		c.Locals(LocalUser, user)
		c.Locals(LocalToken, token)
		return c.Next()
	}
}

// CurrentUser returns the user stored by Authenticate, or nil.
func CurrentUser(c *fiber.Ctx) *models.User {
	return CurrentUserFrom(func(key string) interface{} { return c.Locals(key) })
}

// CurrentUserFrom reads the user through any Locals accessor, such as the
// one on a websocket connection.
func CurrentUserFrom(locals func(key string) interface{}) *models.User {
	user, _ := locals(LocalUser).(*models.User)
	return user
}

func CurrentToken(c *fiber.Ctx) string {
	token, _ := c.Locals(LocalToken).(string)
	return token
}
