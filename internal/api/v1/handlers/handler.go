package handlers

import (
	"errors"

	"task-manager/internal/apperror"
	"task-manager/internal/service"
	myws "task-manager/internal/websocket"
	"task-manager/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultAvatarMaxBytes = 1_000_000

// Deps are the collaborators shared by every handler.
type Deps struct {
	Users          *service.CredentialStore
	Auth           *service.TokenAuthenticator
	Tasks          *service.TaskStore
	Hub            *myws.Hub
	AvatarMaxBytes int64
}

type Handler struct {
	users          *service.CredentialStore
	auth           *service.TokenAuthenticator
	tasks          *service.TaskStore
	hub            *myws.Hub
	avatarMaxBytes int64
}

func New(d Deps) *Handler {
	if d.AvatarMaxBytes <= 0 {
		d.AvatarMaxBytes = defaultAvatarMaxBytes
	}
	return &Handler{
		users:          d.Users,
		auth:           d.Auth,
		tasks:          d.Tasks,
		hub:            d.Hub,
		avatarMaxBytes: d.AvatarMaxBytes,
	}
}

func success(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(fiber.Map{
		"message": message,
		"success": true,
		"status":  status,
		"data":    data,
	})
}

func fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"message": message,
		"success": false,
		"status":  status,
	})
}

func badRequest(c *fiber.Ctx) error {
	return fail(c, fiber.StatusBadRequest, "Bad request")
}

// respondError maps the service error taxonomy to a response.
func respondError(c *fiber.Ctx, err error) error {
	var verr *apperror.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation error",
			"errors":  verr.Violations,
			"success": false,
			"status":  fiber.StatusBadRequest,
		})
	case errors.Is(err, apperror.ErrUnauthenticated):
		return fail(c, fiber.StatusUnauthorized, "Please authenticate.")
	case errors.Is(err, apperror.ErrInvalidCredentials):
		return fail(c, fiber.StatusBadRequest, "Unable to login")
	case errors.Is(err, apperror.ErrNotFound):
		return fail(c, fiber.StatusNotFound, "Not found")
	}

	logger.ErrorLogger.Error("Request failed",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Error(err),
	)
	return fail(c, fiber.StatusInternalServerError, "Internal server error")
}

// idParam parses a uuid path parameter. A malformed id cannot name any
// record, so callers answer it with 404.
func idParam(c *fiber.Ctx, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params(name))
	return id, err == nil
}

// FiberErrorHandler renders errors that escape the handlers, such as
// unknown routes or oversized bodies, in the common envelope.
func FiberErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fail(c, fe.Code, fe.Message)
	}
	return respondError(c, err)
}
