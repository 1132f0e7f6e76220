package handlers

import (
	"task-manager/internal/middleware"
	"task-manager/internal/models"
	"task-manager/internal/service"
	"task-manager/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type authResponse struct {
	User  models.PublicUser `json:"user"`
	Token string            `json:"token"`
}

// Register membuat user baru dan langsung memberikan token sesi.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req service.RegisterInput
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in register", zap.Error(err))
		return badRequest(c)
	}

	user, err := h.users.Register(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}

	token, err := h.auth.Issue(c.UserContext(), user.ID)
	if err != nil {
		return respondError(c, err)
	}

	return success(c, fiber.StatusCreated, "User registered successfully", authResponse{User: user.Public(), Token: token})
}

// Login memeriksa email dan password, lalu menerbitkan token baru.
func (h *Handler) Login(c *fiber.Ctx) error {
	type LoginRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in login", zap.Error(err))
		return badRequest(c)
	}

	user, err := h.users.FindByCredentials(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respondError(c, err)
	}

	token, err := h.auth.Issue(c.UserContext(), user.ID)
	if err != nil {
		return respondError(c, err)
	}

	logger.SecurityLogger.Info("User logged in", zap.String("user_id", user.ID.String()))
	return success(c, fiber.StatusOK, "Login successful", authResponse{User: user.Public(), Token: token})
}

// Logout mencabut token yang dipakai pada request ini saja.
func (h *Handler) Logout(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	if err := h.auth.Revoke(c.UserContext(), user, middleware.CurrentToken(c)); err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "Logged out", nil)
}

func (h *Handler) LogoutAll(c *fiber.Ctx) error {
	if err := h.auth.RevokeAll(c.UserContext(), middleware.CurrentUser(c)); err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "Logged out from all sessions", nil)
}
