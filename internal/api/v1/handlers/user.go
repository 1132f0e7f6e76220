package handlers

import (
	"task-manager/internal/middleware"
	"task-manager/internal/service"
	"task-manager/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func (h *Handler) Me(c *fiber.Ctx) error {
	return success(c, fiber.StatusOK, "User retrieved successfully", middleware.CurrentUser(c).Public())
}

// UpdateMe menerapkan perubahan sebagian pada profil user yang login.
func (h *Handler) UpdateMe(c *fiber.Ctx) error {
	var patch service.Patch
	if err := c.BodyParser(&patch); err != nil {
		logger.ErrorLogger.Error("Bad request in update user", zap.Error(err))
		return badRequest(c)
	}

	user, err := h.users.UpdateProfile(c.UserContext(), middleware.CurrentUser(c), patch)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "User updated successfully", user.Public())
}

// DeleteMe menghapus akun beserta semua task miliknya.
func (h *Handler) DeleteMe(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	if err := h.users.DeleteAccount(c.UserContext(), user); err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "User deleted successfully", user.Public())
}
