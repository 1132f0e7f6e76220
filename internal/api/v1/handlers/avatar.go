package handlers

import (
	"errors"
	"fmt"

	"task-manager/internal/middleware"
	"task-manager/pkg/imaging"
	"task-manager/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// UploadAvatar menerima form-data "avatar", mengubahnya ke PNG 250x250 dan
// menyimpannya pada user.
func (h *Handler) UploadAvatar(c *fiber.Ctx) error {
	file, err := c.FormFile("avatar")
	if err != nil {
		logger.ErrorLogger.Error("Error uploading avatar", zap.Error(err))
		return fail(c, fiber.StatusBadRequest, "Please upload an image")
	}

	if file.Size > h.avatarMaxBytes {
		return fail(c, fiber.StatusBadRequest, fmt.Sprintf("File size exceeds the limit of %d bytes", h.avatarMaxBytes))
	}
	if !imaging.AllowedFilename(file.Filename) {
		return fail(c, fiber.StatusBadRequest, "Please upload an image")
	}

	src, err := file.Open()
	if err != nil {
		return respondError(c, err)
	}
	defer src.Close()

	data, err := imaging.Avatar(src)
	if errors.Is(err, imaging.ErrNotImage) {
		return fail(c, fiber.StatusBadRequest, "Please upload an image")
	}
	if err != nil {
		return respondError(c, err)
	}

	if err := h.users.SetAvatar(c.UserContext(), middleware.CurrentUser(c), data); err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "Avatar uploaded successfully", nil)
}

func (h *Handler) DeleteAvatar(c *fiber.Ctx) error {
	if err := h.users.DeleteAvatar(c.UserContext(), middleware.CurrentUser(c)); err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "Avatar deleted successfully", nil)
}

// GetAvatar is public: anyone who knows the user id can fetch the image.
func (h *Handler) GetAvatar(c *fiber.Ctx) error {
	id, ok := idParam(c, "id")
	if !ok {
		return fail(c, fiber.StatusNotFound, "Not found")
	}

	data, err := h.users.Avatar(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}

	c.Set(fiber.HeaderContentType, "image/png")
	return c.Status(fiber.StatusOK).Send(data)
}
