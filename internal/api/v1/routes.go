package v1

import (
	"task-manager/internal/api/v1/handlers"
	"task-manager/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes mounts the REST API under /api/v1. auth guards every
// route that acts on behalf of a user.
func RegisterRoutes(app *fiber.App, h *handlers.Handler, auth fiber.Handler) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", middleware.MetricsHandler())

	api := app.Group("/api/v1")

	// Auth
	api.Post("/users", h.Register)
	api.Post("/users/login", h.Login)
	api.Post("/users/logout", auth, h.Logout)
	api.Post("/users/logoutAll", auth, h.LogoutAll)

	// User
	api.Get("/users/me", auth, h.Me)
	api.Patch("/users/me", auth, h.UpdateMe)
	api.Delete("/users/me", auth, h.DeleteMe)

	// Avatar
	api.Post("/users/me/avatar", auth, h.UploadAvatar)
	api.Delete("/users/me/avatar", auth, h.DeleteAvatar)
	api.Get("/users/:id/avatar", h.GetAvatar)

	// Task
	taskRoutes := api.Group("/tasks", auth)
	taskRoutes.Post("/", h.CreateTask)
	taskRoutes.Get("/", h.ListTasks)
	taskRoutes.Get("/:id", h.GetTask)
	taskRoutes.Patch("/:id", h.UpdateTask)
	taskRoutes.Delete("/:id", h.DeleteTask)

	// WebSocket
	api.Get("/ws/tasks", h.RequireUpgrade, auth, h.TaskEvents())
}
