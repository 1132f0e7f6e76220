package handlers

import (
	"strconv"
	"strings"

	"task-manager/internal/middleware"
	"task-manager/internal/models"
	"task-manager/internal/service"
	"task-manager/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var sortAliases = map[string]string{
	"createdAt": models.SortCreatedAt,
	"updatedAt": models.SortUpdatedAt,
}

// parseTaskQuery membaca ?completed=, ?sortBy=field:asc|desc, ?limit= dan
// ?skip=. Nilai yang tidak valid diabaikan.
func parseTaskQuery(c *fiber.Ctx) models.TaskQuery {
	var q models.TaskQuery

	if v := c.Query("completed"); v != "" {
		completed := v == "true"
		q.Completed = &completed
	}

	if v := c.Query("sortBy"); v != "" {
		field, dir, _ := strings.Cut(v, ":")
		if alias, ok := sortAliases[field]; ok {
			field = alias
		}
		q.SortBy = field
		q.Desc = dir == "desc"
	}

	if n, err := strconv.Atoi(c.Query("limit")); err == nil && n > 0 {
		q.Limit = n
	}
	if n, err := strconv.Atoi(c.Query("skip")); err == nil && n > 0 {
		q.Skip = n
	}
	return q
}

func (h *Handler) CreateTask(c *fiber.Ctx) error {
	var patch service.Patch
	if err := c.BodyParser(&patch); err != nil {
		logger.ErrorLogger.Error("Bad request in create task", zap.Error(err))
		return badRequest(c)
	}

	task, err := h.tasks.Create(c.UserContext(), middleware.CurrentUser(c).ID, patch)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusCreated, "Task created successfully", task)
}

func (h *Handler) ListTasks(c *fiber.Ctx) error {
	tasks, err := h.tasks.List(c.UserContext(), middleware.CurrentUser(c).ID, parseTaskQuery(c))
	if err != nil {
		return respondError(c, err)
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	return success(c, fiber.StatusOK, "Tasks retrieved successfully", tasks)
}

func (h *Handler) GetTask(c *fiber.Ctx) error {
	id, ok := idParam(c, "id")
	if !ok {
		return fail(c, fiber.StatusNotFound, "Not found")
	}

	task, err := h.tasks.GetByID(c.UserContext(), middleware.CurrentUser(c).ID, id)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "Task retrieved successfully", task)
}

// UpdateTask memvalidasi body sebelum mencari task, jadi field terlarang
// selalu 400 walaupun id-nya bukan milik user.
func (h *Handler) UpdateTask(c *fiber.Ctx) error {
	var patch service.Patch
	if err := c.BodyParser(&patch); err != nil {
		logger.ErrorLogger.Error("Bad request in update task", zap.Error(err))
		return badRequest(c)
	}

	id, ok := idParam(c, "id")
	if !ok {
		return fail(c, fiber.StatusNotFound, "Not found")
	}

	task, err := h.tasks.Update(c.UserContext(), middleware.CurrentUser(c).ID, id, patch)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "Task updated successfully", task)
}

func (h *Handler) DeleteTask(c *fiber.Ctx) error {
	id, ok := idParam(c, "id")
	if !ok {
		return fail(c, fiber.StatusNotFound, "Not found")
	}

	task, err := h.tasks.DeleteByID(c.UserContext(), middleware.CurrentUser(c).ID, id)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "Task deleted successfully", task)
}
