package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"task-manager/internal/apperror"
	"task-manager/internal/models"
	"task-manager/internal/repository"
	"task-manager/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Task event names delivered to TaskNotifier.
const (
	EventTaskCreated = "task.created"
	EventTaskUpdated = "task.updated"
	EventTaskDeleted = "task.deleted"
)

// Fields a client may set on create and change on update.
var taskFields = []string{"description", "completed"}

// TaskNotifier receives task changes after they are persisted. It must not block.
type TaskNotifier interface {
	NotifyTask(owner uuid.UUID, event string, task models.Task)
}

type nopNotifier struct{}

func (nopNotifier) NotifyTask(uuid.UUID, string, models.Task) {}

type taskFieldsInput struct {
	Description string `json:"description" validate:"required,max=10000"`
}

// TaskStore is the owner-scoped task store. Every lookup is by (id, owner),
// so another user's task is indistinguishable from a missing one.
type TaskStore struct {
	tasks    repository.TaskRepository
	notifier TaskNotifier
	now      func() time.Time
}

func NewTaskStore(tasks repository.TaskRepository, notifier TaskNotifier) *TaskStore {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &TaskStore{
		tasks:    tasks,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func mapTaskErr(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.ErrNotFound
	}
	return apperror.Storage(op, err)
}

// Create builds a task owned by owner from the allow-listed fields.
func (s *TaskStore) Create(ctx context.Context, owner uuid.UUID, patch Patch) (*models.Task, error) {
	verr := &apperror.ValidationError{}
	patch.checkAllowed(verr, taskFields...)

	var description string
	var completed bool
	_, present := patch["description"]
	if patch.decode(verr, "description", &description, "a string") || !present {
		description = strings.TrimSpace(description)
		if err := validateStruct(verr, taskFieldsInput{Description: description}); err != nil {
			return nil, err
		}
	}
	patch.decode(verr, "completed", &completed, "a boolean")
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	now := s.now()
	task := &models.Task{
		ID:          uuid.New(),
		Description: description,
		Completed:   completed,
		Owner:       owner,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, mapTaskErr("create task", err)
	}

	logger.AuditLogger.Info("Task created", zap.String("task_id", task.ID.String()), zap.String("owner", owner.String()))
	s.notifier.NotifyTask(owner, EventTaskCreated, *task)
	return task, nil
}

// List returns owner's tasks only, whatever the query asks for.
func (s *TaskStore) List(ctx context.Context, owner uuid.UUID, q models.TaskQuery) ([]models.Task, error) {
	tasks, err := s.tasks.List(ctx, owner, q)
	if err != nil {
		return nil, apperror.Storage("list tasks", err)
	}
	return tasks, nil
}

func (s *TaskStore) GetByID(ctx context.Context, owner, id uuid.UUID) (*models.Task, error) {
	task, err := s.tasks.FindOne(ctx, id, owner)
	if err != nil {
		return nil, mapTaskErr("find task", err)
	}
	return task, nil
}

// Update rejects fields outside the allow-list and bad values before any
// storage access. Only the fields present in patch are written.
func (s *TaskStore) Update(ctx context.Context, owner, id uuid.UUID, patch Patch) (*models.Task, error) {
	verr := &apperror.ValidationError{}
	patch.checkAllowed(verr, taskFields...)

	var description string
	var completed bool
	update := models.TaskUpdate{}
	if patch.decode(verr, "description", &description, "a string") {
		description = strings.TrimSpace(description)
		if err := validateStruct(verr, taskFieldsInput{Description: description}); err != nil {
			return nil, err
		}
		update.Description = &description
	}
	if patch.decode(verr, "completed", &completed, "a boolean") {
		update.Completed = &completed
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	if update.Empty() {
		return s.GetByID(ctx, owner, id)
	}

	update.UpdatedAt = s.now()
	task, err := s.tasks.Update(ctx, id, owner, update)
	if err != nil {
		return nil, mapTaskErr("update task", err)
	}

	logger.AuditLogger.Info("Task updated", zap.String("task_id", task.ID.String()))
	s.notifier.NotifyTask(owner, EventTaskUpdated, *task)
	return task, nil
}

func (s *TaskStore) DeleteByID(ctx context.Context, owner, id uuid.UUID) (*models.Task, error) {
	task, err := s.tasks.DeleteOne(ctx, id, owner)
	if err != nil {
		return nil, mapTaskErr("delete task", err)
	}

	logger.AuditLogger.Info("Task deleted", zap.String("task_id", task.ID.String()))
	s.notifier.NotifyTask(owner, EventTaskDeleted, *task)
	return task, nil
}
