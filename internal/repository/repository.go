// Package repository is the storage collaborator: exact-match create, find,
// update and delete of users, session tokens and tasks.
package repository

import (
	"context"
	"errors"

	"task-manager/internal/models"

	"github.com/google/uuid"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

type UserRepository interface {
	// Create inserts u. Returns ErrDuplicateEmail when the email is taken.
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	// FindByToken resolves a user only while token is in that user's token collection.
	FindByToken(ctx context.Context, id uuid.UUID, token string) (*models.User, error)
	// Update writes only the fields set in u and returns the stored user.
	// Returns ErrDuplicateEmail when the new email is taken.
	Update(ctx context.Context, id uuid.UUID, u models.UserUpdate) (*models.User, error)
	// DeleteWithTasks removes the user, its tokens and every task it owns as one unit.
	DeleteWithTasks(ctx context.Context, id uuid.UUID) error

	AddToken(ctx context.Context, id uuid.UUID, token string) error
	RemoveToken(ctx context.Context, id uuid.UUID, token string) error
	RemoveAllTokens(ctx context.Context, id uuid.UUID) error
	// Tokens returns the active tokens in issue order.
	Tokens(ctx context.Context, id uuid.UUID) ([]string, error)

	// Avatar returns nil bytes when the user has no avatar.
	Avatar(ctx context.Context, id uuid.UUID) ([]byte, error)
	// SetAvatar stores data, or clears the avatar when data is nil.
	SetAvatar(ctx context.Context, id uuid.UUID, data []byte) error
}

// TaskRepository methods that address a single task always filter on owner.
type TaskRepository interface {
	Create(ctx context.Context, t *models.Task) error
	List(ctx context.Context, owner uuid.UUID, q models.TaskQuery) ([]models.Task, error)
	FindOne(ctx context.Context, id, owner uuid.UUID) (*models.Task, error)
	// Update writes only the fields set in u on the task (id, owner).
	Update(ctx context.Context, id, owner uuid.UUID, u models.TaskUpdate) (*models.Task, error)
	DeleteOne(ctx context.Context, id, owner uuid.UUID) (*models.Task, error)
}
