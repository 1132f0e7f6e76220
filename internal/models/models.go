package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the stored account record. Password holds the bcrypt hash only.
// Session tokens live in their own collection (see repository.UserRepository).
type User struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	Age       int       `json:"age"`
	Avatar    []byte    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PublicUser is the only shape of a user that leaves the service.
type PublicUser struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Age       int       `json:"age"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Age:       u.Age,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

type Task struct {
	ID          uuid.UUID `json:"id"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	Owner       uuid.UUID `json:"owner"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Sortable task fields.
const (
	SortCreatedAt   = "created_at"
	SortUpdatedAt   = "updated_at"
	SortDescription = "description"
	SortCompleted   = "completed"
)

// TaskQuery narrows a task listing. Zero values mean "not set".
type TaskQuery struct {
	Completed *bool
	SortBy    string
	Desc      bool
	Limit     int
	Skip      int
}

// UserUpdate names the columns a profile change writes. Nil fields are left
// untouched. Password holds the new bcrypt hash.
type UserUpdate struct {
	Name      *string
	Email     *string
	Password  *string
	Age       *int
	UpdatedAt time.Time
}

// TaskUpdate names the columns a task change writes. Nil fields are left untouched.
type TaskUpdate struct {
	Description *string
	Completed   *bool
	UpdatedAt   time.Time
}

func (u TaskUpdate) Empty() bool {
	return u.Description == nil && u.Completed == nil
}
