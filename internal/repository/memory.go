package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"task-manager/internal/models"

	"github.com/google/uuid"
)

// MemoryStore keeps users, tokens and tasks in process memory. Every method
// holds the store lock for its whole duration, so each call is atomic.
type MemoryStore struct {
	mu     sync.RWMutex
	users  map[uuid.UUID]models.User
	tokens map[uuid.UUID][]string
	tasks  map[uuid.UUID]models.Task
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:  make(map[uuid.UUID]models.User),
		tokens: make(map[uuid.UUID][]string),
		tasks:  make(map[uuid.UUID]models.Task),
	}
}

func (s *MemoryStore) Users() *MemoryUserRepository { return &MemoryUserRepository{s: s} }

func (s *MemoryStore) Tasks() *MemoryTaskRepository { return &MemoryTaskRepository{s: s} }

type MemoryUserRepository struct{ s *MemoryStore }

var _ UserRepository = (*MemoryUserRepository)(nil)

func cloneUser(u models.User) *models.User {
	if u.Avatar != nil {
		u.Avatar = append([]byte(nil), u.Avatar...)
	}
	return &u
}

func (r *MemoryUserRepository) emailTaken(email string, except uuid.UUID) bool {
	for id, u := range r.s.users {
		if id != except && u.Email == email {
			return true
		}
	}
	return false
}

func (r *MemoryUserRepository) Create(_ context.Context, u *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.emailTaken(u.Email, uuid.Nil) {
		return ErrDuplicateEmail
	}
	r.s.users[u.ID] = *cloneUser(*u)
	return nil
}

func (r *MemoryUserRepository) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *MemoryUserRepository) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryUserRepository) FindByToken(_ context.Context, id uuid.UUID, token string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	for _, t := range r.s.tokens[id] {
		if t == token {
			return cloneUser(u), nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryUserRepository) Update(_ context.Context, id uuid.UUID, u models.UserUpdate) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	if u.Email != nil && r.emailTaken(*u.Email, id) {
		return nil, ErrDuplicateEmail
	}
	if u.Name != nil {
		stored.Name = *u.Name
	}
	if u.Email != nil {
		stored.Email = *u.Email
	}
	if u.Password != nil {
		stored.Password = *u.Password
	}
	if u.Age != nil {
		stored.Age = *u.Age
	}
	stored.UpdatedAt = u.UpdatedAt
	r.s.users[id] = stored
	return cloneUser(stored), nil
}

func (r *MemoryUserRepository) DeleteWithTasks(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return ErrNotFound
	}
	for taskID, t := range r.s.tasks {
		if t.Owner == id {
			delete(r.s.tasks, taskID)
		}
	}
	delete(r.s.tokens, id)
	delete(r.s.users, id)
	return nil
}

func (r *MemoryUserRepository) AddToken(_ context.Context, id uuid.UUID, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return ErrNotFound
	}
	r.s.tokens[id] = append(r.s.tokens[id], token)
	return nil
}

func (r *MemoryUserRepository) RemoveToken(_ context.Context, id uuid.UUID, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	kept := r.s.tokens[id][:0:0]
	for _, t := range r.s.tokens[id] {
		if t != token {
			kept = append(kept, t)
		}
	}
	r.s.tokens[id] = kept
	return nil
}

func (r *MemoryUserRepository) RemoveAllTokens(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.tokens, id)
	return nil
}

func (r *MemoryUserRepository) Tokens(_ context.Context, id uuid.UUID) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return append([]string{}, r.s.tokens[id]...), nil
}

func (r *MemoryUserRepository) Avatar(_ context.Context, id uuid.UUID) ([]byte, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	if u.Avatar == nil {
		return nil, nil
	}
	return append([]byte(nil), u.Avatar...), nil
}

func (r *MemoryUserRepository) SetAvatar(_ context.Context, id uuid.UUID, data []byte) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return ErrNotFound
	}
	if data == nil {
		u.Avatar = nil
	} else {
		u.Avatar = append([]byte(nil), data...)
	}
	r.s.users[id] = u
	return nil
}

type MemoryTaskRepository struct{ s *MemoryStore }

var _ TaskRepository = (*MemoryTaskRepository)(nil)

func (r *MemoryTaskRepository) Create(_ context.Context, t *models.Task) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[t.Owner]; !ok {
		return ErrNotFound
	}
	r.s.tasks[t.ID] = *t
	return nil
}

func compareTasks(a, b models.Task, field string) int {
	switch field {
	case models.SortUpdatedAt:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case models.SortDescription:
		return strings.Compare(a.Description, b.Description)
	case models.SortCompleted:
		switch {
		case a.Completed == b.Completed:
			return 0
		case !a.Completed:
			return -1
		default:
			return 1
		}
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

func (r *MemoryTaskRepository) List(_ context.Context, owner uuid.UUID, q models.TaskQuery) ([]models.Task, error) {
	r.s.mu.RLock()
	tasks := []models.Task{}
	for _, t := range r.s.tasks {
		if t.Owner != owner {
			continue
		}
		if q.Completed != nil && t.Completed != *q.Completed {
			continue
		}
		tasks = append(tasks, t)
	}
	r.s.mu.RUnlock()

	_, known := sortColumns[q.SortBy]
	desc := known && q.Desc
	sort.Slice(tasks, func(i, j int) bool {
		c := compareTasks(tasks[i], tasks[j], q.SortBy)
		if c == 0 {
			return tasks[i].ID.String() < tasks[j].ID.String()
		}
		if desc {
			return c > 0
		}
		return c < 0
	})

	if q.Skip > 0 {
		if q.Skip >= len(tasks) {
			return []models.Task{}, nil
		}
		tasks = tasks[q.Skip:]
	}
	if q.Limit > 0 && q.Limit < len(tasks) {
		tasks = tasks[:q.Limit]
	}
	return tasks, nil
}

func (r *MemoryTaskRepository) FindOne(_ context.Context, id, owner uuid.UUID) (*models.Task, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.tasks[id]
	if !ok || t.Owner != owner {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (r *MemoryTaskRepository) Update(_ context.Context, id, owner uuid.UUID, u models.TaskUpdate) (*models.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.tasks[id]
	if !ok || stored.Owner != owner {
		return nil, ErrNotFound
	}
	if u.Description != nil {
		stored.Description = *u.Description
	}
	if u.Completed != nil {
		stored.Completed = *u.Completed
	}
	stored.UpdatedAt = u.UpdatedAt
	r.s.tasks[id] = stored
	return &stored, nil
}

func (r *MemoryTaskRepository) DeleteOne(_ context.Context, id, owner uuid.UUID) (*models.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tasks[id]
	if !ok || t.Owner != owner {
		return nil, ErrNotFound
	}
	delete(r.s.tasks, id)
	return &t, nil
}
