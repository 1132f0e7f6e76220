package service

import (
	"context"
	"testing"
	"time"

	"task-manager/internal/apperror"
	"task-manager/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTask(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.register(t, "Jess", "jess@example.com")

	task, err := f.tasks.Create(ctx, user.ID, patchOf(t, map[string]any{"description": "  Buy milk "}))
	require.NoError(t, err)
	assert.Equal(t, "Buy milk", task.Description)
	assert.False(t, task.Completed)
	assert.Equal(t, user.ID, task.Owner)
	assert.NotEqual(t, uuid.Nil, task.ID)

	require.Len(t, f.notifier.events, 1)
	assert.Equal(t, EventTaskCreated, f.notifier.events[0].event)
	assert.Equal(t, user.ID, f.notifier.events[0].owner)
}

func TestCreateTaskValidation(t *testing.T) {
	f := newFixture(t)
	user := f.register(t, "Jess", "jess@example.com")
	other := uuid.New()

	cases := []struct {
		name   string
		fields map[string]any
		want   []string
	}{
		{"missing description", map[string]any{"completed": true}, []string{"description"}},
		{"blank description", map[string]any{"description": "   "}, []string{"description"}},
		{"wrong types", map[string]any{"description": 42, "completed": "yes"}, []string{"description", "completed"}},
		{"owner in body", map[string]any{"description": "x", "owner": other.String()}, []string{"owner"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.tasks.Create(context.Background(), user.ID, patchOf(t, tc.fields))
			assert.ElementsMatch(t, tc.want, violationFields(t, err))
		})
	}
	assert.Empty(t, f.notifier.events)
}

func TestTaskOwnershipIsolation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "Alice", "alice@example.com")
	bob := f.register(t, "Bob", "bob@example.com")
	task := f.createTask(t, alice.ID, "alice only", false)

	_, err := f.tasks.GetByID(ctx, bob.ID, task.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = f.tasks.Update(ctx, bob.ID, task.ID, patchOf(t, map[string]any{"completed": true}))
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = f.tasks.DeleteByID(ctx, bob.ID, task.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	// the same answer as for an id that never existed
	_, err = f.tasks.GetByID(ctx, bob.ID, uuid.New())
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	got, err := f.tasks.GetByID(ctx, alice.ID, task.ID)
	require.NoError(t, err)
	assert.False(t, got.Completed)
}

func TestUpdateTask(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.register(t, "Jess", "jess@example.com")
	task := f.createTask(t, user.ID, "write tests", false)

	updated, err := f.tasks.Update(ctx, user.ID, task.ID, patchOf(t, map[string]any{"completed": true}))
	require.NoError(t, err)
	assert.True(t, updated.Completed)
	assert.Equal(t, "write tests", updated.Description)
	assert.Equal(t, EventTaskUpdated, f.notifier.events[len(f.notifier.events)-1].event)

	unchanged, err := f.tasks.Update(ctx, user.ID, task.ID, Patch{})
	require.NoError(t, err)
	assert.Equal(t, updated.UpdatedAt, unchanged.UpdatedAt)
}

func TestUpdateTaskWritesOnlyPatchedFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.register(t, "Jess", "jess@example.com")
	task := f.createTask(t, user.ID, "write tests", false)

	_, err := f.tasks.Update(ctx, user.ID, task.ID, patchOf(t, map[string]any{"description": "write more tests"}))
	require.NoError(t, err)
	_, err = f.tasks.Update(ctx, user.ID, task.ID, patchOf(t, map[string]any{"completed": true}))
	require.NoError(t, err)

	got, err := f.tasks.GetByID(ctx, user.ID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "write more tests", got.Description)
	assert.True(t, got.Completed)
}

func TestUpdateTaskRejectsOwnerChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "Alice", "alice@example.com")
	bob := f.register(t, "Bob", "bob@example.com")
	task := f.createTask(t, alice.ID, "keep me", false)

	_, err := f.tasks.Update(ctx, alice.ID, task.ID, patchOf(t, map[string]any{
		"owner":     bob.ID.String(),
		"completed": true,
	}))
	assert.Equal(t, []string{"owner"}, violationFields(t, err))

	got, err := f.tasks.GetByID(ctx, alice.ID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.Owner)
	assert.False(t, got.Completed)

	// validation runs before the lookup, so a foreign id still yields 400
	_, err = f.tasks.Update(ctx, bob.ID, task.ID, patchOf(t, map[string]any{"_id": "x"}))
	assert.Equal(t, []string{"_id"}, violationFields(t, err))
}

func TestDeleteTask(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.register(t, "Jess", "jess@example.com")
	task := f.createTask(t, user.ID, "temporary", false)

	deleted, err := f.tasks.DeleteByID(ctx, user.ID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, deleted.ID)

	_, err = f.tasks.DeleteByID(ctx, user.ID, task.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestListTasks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "Alice", "alice@example.com")
	bob := f.register(t, "Bob", "bob@example.com")

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, d := range []string{"c", "a", "d", "b"} {
		at := base.Add(time.Duration(i) * time.Minute)
		f.tasks.now = func() time.Time { return at }
		f.createTask(t, alice.ID, d, i%2 == 0)
	}
	f.createTask(t, bob.ID, "bob", true)

	descriptions := func(tasks []models.Task) []string {
		out := make([]string, 0, len(tasks))
		for _, task := range tasks {
			assert.Equal(t, alice.ID, task.Owner)
			out = append(out, task.Description)
		}
		return out
	}
	yes, no := true, false

	cases := []struct {
		name  string
		query models.TaskQuery
		want  []string
	}{
		{"default order is creation", models.TaskQuery{}, []string{"c", "a", "d", "b"}},
		{"completed only", models.TaskQuery{Completed: &yes}, []string{"c", "d"}},
		{"incomplete only", models.TaskQuery{Completed: &no}, []string{"a", "b"}},
		{"sort by description", models.TaskQuery{SortBy: models.SortDescription}, []string{"a", "b", "c", "d"}},
		{"sort desc", models.TaskQuery{SortBy: models.SortCreatedAt, Desc: true}, []string{"b", "d", "a", "c"}},
		{"paginate", models.TaskQuery{SortBy: models.SortDescription, Limit: 2, Skip: 1}, []string{"b", "c"}},
		{"skip past end", models.TaskQuery{Skip: 10}, []string{}},
		{"unknown sort key", models.TaskQuery{SortBy: "owner", Desc: true}, []string{"c", "a", "d", "b"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tasks, err := f.tasks.List(ctx, alice.ID, tc.query)
			require.NoError(t, err)
			assert.Equal(t, tc.want, descriptions(tasks))
		})
	}

	none, err := f.tasks.List(ctx, uuid.New(), models.TaskQuery{})
	require.NoError(t, err)
	assert.Empty(t, none)
}
