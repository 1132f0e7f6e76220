package service

import (
	"context"
	"errors"
	"testing"

	"task-manager/internal/apperror"
	"task-manager/internal/models"
	"task-manager/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func violationFields(t *testing.T, err error) []string {
	t.Helper()
	var verr *apperror.ValidationError
	require.True(t, errors.As(err, &verr), "expected validation error, got %v", err)
	fields := make([]string, 0, len(verr.Violations))
	for _, v := range verr.Violations {
		fields = append(fields, v.Field)
	}
	return fields
}

func TestRegisterStoresHashedPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.users.Register(ctx, RegisterInput{
		Name:     "  Andrew ",
		Email:    " Andrew@Example.COM ",
		Password: "MyPass777!",
		Age:      27,
	})
	require.NoError(t, err)

	assert.Equal(t, "Andrew", user.Name)
	assert.Equal(t, "andrew@example.com", user.Email)
	assert.NotEqual(t, "MyPass777!", user.Password)
	assert.NotEmpty(t, user.Password)

	stored, err := f.store.Users().FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "MyPass777!", stored.Password)

	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, sentMail{"welcome", "andrew@example.com", "Andrew"}, f.mailer.sent[0])
}

func TestRegisterReportsEveryViolation(t *testing.T) {
	f := newFixture(t)

	_, err := f.users.Register(context.Background(), RegisterInput{
		Email:    "not-an-email",
		Password: "short",
		Age:      -1,
	})
	assert.ElementsMatch(t, []string{"name", "email", "password", "age"}, violationFields(t, err))
	assert.Empty(t, f.mailer.sent)
}

func TestRegisterRejectsPasswordContainingPassword(t *testing.T) {
	f := newFixture(t)

	_, err := f.users.Register(context.Background(), RegisterInput{
		Name:     "Mike",
		Email:    "mike@example.com",
		Password: "myPASSWORD123",
	})
	assert.Equal(t, []string{"password"}, violationFields(t, err))
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	f.register(t, "Jess", "jess@example.com")

	_, err := f.users.Register(context.Background(), RegisterInput{
		Name:     "Other",
		Email:    "JESS@example.com",
		Password: "Another123",
	})
	assert.Equal(t, []string{"email"}, violationFields(t, err))
}

func TestFindByCredentials(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.register(t, "Jess", "jess@example.com")

	found, err := f.users.FindByCredentials(ctx, "Jess@Example.com", "MyPass777!")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	_, err = f.users.FindByCredentials(ctx, "jess@example.com", "wrong-pass")
	assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)

	_, err = f.users.FindByCredentials(ctx, "nobody@example.com", "MyPass777!")
	assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.register(t, "Jess", "jess@example.com")

	updated, err := f.users.UpdateProfile(ctx, user, patchOf(t, map[string]any{
		"name":     "Jessica",
		"password": "NewSecret99",
		"age":      31,
	}))
	require.NoError(t, err)
	assert.Equal(t, "Jessica", updated.Name)
	assert.Equal(t, 31, updated.Age)
	assert.NotEqual(t, user.Password, updated.Password)
	assert.NotEqual(t, "NewSecret99", updated.Password)

	_, err = f.users.FindByCredentials(ctx, "jess@example.com", "NewSecret99")
	assert.NoError(t, err)
	_, err = f.users.FindByCredentials(ctx, "jess@example.com", "MyPass777!")
	assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)
}

func TestUpdateProfileRejectsUnknownFieldsWithoutChanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.register(t, "Jess", "jess@example.com")

	_, err := f.users.UpdateProfile(ctx, user, patchOf(t, map[string]any{
		"name":   "Changed",
		"tokens": []string{"forged"},
		"_id":    uuid.NewString(),
	}))
	assert.Equal(t, []string{"_id", "tokens"}, violationFields(t, err))

	stored, err := f.store.Users().FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jess", stored.Name)
}

func TestUpdateProfileValidatesValues(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "Taken", "taken@example.com")
	user := f.register(t, "Jess", "jess@example.com")

	_, err := f.users.UpdateProfile(ctx, user, patchOf(t, map[string]any{
		"age":   "old",
		"email": "taken@example.com",
	}))
	assert.ElementsMatch(t, []string{"age", "email"}, violationFields(t, err))

	_, err = f.users.UpdateProfile(ctx, user, patchOf(t, map[string]any{"name": "   "}))
	assert.Equal(t, []string{"name"}, violationFields(t, err))
}

func TestDeleteAccountRemovesOnlyOwnTasks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "Alice", "alice@example.com")
	bob := f.register(t, "Bob", "bob@example.com")

	aliceTask := f.createTask(t, alice.ID, "alice task", false)
	f.createTask(t, bob.ID, "bob task 1", false)
	f.createTask(t, bob.ID, "bob task 2", true)

	require.NoError(t, f.users.DeleteAccount(ctx, bob))

	_, err := f.store.Users().FindByID(ctx, bob.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	bobTasks, err := f.tasks.List(ctx, bob.ID, models.TaskQuery{})
	require.NoError(t, err)
	assert.Empty(t, bobTasks)

	got, err := f.tasks.GetByID(ctx, alice.ID, aliceTask.ID)
	require.NoError(t, err)
	assert.Equal(t, aliceTask.ID, got.ID)

	assert.Equal(t, "cancellation", f.mailer.sent[len(f.mailer.sent)-1].kind)

	assert.ErrorIs(t, f.users.DeleteAccount(ctx, bob), apperror.ErrNotFound)
}

func TestAvatarLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.register(t, "Jess", "jess@example.com")

	_, err := f.users.Avatar(ctx, user.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	require.NoError(t, f.users.SetAvatar(ctx, user, []byte("png-bytes")))
	data, err := f.users.Avatar(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)

	require.NoError(t, f.users.DeleteAvatar(ctx, user))
	_, err = f.users.Avatar(ctx, user.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = f.users.Avatar(ctx, uuid.New())
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

type mapCache struct {
	data map[uuid.UUID][]byte
}

func (c *mapCache) Get(_ context.Context, id uuid.UUID) ([]byte, bool, error) {
	data, ok := c.data[id]
	return data, ok, nil
}

func (c *mapCache) Set(_ context.Context, id uuid.UUID, data []byte) error {
	c.data[id] = data
	return nil
}

func (c *mapCache) Delete(_ context.Context, id uuid.UUID) error {
	delete(c.data, id)
	return nil
}

func TestAvatarReadThroughCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := &mapCache{data: map[uuid.UUID][]byte{}}
	f.users.avatars = c
	user := f.register(t, "Jess", "jess@example.com")

	require.NoError(t, f.users.SetAvatar(ctx, user, []byte("v1")))
	_, err := f.users.Avatar(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), c.data[user.ID])

	// a new upload must not be hidden by the cached copy
	require.NoError(t, f.users.SetAvatar(ctx, user, []byte("v2")))
	assert.NotContains(t, c.data, user.ID)
	data, err := f.users.Avatar(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), data)

	require.NoError(t, f.users.DeleteAccount(ctx, user))
	assert.NotContains(t, c.data, user.ID)
}
