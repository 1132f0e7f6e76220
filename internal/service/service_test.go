package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"task-manager/internal/models"
	"task-manager/internal/repository"
	"task-manager/pkg/crypto"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type sentMail struct {
	kind  string
	email string
	name  string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *fakeMailer) SendWelcome(_ context.Context, email, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{"welcome", email, name})
	return nil
}

func (m *fakeMailer) SendCancellation(_ context.Context, email, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{"cancellation", email, name})
	return nil
}

type notification struct {
	owner uuid.UUID
	event string
	task  models.Task
}

type recordingNotifier struct {
	events []notification
}

func (n *recordingNotifier) NotifyTask(owner uuid.UUID, event string, task models.Task) {
	n.events = append(n.events, notification{owner, event, task})
}

type fixture struct {
	store    *repository.MemoryStore
	users    *CredentialStore
	auth     *TokenAuthenticator
	tasks    *TaskStore
	mailer   *fakeMailer
	notifier *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := repository.NewMemoryStore()
	hasher, err := crypto.NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)

	m := &fakeMailer{}
	users := NewCredentialStore(store.Users(), hasher, m, nil)
	users.dispatch = func(fn func()) { fn() }

	auth, err := NewTokenAuthenticator(store.Users(), "test-secret")
	require.NoError(t, err)

	n := &recordingNotifier{}
	return &fixture{
		store:    store,
		users:    users,
		auth:     auth,
		tasks:    NewTaskStore(store.Tasks(), n),
		mailer:   m,
		notifier: n,
	}
}

func (f *fixture) register(t *testing.T, name, email string) *models.User {
	t.Helper()
	user, err := f.users.Register(context.Background(), RegisterInput{
		Name:     name,
		Email:    email,
		Password: "MyPass777!",
	})
	require.NoError(t, err)
	return user
}

func (f *fixture) createTask(t *testing.T, owner uuid.UUID, description string, completed bool) *models.Task {
	t.Helper()
	task, err := f.tasks.Create(context.Background(), owner, patchOf(t, map[string]any{
		"description": description,
		"completed":   completed,
	}))
	require.NoError(t, err)
	return task
}

func patchOf(t *testing.T, fields map[string]any) Patch {
	t.Helper()
	raw, err := json.Marshal(fields)
	require.NoError(t, err)
	var p Patch
	require.NoError(t, json.Unmarshal(raw, &p))
	return p
}
