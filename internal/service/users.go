package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"task-manager/internal/apperror"
	"task-manager/internal/cache"
	"task-manager/internal/models"
	"task-manager/internal/repository"
	"task-manager/pkg/crypto"
	"task-manager/pkg/logger"
	"task-manager/pkg/mailer"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const mailTimeout = 10 * time.Second

// Fields a client may change through UpdateProfile.
var profileFields = []string{"name", "email", "password", "age"}

type RegisterInput struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=7,nopassword"`
	Age      int    `json:"age" validate:"gte=0"`
}

// profile is the post-update state checked before anything is persisted.
type profile struct {
	Name     string  `json:"name" validate:"required"`
	Email    string  `json:"email" validate:"required,email"`
	Password *string `json:"password" validate:"omitempty,min=7,nopassword"`
	Age      int     `json:"age" validate:"gte=0"`
}

// CredentialStore owns user records: registration, login lookup, profile
// changes, avatar bytes and account deletion.
type CredentialStore struct {
	users   repository.UserRepository
	hasher  *crypto.PasswordHasher
	mailer  mailer.Mailer
	avatars cache.AvatarCache
	now     func() time.Time
	// dispatch runs post-commit side effects (email). Replaced in tests.
	dispatch func(func())
}

func NewCredentialStore(users repository.UserRepository, hasher *crypto.PasswordHasher, m mailer.Mailer, avatars cache.AvatarCache) *CredentialStore {
	if avatars == nil {
		avatars = cache.Noop{}
	}
	return &CredentialStore{
		users:    users,
		hasher:   hasher,
		mailer:   m,
		avatars:  avatars,
		now:      func() time.Time { return time.Now().UTC() },
		dispatch: func(fn func()) { go fn() },
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register validates in, hashes the password and stores the new user.
func (s *CredentialStore) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	in.Password = strings.TrimSpace(in.Password)

	verr := &apperror.ValidationError{}
	if err := validateStruct(verr, in); err != nil {
		return nil, err
	}
	if in.Email != "" {
		if err := s.checkEmailFree(ctx, verr, in.Email, uuid.Nil); err != nil {
			return nil, err
		}
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	hashed, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &models.User{
		ID:        uuid.New(),
		Name:      in.Name,
		Email:     in.Email,
		Password:  hashed,
		Age:       in.Age,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, apperror.NewValidationError("email", "is already registered")
		}
		return nil, apperror.Storage("create user", err)
	}

	logger.AuditLogger.Info("User registered", zap.String("user_id", user.ID.String()))
	s.sendMail("welcome", func(ctx context.Context) error {
		return s.mailer.SendWelcome(ctx, user.Email, user.Name)
	})
	return user, nil
}

func (s *CredentialStore) checkEmailFree(ctx context.Context, verr *apperror.ValidationError, email string, self uuid.UUID) error {
	existing, err := s.users.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil
	case err != nil:
		return apperror.Storage("find user by email", err)
	case existing.ID != self:
		verr.Add("email", "is already registered")
	}
	return nil
}

// FindByCredentials returns ErrInvalidCredentials for an unknown email and a
// wrong password alike. Both paths run one bcrypt comparison.
func (s *CredentialStore) FindByCredentials(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.Storage("find user by email", err)
	}

	hashed := ""
	if user != nil {
		hashed = user.Password
	}
	if err := s.hasher.Compare(hashed, strings.TrimSpace(password)); err != nil {
		logger.SecurityLogger.Warn("Failed login attempt")
		return nil, apperror.ErrInvalidCredentials
	}
	return user, nil
}

// UpdateProfile applies an allow-listed partial update. All fields are decoded
// and validated before the user is touched; a new password is re-hashed.
// Only the fields present in patch are written.
func (s *CredentialStore) UpdateProfile(ctx context.Context, user *models.User, patch Patch) (*models.User, error) {
	verr := &apperror.ValidationError{}
	patch.checkAllowed(verr, profileFields...)

	next := profile{Name: user.Name, Email: user.Email, Age: user.Age}
	update := models.UserUpdate{}
	var name, email, password string
	var age int
	if patch.decode(verr, "name", &name, "a string") {
		next.Name = strings.TrimSpace(name)
		update.Name = &next.Name
	}
	if patch.decode(verr, "email", &email, "a string") {
		next.Email = normalizeEmail(email)
		update.Email = &next.Email
	}
	if patch.decode(verr, "password", &password, "a string") {
		password = strings.TrimSpace(password)
		next.Password = &password
	}
	if patch.decode(verr, "age", &age, "an integer") {
		next.Age = age
		update.Age = &next.Age
	}

	if err := validateStruct(verr, next); err != nil {
		return nil, err
	}
	if next.Email != user.Email && next.Email != "" {
		if err := s.checkEmailFree(ctx, verr, next.Email, user.ID); err != nil {
			return nil, err
		}
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	if next.Password != nil {
		hashed, err := s.hasher.Hash(*next.Password)
		if err != nil {
			return nil, err
		}
		update.Password = &hashed
	}
	update.UpdatedAt = s.now()

	updated, err := s.users.Update(ctx, user.ID, update)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateEmail):
			return nil, apperror.NewValidationError("email", "is already registered")
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperror.ErrNotFound
		}
		return nil, apperror.Storage("update user", err)
	}

	logger.AuditLogger.Info("User updated", zap.String("user_id", user.ID.String()))
	return updated, nil
}

// DeleteAccount removes the user together with every task it owns.
func (s *CredentialStore) DeleteAccount(ctx context.Context, user *models.User) error {
	if err := s.users.DeleteWithTasks(ctx, user.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.ErrNotFound
		}
		return apperror.Storage("delete user", err)
	}
	s.forgetAvatar(ctx, user.ID)

	logger.AuditLogger.Info("User deleted", zap.String("user_id", user.ID.String()))
	s.sendMail("cancellation", func(ctx context.Context) error {
		return s.mailer.SendCancellation(ctx, user.Email, user.Name)
	})
	return nil
}

// SetAvatar stores an already normalized PNG.
func (s *CredentialStore) SetAvatar(ctx context.Context, user *models.User, png []byte) error {
	if err := s.users.SetAvatar(ctx, user.ID, png); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.ErrNotFound
		}
		return apperror.Storage("set avatar", err)
	}
	s.forgetAvatar(ctx, user.ID)
	return nil
}

func (s *CredentialStore) DeleteAvatar(ctx context.Context, user *models.User) error {
	if err := s.users.SetAvatar(ctx, user.ID, nil); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.ErrNotFound
		}
		return apperror.Storage("delete avatar", err)
	}
	s.forgetAvatar(ctx, user.ID)
	return nil
}

// Avatar returns the PNG of user id, or ErrNotFound when there is no such
// user or the user has no avatar.
func (s *CredentialStore) Avatar(ctx context.Context, id uuid.UUID) ([]byte, error) {
	if data, ok, err := s.avatars.Get(ctx, id); err == nil && ok {
		return data, nil
	} else if err != nil {
		logger.SystemLogger.Warn("Avatar cache read failed", zap.Error(err))
	}

	data, err := s.users.Avatar(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.ErrNotFound
	}
	if err != nil {
		return nil, apperror.Storage("get avatar", err)
	}
	if len(data) == 0 {
		return nil, apperror.ErrNotFound
	}

	if err := s.avatars.Set(ctx, id, data); err != nil {
		logger.SystemLogger.Warn("Avatar cache write failed", zap.Error(err))
	}
	return data, nil
}

func (s *CredentialStore) forgetAvatar(ctx context.Context, id uuid.UUID) {
	if err := s.avatars.Delete(ctx, id); err != nil {
		logger.SystemLogger.Warn("Avatar cache invalidation failed", zap.Error(err))
	}
}

// sendMail runs fn outside the request; delivery errors are logged only.
func (s *CredentialStore) sendMail(kind string, fn func(ctx context.Context) error) {
	s.dispatch(func() {
		ctx, cancel := context.WithTimeout(context.Background(), mailTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			logger.ErrorLogger.Error("Sending email failed", zap.String("kind", kind), zap.Error(err))
		}
	})
}
