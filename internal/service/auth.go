package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"task-manager/internal/apperror"
	"task-manager/internal/models"
	"task-manager/internal/repository"
	"task-manager/pkg/logger"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TokenAuthenticator issues and verifies bearer session tokens. A token is
// valid only while it is stored in its user's token collection.
type TokenAuthenticator struct {
	users  repository.UserRepository
	secret []byte
	now    func() time.Time
}

type tokenClaims struct {
	UserID string `json:"_id"`
	jwt.RegisteredClaims
}

func NewTokenAuthenticator(users repository.UserRepository, secret string) (*TokenAuthenticator, error) {
	if secret == "" {
		return nil, errors.New("token secret must not be empty")
	}
	return &TokenAuthenticator{users: users, secret: []byte(secret), now: time.Now}, nil
}

// Issue signs a new token for userID and appends it to the user's collection.
func (a *TokenAuthenticator) Issue(ctx context.Context, userID uuid.UUID) (string, error) {
	claims := tokenClaims{
		UserID: userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(a.now()),
			// jti membuat dua login di detik yang sama tetap beda token
			ID: uuid.NewString(),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	if err := a.users.AddToken(ctx, userID, token); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", apperror.ErrNotFound
		}
		return "", apperror.Storage("add token", err)
	}
	return token, nil
}

// Verify checks the signature, then requires the exact token to still be in
// the user's collection. Every failure is ErrUnauthenticated.
func (a *TokenAuthenticator) Verify(ctx context.Context, token string) (*models.User, error) {
	var claims tokenClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))
	if err != nil || !parsed.Valid {
		return nil, apperror.ErrUnauthenticated
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, apperror.ErrUnauthenticated
	}

	user, err := a.users.FindByToken(ctx, userID, token)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.ErrUnauthenticated
	}
	if err != nil {
		return nil, apperror.Storage("find user by token", err)
	}
	return user, nil
}

// Revoke removes a single session token.
func (a *TokenAuthenticator) Revoke(ctx context.Context, user *models.User, token string) error {
	if err := a.users.RemoveToken(ctx, user.ID, token); err != nil {
		return apperror.Storage("remove token", err)
	}
	logger.AuditLogger.Info("Session revoked", zap.String("user_id", user.ID.String()))
	return nil
}

// RevokeAll clears every session of user.
func (a *TokenAuthenticator) RevokeAll(ctx context.Context, user *models.User) error {
	if err := a.users.RemoveAllTokens(ctx, user.ID); err != nil {
		return apperror.Storage("remove tokens", err)
	}
	logger.AuditLogger.Info("All sessions revoked", zap.String("user_id", user.ID.String()))
	return nil
}
