package crypto

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrMismatch is returned when a password does not match its hash.
var ErrMismatch = errors.New("password does not match")

// PasswordHasher hashes and checks passwords with bcrypt.
type PasswordHasher struct {
	cost int
	// hash dummy supaya email yang tidak terdaftar tetap membayar biaya bcrypt
	dummy []byte
}

func NewPasswordHasher(cost int) (*PasswordHasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, bcrypt.InvalidCostError(cost)
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), cost)
	if err != nil {
		return nil, err
	}
	return &PasswordHasher{cost: cost, dummy: dummy}, nil
}

func (h *PasswordHasher) Hash(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Compare returns nil when plain matches hashed. An empty hash is compared
// against a dummy so the call costs the same as a real comparison.
func (h *PasswordHasher) Compare(hashed, plain string) error {
	target := []byte(hashed)
	if hashed == "" {
		target = h.dummy
	}
	err := bcrypt.CompareHashAndPassword(target, []byte(plain))
	if err != nil || hashed == "" {
		return ErrMismatch
	}
	return nil
}
