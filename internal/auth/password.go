package auth

import (
	"judgecore/pkg/apperr"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher hashes and compares passwords for the façade's register
// and login endpoints, at one configured bcrypt cost.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher builds a hasher at the given bcrypt cost.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &PasswordHasher{cost: cost}
}

// Hash bcrypt-hashes a plaintext password.
func (h *PasswordHasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", apperr.Wrapf(err, apperr.InternalServerError, "hash password failed")
	}
	return string(hashed), nil
}

// Verify reports whether password matches the stored bcrypt hash.
func (h *PasswordHasher) Verify(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
