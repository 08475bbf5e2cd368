package memberauth

import (
	"crypto/rand"
	"encoding/hex"

	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the work factor used for all stored password hashes.
const DefaultBcryptCost = 14

// HashPassword generates a bcrypt hash from the given plaintext password.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	bytes, err := bcrypt.GenerateFromPassword([]byte(password), DefaultBcryptCost)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	return string(bytes), nil
}

// ComparePasswordAndHash verifies a plaintext password against a stored
// bcrypt hash. Any mismatch returns ErrMismatchedHashAndPassword so callers
// surface a single undifferentiated credential failure.
func ComparePasswordAndHash(password, hash string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err != nil {
		return ErrMismatchedHashAndPassword
	}
	return nil
}

// RandomPasswordHash returns the hash of a random password. Used to give
// provisioned accounts an unguessable credential until the member sets one.
func RandomPasswordHash() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read random bytes")
	}
	return HashPassword(hex.EncodeToString(buf))
}
