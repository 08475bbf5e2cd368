package memberauth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// DefaultResetTokenTTL is how long a password reset secret stays valid.
const DefaultResetTokenTTL = 10 * time.Minute

// ResetSecretManager issues and checks single use password reset secrets.
// The plaintext secret goes out to the member over email; only its sha256
// fingerprint is ever stored, so a database leak exposes nothing reusable.
type ResetSecretManager struct {
	window time.Duration
	now    func() time.Time
}

// ResetSecretOption configures a ResetSecretManager
type ResetSecretOption func(*ResetSecretManager)

// WithClock overrides the manager's clock, useful in tests
func WithClock(now func() time.Time) ResetSecretOption {
	return func(m *ResetSecretManager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewResetSecretManager creates a manager with the given validity window.
// A non positive window falls back to DefaultResetTokenTTL.
func NewResetSecretManager(window time.Duration, opts ...ResetSecretOption) *ResetSecretManager {
	if window <= 0 {
		window = DefaultResetTokenTTL
	}
	m := &ResetSecretManager{
		window: window,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Generate creates a fresh reset secret. It returns the plaintext secret to
// send to the member, the fingerprint to persist, and the absolute expiry.
func (m *ResetSecretManager) Generate() (plain, fingerprint string, expiresAt time.Time, err error) {
	buf := make([]byte, 32)
	if _, err = rand.Read(buf); err != nil {
		return "", "", time.Time{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate reset secret")
	}

	plain = hex.EncodeToString(buf)
	fingerprint = m.Fingerprint(plain)
	expiresAt = m.now().Add(m.window)

	return plain, fingerprint, expiresAt, nil
}

// Fingerprint derives the storable fingerprint of a plaintext secret.
func (m *ResetSecretManager) Fingerprint(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

// Validate checks a presented plaintext secret against the stored
// fingerprint and expiry. Every failure mode returns the same
// ErrResetTokenInvalid so a caller cannot tell a wrong secret from an
// expired one.
func (m *ResetSecretManager) Validate(presented, storedFingerprint string, storedExpiresAt *time.Time) error {
	if presented == "" || storedFingerprint == "" || storedExpiresAt == nil {
		return ErrResetTokenInvalid
	}

	got := m.Fingerprint(presented)
	if subtle.ConstantTimeCompare([]byte(got), []byte(storedFingerprint)) != 1 {
		return ErrResetTokenInvalid
	}

	// the expiry must be strictly in the future
	if !storedExpiresAt.After(m.now()) {
		return ErrResetTokenInvalid
	}

	return nil
}
