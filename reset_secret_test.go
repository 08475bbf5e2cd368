package memberauth_test

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/clubware/memberauth"
)

func TestResetSecretManager_Generate(t *testing.T) {
	m := memberauth.NewResetSecretManager(10 * time.Minute)

	plain, fingerprint, expiresAt, err := m.Generate()
	assert.NoError(t, err)

	t.Run("plaintext is 32 random bytes hex encoded", func(t *testing.T) {
		assert.Len(t, plain, 64)
		_, err := hex.DecodeString(plain)
		assert.NoError(t, err)
	})

	t.Run("fingerprint is the sha256 of the plaintext", func(t *testing.T) {
		sum := sha256.Sum256([]byte(plain))
		assert.Equal(t, hex.EncodeToString(sum[:]), fingerprint)
		assert.NotEqual(t, plain, fingerprint)
	})

	t.Run("expiry is one window from now", func(t *testing.T) {
		assert.WithinDuration(t, time.Now().Add(10*time.Minute), expiresAt, 5*time.Second)
	})

	t.Run("subsequent secrets are unique", func(t *testing.T) {
		plain2, fingerprint2, _, err := m.Generate()
		assert.NoError(t, err)
		assert.NotEqual(t, plain, plain2)
		assert.NotEqual(t, fingerprint, fingerprint2)
	})
}

func TestResetSecretManager_Validate(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := memberauth.NewResetSecretManager(
		10*time.Minute,
		memberauth.WithClock(func() time.Time { return now }),
	)

	plain, fingerprint, expiresAt, err := m.Generate()
	assert.NoError(t, err)

	t.Run("accepts the matching secret inside the window", func(t *testing.T) {
		err := m.Validate(plain, fingerprint, &expiresAt)
		assert.NoError(t, err)
	})

	t.Run("rejects the wrong secret", func(t *testing.T) {
		err := m.Validate("deadbeef", fingerprint, &expiresAt)
		assert.ErrorIs(t, err, memberauth.ErrResetTokenInvalid)
	})

	t.Run("rejects an expired secret with the same error", func(t *testing.T) {
		late := memberauth.NewResetSecretManager(
			10*time.Minute,
			memberauth.WithClock(func() time.Time { return now.Add(11 * time.Minute) }),
		)

		err := late.Validate(plain, fingerprint, &expiresAt)
		assert.ErrorIs(t, err, memberauth.ErrResetTokenInvalid)

		// a wrong secret and an expired one are indistinguishable
		wrongErr := late.Validate("deadbeef", fingerprint, &expiresAt)
		assert.Equal(t, err.Error(), wrongErr.Error())
	})

	t.Run("rejects empty inputs", func(t *testing.T) {
		assert.ErrorIs(t, m.Validate("", fingerprint, &expiresAt), memberauth.ErrResetTokenInvalid)
		assert.ErrorIs(t, m.Validate(plain, "", &expiresAt), memberauth.ErrResetTokenInvalid)
		assert.ErrorIs(t, m.Validate(plain, fingerprint, nil), memberauth.ErrResetTokenInvalid)
	})

	t.Run("exact expiry instant is rejected", func(t *testing.T) {
		// the expiry must be strictly in the future
		edge := memberauth.NewResetSecretManager(
			10*time.Minute,
			memberauth.WithClock(func() time.Time { return expiresAt }),
		)
		assert.ErrorIs(t, edge.Validate(plain, fingerprint, &expiresAt), memberauth.ErrResetTokenInvalid)
	})

	t.Run("one instant before expiry is valid", func(t *testing.T) {
		edge := memberauth.NewResetSecretManager(
			10*time.Minute,
			memberauth.WithClock(func() time.Time { return expiresAt.Add(-time.Nanosecond) }),
		)
		assert.NoError(t, edge.Validate(plain, fingerprint, &expiresAt))
	})
}

func TestResetSecretManager_Fingerprint(t *testing.T) {
	m := memberauth.NewResetSecretManager(0)

	t.Run("is deterministic", func(t *testing.T) {
		assert.Equal(t, m.Fingerprint("secret"), m.Fingerprint("secret"))
	})

	t.Run("differs per input", func(t *testing.T) {
		assert.NotEqual(t, m.Fingerprint("secret-a"), m.Fingerprint("secret-b"))
	})
}

func TestNewResetSecretManager_DefaultWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := memberauth.NewResetSecretManager(0, memberauth.WithClock(func() time.Time { return now }))

	_, _, expiresAt, err := m.Generate()
	assert.NoError(t, err)
	assert.Equal(t, now.Add(memberauth.DefaultResetTokenTTL), expiresAt)
}
