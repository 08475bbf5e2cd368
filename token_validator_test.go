package memberauth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clubware/memberauth"
)

func staticClaims(uid string) memberauth.AuthClaims {
	return &memberauth.JWTClaims{UID: uid}
}

func TestTokenValidatorFunc(t *testing.T) {
	t.Run("delegates to the function", func(t *testing.T) {
		v := memberauth.TokenValidatorFunc(func(raw string) (memberauth.AuthClaims, error) {
			return staticClaims("user-1"), nil
		})

		claims, err := v.Validate("anything")
		assert.NoError(t, err)
		assert.Equal(t, "user-1", claims.UserID())
	})

	t.Run("nil func fails closed", func(t *testing.T) {
		var v memberauth.TokenValidatorFunc

		claims, err := v.Validate("anything")
		assert.Nil(t, claims)
		assert.ErrorIs(t, err, memberauth.ErrTokenMalformed)
	})
}

func TestMultiTokenValidator(t *testing.T) {
	accept := memberauth.TokenValidatorFunc(func(raw string) (memberauth.AuthClaims, error) {
		return staticClaims("accepted"), nil
	})
	malformed := memberauth.TokenValidatorFunc(func(raw string) (memberauth.AuthClaims, error) {
		return nil, memberauth.ErrTokenMalformed
	})
	expired := memberauth.TokenValidatorFunc(func(raw string) (memberauth.AuthClaims, error) {
		return nil, memberauth.ErrTokenExpired
	})

	t.Run("first success wins", func(t *testing.T) {
		v := memberauth.NewMultiTokenValidator(accept, malformed)

		claims, err := v.Validate("token")
		assert.NoError(t, err)
		assert.Equal(t, "accepted", claims.UserID())
	})

	t.Run("malformed means try the next validator", func(t *testing.T) {
		v := memberauth.NewMultiTokenValidator(malformed, accept)

		claims, err := v.Validate("token")
		assert.NoError(t, err)
		assert.Equal(t, "accepted", claims.UserID())
	})

	t.Run("non-malformed errors stop the chain", func(t *testing.T) {
		v := memberauth.NewMultiTokenValidator(expired, accept)

		claims, err := v.Validate("token")
		assert.Nil(t, claims)
		assert.ErrorIs(t, err, memberauth.ErrTokenExpired)
	})

	t.Run("all malformed returns the last error", func(t *testing.T) {
		v := memberauth.NewMultiTokenValidator(malformed, malformed)

		claims, err := v.Validate("token")
		assert.Nil(t, claims)
		assert.True(t, memberauth.IsMalformedError(err))
	})

	t.Run("empty validator set fails closed", func(t *testing.T) {
		v := memberauth.NewMultiTokenValidator(nil, nil)

		claims, err := v.Validate("token")
		assert.Nil(t, claims)
		assert.ErrorIs(t, err, memberauth.ErrTokenMalformed)
	})
}
