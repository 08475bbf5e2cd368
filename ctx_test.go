package memberauth_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/clubware/memberauth"
)

func TestUserContext(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		user := &memberauth.User{ID: uuid.New(), Email: "member@example.com"}

		ctx := memberauth.WithContext(context.Background(), user)

		got, ok := memberauth.FromContext(ctx)
		assert.True(t, ok)
		assert.Equal(t, user, got)
	})

	t.Run("missing user", func(t *testing.T) {
		got, ok := memberauth.FromContext(context.Background())
		assert.False(t, ok)
		assert.Nil(t, got)
	})
}

func TestClaimsContext(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		claims := &memberauth.JWTClaims{UID: "user-1", UserRole: memberauth.RoleAdmin}

		ctx := memberauth.WithClaimsContext(context.Background(), claims)

		got, ok := memberauth.GetClaims(ctx)
		assert.True(t, ok)
		assert.Equal(t, "user-1", got.UserID())
		assert.True(t, got.HasRole(memberauth.RoleAdmin))
	})

	t.Run("missing claims", func(t *testing.T) {
		got, ok := memberauth.GetClaims(context.Background())
		assert.False(t, ok)
		assert.Nil(t, got)
	})
}
