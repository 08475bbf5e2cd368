package memberauth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/clubware/memberauth"
)

// TestIdentity is a simple implementation of Identity interface for testing
type TestIdentity struct {
	id    string
	email string
	role  string
}

func (t TestIdentity) ID() string    { return t.id }
func (t TestIdentity) Email() string { return t.email }
func (t TestIdentity) Role() string  { return t.role }

type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) VerifyIdentity(ctx context.Context, email, password string) (memberauth.Identity, error) {
	args := m.Called(ctx, email, password)
	if identity, ok := args.Get(0).(memberauth.Identity); ok {
		return identity, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockIdentityProvider) FindIdentityByID(ctx context.Context, id string) (memberauth.Identity, error) {
	args := m.Called(ctx, id)
	if identity, ok := args.Get(0).(memberauth.Identity); ok {
		return identity, args.Error(1)
	}
	return nil, args.Error(1)
}

func testConfig() memberauth.Config {
	return memberauth.Config{
		SigningKey:      "test-signing-key",
		TokenExpiration: 24,
		Issuer:          "test-issuer",
		Audience:        []string{"test:audience"},
	}
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	mockProvider := new(MockIdentityProvider)

	authenticator := memberauth.NewAuthenticator(mockProvider, testConfig())

	t.Run("Successful login", func(t *testing.T) {
		identity := TestIdentity{
			id:    uuid.New().String(),
			email: "test@example.com",
			role:  memberauth.RoleAdmin,
		}

		mockProvider.On("VerifyIdentity", ctx, "test@example.com", "password123").
			Return(identity, nil).Once()

		token, got, err := authenticator.Login(ctx, "test@example.com", "password123")

		assert.NoError(t, err)
		assert.NotEmpty(t, token)
		require.NotNil(t, got)
		assert.Equal(t, identity.ID(), got.ID())

		parsedToken, err := jwt.ParseWithClaims(token, &memberauth.JWTClaims{}, func(t *jwt.Token) (any, error) {
			return []byte("test-signing-key"), nil
		})

		assert.NoError(t, err)
		assert.True(t, parsedToken.Valid)

		claims, ok := parsedToken.Claims.(*memberauth.JWTClaims)
		assert.True(t, ok)
		assert.Equal(t, identity.ID(), claims.Subject())
		assert.Equal(t, "test-issuer", claims.RegisteredClaims.Issuer)
		assert.Equal(t, jwt.ClaimStrings{"test:audience"}, claims.RegisteredClaims.Audience)
		assert.NotEmpty(t, claims.RegisteredClaims.ID)

		assert.Equal(t, "test@example.com", claims.UserEmail)
		assert.Equal(t, memberauth.RoleAdmin, claims.UserRole)
	})

	t.Run("Failed login - invalid credentials", func(t *testing.T) {
		mockProvider.On("VerifyIdentity", ctx, "bad@example.com", "wrongpassword").
			Return(nil, memberauth.ErrMismatchedHashAndPassword).Once()

		token, got, err := authenticator.Login(ctx, "bad@example.com", "wrongpassword")

		assert.ErrorIs(t, err, memberauth.ErrMismatchedHashAndPassword)
		assert.Empty(t, token)
		assert.Nil(t, got)
	})

	t.Run("Failed login - identity not found", func(t *testing.T) {
		mockProvider.On("VerifyIdentity", ctx, "unknown@example.com", "password123").
			Return(nil, memberauth.ErrIdentityNotFound).Once()

		token, got, err := authenticator.Login(ctx, "unknown@example.com", "password123")

		assert.Error(t, err)
		assert.Empty(t, token)
		assert.Nil(t, got)
		assert.Contains(t, err.Error(), "identity not found")
	})
}

func TestIssue(t *testing.T) {
	mockProvider := new(MockIdentityProvider)
	authenticator := memberauth.NewAuthenticator(mockProvider, testConfig())

	t.Run("mints a token for a verified identity", func(t *testing.T) {
		identity := TestIdentity{
			id:    uuid.New().String(),
			email: "member@example.com",
			role:  memberauth.RoleUser,
		}

		token, err := authenticator.Issue(identity)
		require.NoError(t, err)
		require.NotEmpty(t, token)

		claims, err := authenticator.ClaimsFromToken(token)
		require.NoError(t, err)
		assert.Equal(t, identity.ID(), claims.UserID())
		assert.Equal(t, "member@example.com", claims.Email())
		assert.Equal(t, memberauth.RoleUser, claims.Role())
	})

	t.Run("rejects a nil identity", func(t *testing.T) {
		token, err := authenticator.Issue(nil)
		assert.ErrorIs(t, err, memberauth.ErrIdentityNotFound)
		assert.Empty(t, token)
	})
}

func TestClaimsFromToken(t *testing.T) {
	mockProvider := new(MockIdentityProvider)
	authenticator := memberauth.NewAuthenticator(mockProvider, testConfig())

	identity := TestIdentity{
		id:    uuid.New().String(),
		email: "member@example.com",
		role:  memberauth.RoleSecretary,
	}

	token, err := authenticator.Issue(identity)
	require.NoError(t, err)

	t.Run("Valid token", func(t *testing.T) {
		claims, err := authenticator.ClaimsFromToken(token)
		assert.NoError(t, err)
		require.NotNil(t, claims)
		assert.Equal(t, identity.ID(), claims.UserID())
		assert.True(t, claims.HasRole(memberauth.RoleSecretary))
		assert.False(t, claims.HasRole(memberauth.RoleAdmin))
	})

	t.Run("Invalid token signature", func(t *testing.T) {
		claims, err := authenticator.ClaimsFromToken(token + "tampered")
		assert.Error(t, err)
		assert.Nil(t, claims)
	})

	t.Run("Custom validator wins", func(t *testing.T) {
		custom := memberauth.TokenValidatorFunc(func(raw string) (memberauth.AuthClaims, error) {
			return nil, errors.New("custom validator rejected")
		})

		auther := memberauth.NewAuthenticator(mockProvider, testConfig()).
			WithTokenValidator(custom)

		claims, err := auther.ClaimsFromToken(token)
		assert.Error(t, err)
		assert.Nil(t, claims)
		assert.Contains(t, err.Error(), "custom validator rejected")
	})
}

func TestLoginActivitySink(t *testing.T) {
	ctx := context.Background()
	identity := TestIdentity{
		id:    uuid.New().String(),
		email: "audit@example.com",
		role:  memberauth.RoleUser,
	}

	t.Run("success event", func(t *testing.T) {
		provider := new(MockIdentityProvider)
		sink := new(MockActivitySink)

		authenticator := memberauth.NewAuthenticator(provider, testConfig()).
			WithActivitySink(sink)

		provider.On("VerifyIdentity", ctx, identity.Email(), "password").
			Return(identity, nil).Once()

		sink.On("Record", mock.Anything, mock.MatchedBy(func(evt memberauth.ActivityEvent) bool {
			return evt.EventType == memberauth.ActivityEventLoginSuccess &&
				evt.UserID == identity.ID()
		})).Return(nil).Once()

		_, _, err := authenticator.Login(ctx, identity.Email(), "password")
		require.NoError(t, err)

		sink.AssertExpectations(t)
		provider.AssertExpectations(t)
	})

	t.Run("failure event", func(t *testing.T) {
		provider := new(MockIdentityProvider)
		sink := new(MockActivitySink)

		authenticator := memberauth.NewAuthenticator(provider, testConfig()).
			WithActivitySink(sink)

		provider.On("VerifyIdentity", ctx, "unknown@example.com", "password").
			Return(nil, errors.New("boom")).Once()

		sink.On("Record", mock.Anything, mock.MatchedBy(func(evt memberauth.ActivityEvent) bool {
			return evt.EventType == memberauth.ActivityEventLoginFailure &&
				evt.UserID == "" &&
				evt.Metadata["identifier"] == "unknown@example.com"
		})).Return(nil).Once()

		_, _, err := authenticator.Login(ctx, "unknown@example.com", "password")
		require.Error(t, err)

		sink.AssertExpectations(t)
		provider.AssertExpectations(t)
	})
}
