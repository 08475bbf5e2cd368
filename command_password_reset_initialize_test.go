package memberauth_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/clubware/memberauth"
	"github.com/clubware/memberauth/mailer"
)

func TestInitializePasswordResetHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("stores the fingerprint and mails the plaintext link", func(t *testing.T) {
		repo := &MockRepositoryManager{}
		users := &MockUsers{}
		mail := &MockMailer{}
		sink := &MockActivitySink{}

		secrets := memberauth.NewResetSecretManager(10 * time.Minute)
		handler := memberauth.NewInitializePasswordResetHandler(repo, secrets, mail).
			WithActivitySink(sink).
			WithLogger(testLogger{})

		userID := uuid.New()
		user := &memberauth.User{
			ID:    userID,
			Email: "member@example.com",
			Role:  memberauth.RoleUser,
		}

		repo.On("Users").Return(users)
		users.On("GetByIdentifier", mock.Anything, "member@example.com").
			Return(user, nil).Once()

		var storedFingerprint string
		users.On("SetPasswordReset", mock.Anything, userID, mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				storedFingerprint = args.String(2)
			}).
			Return(nil).Once()

		var sentMsg mailer.Message
		mail.On("Send", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				sentMsg = args.Get(1).(mailer.Message)
			}).
			Return(nil).Once()

		sink.On("Record", mock.Anything, mock.MatchedBy(func(evt memberauth.ActivityEvent) bool {
			return evt.EventType == memberauth.ActivityEventPasswordResetRequest &&
				evt.UserID == userID.String()
		})).Return(nil).Once()

		var resp *memberauth.InitializePasswordResetResponse
		err := handler.Execute(ctx, memberauth.InitializePasswordResetMessage{
			Email:        "member@example.com",
			ResetURLBase: "https://club.example.com",
			OnResponse: func(r *memberauth.InitializePasswordResetResponse) {
				resp = r
			},
		})

		require.NoError(t, err)
		require.NotNil(t, resp)
		assert.True(t, resp.Success)

		assert.Equal(t, "member@example.com", sentMsg.To)
		assert.Equal(t, "Your password reset token (valid for 10 min)", sentMsg.Subject)
		assert.Contains(t, sentMsg.Text, "https://club.example.com/api/v1/users/resetPassword/")

		// the mail carries the plaintext secret, the store only its fingerprint
		idx := strings.Index(sentMsg.Text, "resetPassword/")
		require.Greater(t, idx, 0)
		plain := strings.Fields(sentMsg.Text[idx+len("resetPassword/"):])[0]
		assert.Len(t, plain, 64)
		assert.Equal(t, secrets.Fingerprint(plain), storedFingerprint)
		assert.NotContains(t, sentMsg.Text, storedFingerprint)

		repo.AssertExpectations(t)
		users.AssertExpectations(t)
		mail.AssertExpectations(t)
		sink.AssertExpectations(t)
	})

	t.Run("unknown email is reported", func(t *testing.T) {
		repo := &MockRepositoryManager{}
		users := &MockUsers{}
		mail := &MockMailer{}

		secrets := memberauth.NewResetSecretManager(10 * time.Minute)
		handler := memberauth.NewInitializePasswordResetHandler(repo, secrets, mail).
			WithLogger(testLogger{})

		repo.On("Users").Return(users)
		users.On("GetByIdentifier", mock.Anything, "nobody@example.com").
			Return(nil, repository.NewRecordNotFound()).Once()

		err := handler.Execute(ctx, memberauth.InitializePasswordResetMessage{
			Email:        "nobody@example.com",
			ResetURLBase: "https://club.example.com",
		})

		assert.ErrorIs(t, err, memberauth.ErrUserNotFoundByEmail)
		mail.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})

	t.Run("mail failure clears the stored secret", func(t *testing.T) {
		repo := &MockRepositoryManager{}
		users := &MockUsers{}
		mail := &MockMailer{}

		secrets := memberauth.NewResetSecretManager(10 * time.Minute)
		handler := memberauth.NewInitializePasswordResetHandler(repo, secrets, mail).
			WithLogger(testLogger{})

		userID := uuid.New()
		user := &memberauth.User{
			ID:    userID,
			Email: "member@example.com",
		}

		repo.On("Users").Return(users)
		users.On("GetByIdentifier", mock.Anything, "member@example.com").
			Return(user, nil).Once()
		users.On("SetPasswordReset", mock.Anything, userID, mock.Anything, mock.Anything).
			Return(nil).Once()
		users.On("ClearPasswordReset", mock.Anything, userID).
			Return(nil).Once()

		mail.On("Send", mock.Anything, mock.Anything).
			Return(errors.New("smtp: connection refused")).Once()

		err := handler.Execute(ctx, memberauth.InitializePasswordResetMessage{
			Email:        "member@example.com",
			ResetURLBase: "https://club.example.com",
		})

		assert.ErrorIs(t, err, memberauth.ErrMailDelivery)
		users.AssertExpectations(t)
	})
}
