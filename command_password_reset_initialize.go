package memberauth

import (
	"context"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"

	"github.com/clubware/memberauth/mailer"
)

type InitializePasswordResetMessage struct {
	Email string `json:"email"`
	// ResetURLBase is the scheme and host of the caller, e.g.
	// "https://club.example.com". The emailed link is built from it.
	ResetURLBase string `json:"-"`
	OnResponse   func(resp *InitializePasswordResetResponse)
}

func (p InitializePasswordResetMessage) Type() string { return "user.password_reset" }

type InitializePasswordResetResponse struct {
	User      *User
	ExpiresAt time.Time
	Success   bool
}

// InitializePasswordResetHandler starts the forgot-password flow: it mints
// a reset secret, persists only its fingerprint, and emails the plaintext
// link. If the mail cannot be sent the stored fingerprint is cleared again
// so the member is not left with a secret nobody received.
type InitializePasswordResetHandler struct {
	repo    RepositoryManager
	secrets *ResetSecretManager
	mail    mailer.Mailer
	sink    ActivitySink
	logger  Logger
}

func NewInitializePasswordResetHandler(repo RepositoryManager, secrets *ResetSecretManager, mail mailer.Mailer) *InitializePasswordResetHandler {
	return &InitializePasswordResetHandler{
		repo:    repo,
		secrets: secrets,
		mail:    mail,
		sink:    noopActivitySink{},
		logger:  defLogger{},
	}
}

func (h *InitializePasswordResetHandler) WithActivitySink(sink ActivitySink) *InitializePasswordResetHandler {
	h.sink = normalizeActivitySink(sink)
	return h
}

func (h *InitializePasswordResetHandler) WithLogger(l Logger) *InitializePasswordResetHandler {
	if l != nil {
		h.logger = l
	}
	return h
}

func (h *InitializePasswordResetHandler) Execute(ctx context.Context, event InitializePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset initialization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *InitializePasswordResetHandler) execute(ctx context.Context, event InitializePasswordResetMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	user, err := h.repo.Users().GetByIdentifier(ctx, event.Email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return ErrUserNotFoundByEmail
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for password reset")
	}

	plain, fingerprint, expiresAt, err := h.secrets.Generate()
	if err != nil {
		return err
	}

	if err := h.repo.Users().SetPasswordReset(ctx, user.ID, fingerprint, expiresAt); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist password reset secret")
	}

	resetURL := fmt.Sprintf("%s/api/v1/users/resetPassword/%s", event.ResetURLBase, plain)

	err = h.mail.Send(ctx, mailer.Message{
		To:      user.Email,
		Subject: "Your password reset token (valid for 10 min)",
		Text:    fmt.Sprintf("Forgot your password? Submit a PATCH request with your new password to: %s\nIf you didn't forget your password, please ignore this email.", resetURL),
	})
	if err != nil {
		// the member never got the secret, do not leave it active
		if clearErr := h.repo.Users().ClearPasswordReset(ctx, user.ID); clearErr != nil {
			h.logger.Error("failed to clear reset secret after mail failure", "error", clearErr)
		}
		h.logger.Error("reset mail delivery failed", "error", err)
		return ErrMailDelivery
	}

	h.recordRequest(ctx, user)

	if event.OnResponse != nil {
		event.OnResponse(&InitializePasswordResetResponse{
			User:      user,
			ExpiresAt: expiresAt,
			Success:   true,
		})
	}

	return nil
}

func (h *InitializePasswordResetHandler) recordRequest(ctx context.Context, user *User) {
	err := normalizeActivitySink(h.sink).Record(ctx, ActivityEvent{
		EventType:  ActivityEventPasswordResetRequest,
		UserID:     user.ID.String(),
		Email:      user.Email,
		OccurredAt: time.Now(),
	})
	if err != nil {
		h.logger.Warn("activity sink record error: %v", err)
	}
}
