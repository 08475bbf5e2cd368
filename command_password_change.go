package memberauth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type UpdatePasswordMessage struct {
	UserID          string `json:"-"`
	CurrentPassword string `json:"password_current"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"password_confirm"`
	OnResponse      func(resp *UpdatePasswordResponse)
}

func (p UpdatePasswordMessage) Type() string { return "user.password_change" }

type UpdatePasswordResponse struct {
	User  *User
	Token string
}

// UpdatePasswordHandler changes the password of an already authenticated
// member. The current password has to verify first; on success the change
// is stamped, which invalidates every token issued before it, and a fresh
// token is returned so the caller stays logged in.
type UpdatePasswordHandler struct {
	repo     RepositoryManager
	auth     Authenticator
	activity ActivitySink
	logger   Logger
}

func NewUpdatePasswordHandler(repo RepositoryManager, auth Authenticator) *UpdatePasswordHandler {
	return &UpdatePasswordHandler{
		repo:     repo,
		auth:     auth,
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

func (h *UpdatePasswordHandler) WithActivitySink(sink ActivitySink) *UpdatePasswordHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

func (h *UpdatePasswordHandler) WithLogger(logger Logger) *UpdatePasswordHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *UpdatePasswordHandler) Execute(ctx context.Context, event UpdatePasswordMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password change",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *UpdatePasswordHandler) execute(ctx context.Context, event UpdatePasswordMessage) error {
	user := &User{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if event.Password != event.ConfirmPassword {
		return ErrPasswordMismatch
	}

	var err error

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err = h.repo.Users().GetByIdentifierTx(ctx, tx, event.UserID)
		if err != nil {
			if goerrors.IsNotFound(err) {
				return ErrIdentityGone
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not retrieve user for password change")
		}

		if err := ComparePasswordAndHash(event.CurrentPassword, user.PasswordHash); err != nil {
			return ErrWrongPassword
		}

		passwordHash, err := HashPassword(event.Password)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid new password provided")
		}

		if err := h.repo.Users().SetPasswordTx(ctx, tx, user.ID, passwordHash, time.Now()); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update user password in database")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to change password")
	}

	token, err := h.auth.Issue(authIdentity{
		id:    user.ID.String(),
		email: user.Email,
		role:  string(user.Role),
	})
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue token after password change")
	}

	h.recordActivity(ctx, user)

	if event.OnResponse != nil {
		event.OnResponse(&UpdatePasswordResponse{User: user, Token: token})
	}

	return nil
}

func (h *UpdatePasswordHandler) recordActivity(ctx context.Context, user *User) {
	if user == nil {
		return
	}

	event := ActivityEvent{
		EventType:  ActivityEventPasswordChanged,
		UserID:     user.ID.String(),
		Email:      user.Email,
		OccurredAt: time.Now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during password change: %v", err)
	}
}
