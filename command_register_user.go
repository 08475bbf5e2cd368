package memberauth

import (
	"context"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"

	"github.com/clubware/memberauth/mailer"
)

type RegisterUserMessage struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone_number"`
	Role      string `json:"role"`
	Password  string `json:"password"`
	UseHashid bool

	OnResponse func(resp *RegisterUserResponse)
}

func (e RegisterUserMessage) Type() string { return "user.register" }

type RegisterUserResponse struct {
	User  *User
	Token string
}

// RegisterUserHandler creates a member account and, when the account is
// approved, logs the member straight in with a fresh token. Re-registering
// an email is rejected; a second signup while approval is pending surfaces
// the hold instead of a duplicate error.
type RegisterUserHandler struct {
	repo   RepositoryManager
	auth   Authenticator
	mail   mailer.Mailer
	sink   ActivitySink
	logger Logger
}

func NewRegisterUserHandler(repo RepositoryManager, auth Authenticator, mail mailer.Mailer) *RegisterUserHandler {
	return &RegisterUserHandler{
		repo:   repo,
		auth:   auth,
		mail:   mail,
		sink:   noopActivitySink{},
		logger: defLogger{},
	}
}

func (h *RegisterUserHandler) WithActivitySink(sink ActivitySink) *RegisterUserHandler {
	h.sink = normalizeActivitySink(sink)
	return h
}

func (h *RegisterUserHandler) WithLogger(l Logger) *RegisterUserHandler {
	if l != nil {
		h.logger = l
	}
	return h
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) error {
	user := &User{}
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if existing, err := h.repo.Users().GetByIdentifier(ctx, event.Email); err == nil && existing != nil {
		if !existing.Approved {
			return ErrApprovalOnHold
		}
		return ErrDuplicateEmail
	} else if err != nil && !repository.IsRecordNotFound(err) {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check for existing user")
	}

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		hash, err := HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		user.PasswordHash = hash
		user.Email = event.Email
		user.Phone = event.Phone
		user.FirstName = event.FirstName
		user.LastName = event.LastName
		user.Role = event.Role
		user.Approved = true
		if event.UseHashid {
			if id, err := hashid.NewUUID(event.Email); err == nil {
				user.ID = id
			}
		}

		if user, err = h.repo.Users().CreateTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	token, err := h.auth.Issue(authIdentity{
		id:    user.ID.String(),
		email: user.Email,
		role:  string(user.Role),
	})
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue token after registration")
	}

	if err := h.mail.Send(ctx, mailer.Message{
		To:      user.Email,
		Subject: "Welcome to the club",
		Text:    fmt.Sprintf("Hi %s, your account is ready.", user.FirstName),
	}); err != nil {
		// the account exists either way, a missing welcome mail is not fatal
		h.logger.Warn("welcome mail delivery failed", "error", err)
	}

	h.recordSignup(ctx, user)

	if event.OnResponse != nil {
		event.OnResponse(&RegisterUserResponse{User: user, Token: token})
	}

	return nil
}

func (h *RegisterUserHandler) recordSignup(ctx context.Context, user *User) {
	err := normalizeActivitySink(h.sink).Record(ctx, ActivityEvent{
		EventType:  ActivityEventSignup,
		UserID:     user.ID.String(),
		Email:      user.Email,
		OccurredAt: time.Now(),
	})
	if err != nil {
		h.logger.Warn("activity sink record error: %v", err)
	}
}
