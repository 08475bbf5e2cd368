package memberauth

import (
	stderrors "errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/nyaruka/phonenumbers"

	"github.com/clubware/memberauth/mailer"
	"github.com/clubware/memberauth/storage"
)

// RegisterAuthRoutes mounts the member auth API under /api/v1/users.
func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) {
	controller := NewAuthController(opts...)

	base := controller.Routes.Base

	app.Post(base+"/signup", controller.Signup).SetName("users.signup")
	app.Post(base+"/login", controller.Login).SetName("users.login")
	app.Get(base+"/logout", controller.Logout).SetName("users.logout")
	app.Get(base+"/isLoggedIn", controller.IsLoggedIn).SetName("users.is-logged-in")

	app.Post(base+"/forgotPassword", controller.ForgotPassword).SetName("users.forgot-password")
	app.Patch(base+"/resetPassword/:token", controller.ResetPassword).SetName("users.reset-password")

	protect := controller.Auther.ProtectedRoute(controller.Validator, controller.Auther.MakeRouteAuthErrorHandler(false))

	app.Patch(base+"/updatePassword", protect(controller.UpdatePassword)).
		SetName("users.update-password")

	app.Post(base+"/uploadPhoto", protect(controller.UploadPhoto)).
		SetName("users.upload-photo")
}

type AuthControllerRoutes struct {
	Base string
}

type AuthController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Routes       *AuthControllerRoutes
	Auther       *RouteAuthenticator
	Auth         Authenticator
	Validator    TokenValidator
	Secrets      *ResetSecretManager
	Mailer       mailer.Mailer
	Uploader     storage.Uploader
	ActivitySink ActivitySink
	// BaseURL is the externally visible scheme and host used to build the
	// password reset link. When empty the request Host header is used.
	BaseURL      string
	ErrorHandler router.ErrorHandler
}

type AuthControllerOption func(*AuthController) *AuthController

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
		Routes: &AuthControllerRoutes{
			Base: "/api/v1/users",
		},
		Mailer:       mailer.Noop{},
		ActivitySink: noopActivitySink{},
	}
	c.ErrorHandler = c.renderError

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Auther == nil || c.Auth == nil {
		panic("Missing authenticator in auth controller...")
	}

	if c.Validator == nil {
		if auther, ok := c.Auth.(*Auther); ok {
			c.Validator = TokenValidatorFunc(auther.TokenService().Validate)
		} else {
			panic("Missing TokenValidator in auth controller...")
		}
	}

	if c.Secrets == nil {
		c.Secrets = NewResetSecretManager(DefaultResetTokenTTL)
	}

	return c
}

func WithControllerRepo(repo RepositoryManager) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Repo = repo
		return c
	}
}

func WithControllerAuth(auther *RouteAuthenticator, auth Authenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		c.Auth = auth
		return c
	}
}

func WithControllerValidator(v TokenValidator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Validator = v
		return c
	}
}

func WithControllerSecrets(m *ResetSecretManager) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Secrets = m
		return c
	}
}

func WithControllerMailer(m mailer.Mailer) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if m != nil {
			c.Mailer = m
		}
		return c
	}
}

func WithControllerUploader(u storage.Uploader) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Uploader = u
		return c
	}
}

func WithControllerActivitySink(s ActivitySink) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.ActivitySink = normalizeActivitySink(s)
		return c
	}
}

func WithControllerLogger(l Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if l != nil {
			c.Logger = l
		}
		return c
	}
}

func WithControllerBaseURL(base string) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.BaseURL = base
		return c
	}
}

func WithControllerDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

// SignupPayload is the signup request body
type SignupPayload struct {
	FirstName       string `form:"first_name" json:"first_name"`
	LastName        string `form:"last_name" json:"last_name"`
	Email           string `form:"email" json:"email"`
	Phone           string `form:"phone_number" json:"phone_number"`
	Role            string `form:"role" json:"role"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"password_confirm" json:"password_confirm"`
}

// Validate will validate the payload
func (r SignupPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Phone, validation.By(ValidPhoneNumber)),
		validation.Field(&r.Role, validation.In(RoleUser, RoleSecretary, RoleAdmin, RoleSuperAdmin)),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AuthController) Signup(ctx router.Context) error {
	payload := new(SignupPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("signup parse payload", "error", err)
		return a.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryBadInput, "failed to parse request body").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("signup validate payload", "error", err)
		return a.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryValidation, err.Error()).
			WithCode(errors.CodeBadRequest))
	}

	var res *RegisterUserResponse

	handler := NewRegisterUserHandler(a.Repo, a.Auth, a.Mailer).
		WithActivitySink(a.ActivitySink).
		WithLogger(a.Logger)

	err := handler.Execute(ctx.Context(), RegisterUserMessage{
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Email:     payload.Email,
		Phone:     payload.Phone,
		Role:      payload.Role,
		Password:  payload.Password,
		UseHashid: true,
		OnResponse: func(resp *RegisterUserResponse) {
			res = resp
		},
	})
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	a.Auther.SetCookieToken(ctx, res.Token, a.Auther.GetCookieDuration())

	return ctx.Status(router.StatusCreated).JSON(router.ViewContext{
		"status": "success",
		"token":  res.Token,
		"data": router.ViewContext{
			"user": res.User,
		},
	})
}

// LoginPayload is the login request body
type LoginPayload struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *AuthController) Login(ctx router.Context) error {
	payload := new(LoginPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("login parse payload", "error", err)
		return a.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryBadInput, "failed to parse request body").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryValidation, "Please provide email and password").
			WithCode(errors.CodeBadRequest))
	}

	token, identity, err := a.Auther.Login(ctx, payload.Email, payload.Password)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.Status(router.StatusOK).JSON(router.ViewContext{
		"status": "success",
		"token":  token,
		"data": router.ViewContext{
			"user": router.ViewContext{
				"id":    identity.ID(),
				"email": identity.Email(),
				"role":  identity.Role(),
			},
		},
	})
}

func (a *AuthController) Logout(ctx router.Context) error {
	a.Auther.Logout(ctx)
	return ctx.Status(router.StatusOK).JSON(router.ViewContext{
		"status": "success",
	})
}

// IsLoggedIn reports whether the request carries a valid credential. It
// never fails the request; the answer goes in the body.
func (a *AuthController) IsLoggedIn(ctx router.Context) error {
	raw, err := ExtractRequestToken(ctx, a.Auther.cfg)
	if err != nil || raw == "" {
		return ctx.Status(router.StatusOK).JSON(router.ViewContext{
			"status": "success",
			"data":   router.ViewContext{"logged_in": false},
		})
	}

	claims, err := a.Validator.Validate(raw)
	if err != nil {
		return ctx.Status(router.StatusOK).JSON(router.ViewContext{
			"status": "success",
			"data":   router.ViewContext{"logged_in": false},
		})
	}

	user, err := a.Repo.Users().GetByIdentifier(ctx.Context(), claims.UserID())
	if err != nil || EnsureFreshCredential(user, claims) != nil {
		return ctx.Status(router.StatusOK).JSON(router.ViewContext{
			"status": "success",
			"data":   router.ViewContext{"logged_in": false},
		})
	}

	return ctx.Status(router.StatusOK).JSON(router.ViewContext{
		"status": "success",
		"data": router.ViewContext{
			"logged_in": true,
			"user":      user,
		},
	})
}

// ForgotPasswordPayload holds the email to start a reset for
type ForgotPasswordPayload struct {
	Email string `form:"email" json:"email"`
}

// Validate will validate the payload
func (r ForgotPasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

func (a *AuthController) ForgotPassword(ctx router.Context) error {
	payload := new(ForgotPasswordPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("forgot password parse payload", "error", err)
		return a.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryBadInput, "failed to parse request body").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryValidation, err.Error()).
			WithCode(errors.CodeBadRequest))
	}

	handler := NewInitializePasswordResetHandler(a.Repo, a.Secrets, a.Mailer).
		WithActivitySink(a.ActivitySink).
		WithLogger(a.Logger)

	err := handler.Execute(ctx.Context(), InitializePasswordResetMessage{
		Email:        payload.Email,
		ResetURLBase: a.resetURLBase(ctx),
	})
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.Status(router.StatusOK).JSON(router.ViewContext{
		"status":  "success",
		"message": "Token sent to email!",
	})
}

// ResetPasswordPayload carries the replacement password
type ResetPasswordPayload struct {
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"password_confirm" json:"password_confirm"`
}

// Validate will validate the payload
func (r ResetPasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AuthController) ResetPassword(ctx router.Context) error {
	secret := ctx.Param("token")

	payload := new(ResetPasswordPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("reset password parse payload", "error", err)
		return a.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryBadInput, "failed to parse request body").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryValidation, err.Error()).
			WithCode(errors.CodeBadRequest))
	}

	var res *FinalizePasswordResetResponse

	handler := NewFinalizePasswordResetHandler(a.Repo, a.Secrets, a.Auth).
		WithActivitySink(a.ActivitySink).
		WithLogger(a.Logger)

	err := handler.Execute(ctx.Context(), FinalizePasswordResetMessage{
		Secret:          secret,
		Password:        payload.Password,
		ConfirmPassword: payload.ConfirmPassword,
		OnResponse: func(resp *FinalizePasswordResetResponse) {
			res = resp
		},
	})
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	a.Auther.SetCookieToken(ctx, res.Token, a.Auther.GetCookieDuration())

	return ctx.Status(router.StatusOK).JSON(router.ViewContext{
		"status": "success",
		"token":  res.Token,
	})
}

// UpdatePasswordPayload is the authenticated password change body
type UpdatePasswordPayload struct {
	CurrentPassword string `form:"password_current" json:"password_current"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"password_confirm" json:"password_confirm"`
}

// Validate will validate the payload
func (r UpdatePasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CurrentPassword, validation.Required),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AuthController) UpdatePassword(ctx router.Context) error {
	user, ok := ctx.Locals("user").(*User)
	if !ok || user == nil {
		return a.ErrorHandler(ctx, ErrNoCredential)
	}

	payload := new(UpdatePasswordPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("update password parse payload", "error", err)
		return a.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryBadInput, "failed to parse request body").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryValidation, err.Error()).
			WithCode(errors.CodeBadRequest))
	}

	var res *UpdatePasswordResponse

	handler := NewUpdatePasswordHandler(a.Repo, a.Auth).
		WithActivitySink(a.ActivitySink).
		WithLogger(a.Logger)

	err := handler.Execute(ctx.Context(), UpdatePasswordMessage{
		UserID:          user.ID.String(),
		CurrentPassword: payload.CurrentPassword,
		Password:        payload.Password,
		ConfirmPassword: payload.ConfirmPassword,
		OnResponse: func(resp *UpdatePasswordResponse) {
			res = resp
		},
	})
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	a.Auther.SetCookieToken(ctx, res.Token, a.Auther.GetCookieDuration())

	return ctx.Status(router.StatusOK).JSON(router.ViewContext{
		"status": "success",
		"token":  res.Token,
	})
}

// UploadPhoto hands the member a presigned PUT URL for their profile photo.
func (a *AuthController) UploadPhoto(ctx router.Context) error {
	if a.Uploader == nil {
		return a.ErrorHandler(ctx, errors.New("photo uploads are not configured", errors.CategoryInternal).
			WithCode(errors.CodeInternal))
	}

	user, ok := ctx.Locals("user").(*User)
	if !ok || user == nil {
		return a.ErrorHandler(ctx, ErrNoCredential)
	}

	key, url, err := a.Uploader.PresignUpload(ctx.Context(), user.ID.String())
	if err != nil {
		a.Logger.Error("presign upload failed", "error", err)
		return a.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryInternal, "failed to create upload URL").
			WithCode(errors.CodeInternal))
	}

	return ctx.Status(router.StatusOK).JSON(router.ViewContext{
		"status": "success",
		"data": router.ViewContext{
			"key":        key,
			"upload_url": url,
		},
	})
}

func (a *AuthController) resetURLBase(ctx router.Context) string {
	if a.BaseURL != "" {
		return a.BaseURL
	}

	scheme := "http"
	if a.Auther.cfg.IsProduction() {
		scheme = "https"
	}

	host := ctx.GetString("Host", "localhost")
	return fmt.Sprintf("%s://%s", scheme, host)
}

// ExtractRequestToken pulls the raw credential out of the request using the
// configured lookup chain, without validating it.
func ExtractRequestToken(ctx router.Context, cfg Config) (string, error) {
	cfg = cfg.Defaults()

	authScheme := cfg.GetAuthScheme()
	header := ctx.GetString(router.HeaderAuthorization, "")
	if l := len(authScheme); len(header) > l+1 && header[:l] == authScheme {
		return header[l+1:], nil
	}

	if cookie := ctx.Cookies(cfg.GetContextKey()); cookie != "" {
		return cookie, nil
	}

	return "", ErrNoCredential
}

func (a *AuthController) renderError(ctx router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	status := statusFromError(richErr)

	kind := "error"
	if status < 500 {
		kind = "fail"
	}

	return ctx.Status(status).JSON(router.ViewContext{
		"status":  kind,
		"message": richErr.Message,
	})
}

// ValidPhoneNumber validates an optional phone number field.
func ValidPhoneNumber(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}

	num, err := phonenumbers.Parse(s, "US")
	if err != nil {
		return stderrors.New("must be a valid phone number")
	}

	if !phonenumbers.IsValidNumber(num) {
		return stderrors.New("must be a valid phone number")
	}

	return nil
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return stderrors.New("values must match")
		}
		return nil
	}
}
