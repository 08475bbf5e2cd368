package memberauth

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"

	"github.com/clubware/memberauth/middleware/tokenware"
)

// UserResolver looks up the full user record backing a verified credential.
type UserResolver interface {
	GetByIdentifier(ctx context.Context, identifier string) (*User, error)
}

// RouteAuthenticator wires the token middleware into routes and owns the
// cookie lifecycle. Protected routes re-resolve the credential's subject
// against the store on every request, so deleted users and stale tokens are
// rejected even though the signature still verifies.
type RouteAuthenticator struct {
	auth             Authenticator
	cfg              Config
	resolver         UserResolver
	cookieDuration   time.Duration
	Logger           Logger
	AuthErrorHandler func(c router.Context, err error) error
	ErrorHandler     func(c router.Context, err error) error
}

func NewHTTPAuthenticator(auther Authenticator, resolver UserResolver, cfg Config) (*RouteAuthenticator, error) {
	cfg = cfg.Defaults()

	cookieDuration := 24 * time.Hour
	if cfg.GetTokenExpiration() > 0 {
		cookieDuration = time.Duration(cfg.GetTokenExpiration()) * time.Hour
	}

	a := &RouteAuthenticator{
		cfg:            cfg,
		auth:           auther,
		resolver:       resolver,
		Logger:         defLogger{},
		cookieDuration: cookieDuration,
	}

	a.ErrorHandler = a.defaultErrHandler
	a.AuthErrorHandler = a.defaultAuthErrHandler

	return a, nil
}

func (a RouteAuthenticator) GetCookieDuration() time.Duration {
	return a.cookieDuration
}

// ProtectedRoute is the authentication gate. It extracts and verifies the
// credential, then re-resolves the subject and rejects tokens issued before
// the user's most recent password change.
func (a *RouteAuthenticator) ProtectedRoute(validator TokenValidator, errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	if errorHandler == nil {
		errorHandler = a.MakeRouteAuthErrorHandler(false)
	}

	return func(hf router.HandlerFunc) router.HandlerFunc {
		ware := tokenware.New(tokenware.Config{
			ErrorHandler: errorHandler,
			TokenValidator: tokenValidatorAdapter{validator: validator},
			SigningKey: tokenware.SigningKey{
				Key:    []byte(a.cfg.GetSigningKey()),
				JWTAlg: a.cfg.GetSigningMethod(),
			},
			AuthScheme:  a.cfg.GetAuthScheme(),
			ContextKey:  a.cfg.GetContextKey(),
			TokenLookup: a.cfg.GetTokenLookup(),
			SuccessHandler: func(ctx router.Context) error {
				claims, ok := GetRouterClaims(ctx, a.cfg.GetContextKey())
				if !ok {
					return errorHandler(ctx, ErrNoCredential)
				}

				user, err := a.resolver.GetByIdentifier(ctx.Context(), claims.UserID())
				if err != nil {
					a.Logger.Warn("ProtectedRoute subject no longer resolvable", "uid", claims.UserID())
					return errorHandler(ctx, ErrIdentityGone)
				}

				if err := EnsureFreshCredential(user, claims); err != nil {
					return errorHandler(ctx, err)
				}

				ctx.Locals("user", user)
				ctx.SetContext(WithContext(WithClaimsContext(ctx.Context(), claims), user))

				return hf(ctx)
			},
		})

		return ware(hf)
	}
}

// EnsureFreshCredential rejects claims minted before the user's most recent
// password change.
func EnsureFreshCredential(user *User, claims AuthClaims) error {
	if user == nil {
		return ErrIdentityGone
	}
	if user.ChangedPasswordAfter(claims.IssuedAt()) {
		return ErrStaleCredential
	}
	return nil
}

// RequireRole is the authorization gate. It assumes ProtectedRoute already
// ran; requests whose resolved user is outside the allowed set get a 403
// with no further detail.
func (a *RouteAuthenticator) RequireRole(allowed ...UserRole) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			user, ok := ctx.Locals("user").(*User)
			if !ok || user == nil {
				return a.ErrorHandler(ctx, ErrNoCredential)
			}

			if !RoleIn(user.Role, allowed...) {
				a.Logger.Info("RequireRole rejected", "role", user.Role, "path", ctx.OriginalURL())
				return a.ErrorHandler(ctx, ErrForbidden)
			}

			return hf(ctx)
		}
	}
}

// Login verifies the credentials, sets the session cookie, and returns the
// minted token with the authenticated identity.
func (a *RouteAuthenticator) Login(ctx router.Context, email, password string) (string, Identity, error) {
	token, identity, err := a.auth.Login(ctx.Context(), email, password)
	if err != nil {
		a.Logger.Error("Login error: %s", err)
		return "", nil, err
	}

	a.SetCookieToken(ctx, token, a.cookieDuration)
	return token, identity, nil
}

// Logout overwrites the session cookie with an expired one.
func (a *RouteAuthenticator) Logout(ctx router.Context) {
	a.cookieDel(ctx, a.cfg.GetContextKey())
}

// MakeRouteAuthErrorHandler builds the gate error handler. With optional
// true a failed credential lets the request through unauthenticated.
func (a *RouteAuthenticator) MakeRouteAuthErrorHandler(optional bool) func(router.Context, error) error {
	return func(ctx router.Context, err error) error {
		var richErr *errors.Error

		if IsTokenExpiredError(err) {
			richErr = ErrTokenExpired
		} else if err.Error() == tokenware.ErrJWTMissingOrMalformed.Error() {
			richErr = ErrNoCredential
		} else if IsMalformedError(err) {
			richErr = ErrTokenMalformed
		} else if errors.As(err, &richErr) {
			// keep the categorized error as-is
		} else {
			richErr = errors.Wrap(err, errors.CategoryAuth, "Invalid authentication token").
				WithCode(errors.CodeUnauthorized)
		}

		if optional {
			a.Logger.Info("Optional auth failed, proceeding", "error", richErr.Message)
			return ctx.Next()
		}

		return a.ErrorHandler(ctx, richErr)
	}
}

// SetCookieToken stores the token in the session cookie. The cookie is
// always httpOnly; Secure is set only in production so local development
// over plain http keeps working.
func (a *RouteAuthenticator) SetCookieToken(c router.Context, val string, duration time.Duration) {
	c.Cookie(&router.Cookie{
		Name:     a.cfg.GetContextKey(),
		Value:    val,
		Expires:  time.Now().Add(duration),
		HTTPOnly: true,
		Secure:   a.cfg.IsProduction(),
		SameSite: "Lax",
	})
}

func (a *RouteAuthenticator) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "loggedout",
		Expires:  time.Now().Add(10 * time.Second),
		HTTPOnly: true,
		Secure:   a.cfg.IsProduction(),
		SameSite: "Lax",
	})
}

func (a *RouteAuthenticator) defaultAuthErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryAuth, "An unexpected authentication error").
			WithCode(errors.CodeUnauthorized)
	}

	a.Logger.Info(
		"Authentication error",
		"error", richErr.Message,
		"text_code", richErr.TextCode,
		"path", c.OriginalURL(),
	)

	return c.Status(statusFromError(richErr)).JSON(router.ViewContext{
		"status":  "fail",
		"message": richErr.Message,
	})
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	a.Logger.Info(
		"Middleware error handler",
		"error", richErr.Message,
		"category", richErr.Category,
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	switch richErr.Category {
	case errors.CategoryAuth, errors.CategoryAuthz:
		return a.AuthErrorHandler(c, richErr)
	default:
		return c.Status(statusFromError(richErr)).JSON(router.ViewContext{
			"status":  "error",
			"message": richErr.Message,
		})
	}
}

func statusFromError(err *errors.Error) int {
	if err.Code > 0 {
		return err.Code
	}
	return router.StatusInternalServerError
}

// tokenValidatorAdapter bridges the package TokenValidator to the tokenware
// interface, which is duplicated there to avoid an import cycle.
type tokenValidatorAdapter struct {
	validator TokenValidator
}

func (t tokenValidatorAdapter) Validate(tokenString string) (tokenware.AuthClaims, error) {
	if t.validator == nil {
		return nil, ErrTokenMalformed
	}
	claims, err := t.validator.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	return claims, nil
}
