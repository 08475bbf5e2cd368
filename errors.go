package memberauth

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes surfaced alongside structured errors so API clients can branch
// without parsing messages.
const (
	TextCodeInvalidCreds       = "INVALID_CREDENTIALS"
	TextCodeTooManyAttempts    = "TOO_MANY_LOGIN_ATTEMPTS"
	TextCodeNoCredential       = "NO_CREDENTIAL"
	TextCodeTokenExpired       = "TOKEN_EXPIRED"
	TextCodeTokenMalformed     = "TOKEN_MALFORMED"
	TextCodeStaleCredential    = "STALE_CREDENTIAL"
	TextCodeForbidden          = "FORBIDDEN"
	TextCodeResetTokenInvalid  = "RESET_TOKEN_INVALID"
	TextCodeMailDeliveryFailed = "MAIL_DELIVERY_FAILED"
	TextCodeEmptyPassword      = "EMPTY_PASSWORD"
	TextCodePasswordMismatch   = "PASSWORD_MISMATCH"
	TextCodeWrongPassword      = "WRONG_PASSWORD"
	TextCodeDuplicateEmail     = "DUPLICATE_EMAIL"
	TextCodeApprovalOnHold     = "APPROVAL_ON_HOLD"
)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = goerrors.New("identity not found", goerrors.CategoryNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrMismatchedHashAndPassword covers both unknown email and wrong password
// so a caller cannot probe which of the two failed.
var ErrMismatchedHashAndPassword = goerrors.New("Incorrect email or password", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(goerrors.CodeUnauthorized)

// ErrTooManyLoginAttempts is returned when the cooldown window is active
var ErrTooManyLoginAttempts = goerrors.New("too many login attempts, try again later", goerrors.CategoryRateLimit).
	WithTextCode(TextCodeTooManyAttempts)

// ErrNoCredential means the request carried neither a bearer header nor a cookie
var ErrNoCredential = goerrors.New("You are not logged in, please login to app first", goerrors.CategoryAuth).
	WithTextCode(TextCodeNoCredential).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenExpired is returned when a credential's embedded expiry has passed
var ErrTokenExpired = goerrors.New("authentication token is expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed is returned for any credential that fails signature or
// structural checks; verification fails closed.
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

// ErrIdentityGone means the credential verified but its subject no longer exists
var ErrIdentityGone = goerrors.New("User belonging to this token no longer exists", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized)

// ErrStaleCredential rejects structurally valid tokens issued before the
// identity's most recent password change.
var ErrStaleCredential = goerrors.New("User recently changed password", goerrors.CategoryAuth).
	WithTextCode(TextCodeStaleCredential).
	WithCode(goerrors.CodeUnauthorized)

// ErrForbidden is the authorization gate rejection
var ErrForbidden = goerrors.New("Forbidden", goerrors.CategoryAuthz).
	WithTextCode(TextCodeForbidden).
	WithCode(goerrors.CodeForbidden)

// ErrResetTokenInvalid is deliberately generic: it never distinguishes a
// wrong secret from an expired one.
var ErrResetTokenInvalid = goerrors.New("Token is invalid or expired", goerrors.CategoryNotFound).
	WithTextCode(TextCodeResetTokenInvalid).
	WithCode(goerrors.CodeNotFound)

// ErrUserNotFoundByEmail is the forgot-password miss
var ErrUserNotFoundByEmail = goerrors.New("no user find with this email, please check your email", goerrors.CategoryNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrMailDelivery wraps outbound mail failures in the reset flow
var ErrMailDelivery = goerrors.New("there was an error sending the mail", goerrors.CategoryInternal).
	WithTextCode(TextCodeMailDeliveryFailed).
	WithCode(goerrors.CodeInternal)

// ErrNoEmptyString rejects empty passwords before hashing
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(goerrors.CodeBadRequest)

// ErrPasswordMismatch rejects updates whose confirmation does not match
var ErrPasswordMismatch = goerrors.New("password and confirmation do not match", goerrors.CategoryValidation).
	WithTextCode(TextCodePasswordMismatch).
	WithCode(goerrors.CodeBadRequest)

// ErrWrongPassword rejects an authenticated password change when the
// supplied current password does not verify.
var ErrWrongPassword = goerrors.New("Please enter the correct password", goerrors.CategoryAuth).
	WithTextCode(TextCodeWrongPassword).
	WithCode(goerrors.CodeUnauthorized)

// ErrDuplicateEmail rejects signup for an already registered address
var ErrDuplicateEmail = goerrors.New("User already exist on given email address", goerrors.CategoryConflict).
	WithTextCode(TextCodeDuplicateEmail).
	WithCode(goerrors.CodeConflict)

// ErrApprovalOnHold rejects signup retries for accounts awaiting approval
var ErrApprovalOnHold = goerrors.New("Approval of user is on hold", goerrors.CategoryBadInput).
	WithTextCode(TextCodeApprovalOnHold).
	WithCode(goerrors.CodeBadRequest)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.TextCode == TextCodeTokenExpired {
		return true
	}

	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.TextCode == TextCodeTokenMalformed {
		return true
	}

	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
