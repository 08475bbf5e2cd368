package memberauth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the user model
type User struct {
	bun.BaseModel          `bun:"table:users,alias:usr"`
	ID                     uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Role                   UserRole   `bun:"user_role,notnull" json:"user_role,omitempty"`
	FirstName              string     `bun:"first_name" json:"first_name,omitempty"`
	LastName               string     `bun:"last_name" json:"last_name,omitempty"`
	Email                  string     `bun:"email,notnull,unique" json:"email,omitempty"`
	Phone                  string     `bun:"phone_number" json:"phone_number,omitempty"`
	PasswordHash           string     `bun:"password_hash" json:"-"`
	Approved               bool       `bun:"is_approved" json:"is_approved,omitempty"`
	PasswordChangedAt      *time.Time `bun:"password_changed_at,nullzero" json:"-"`
	PasswordResetToken     string     `bun:"password_reset_token,nullzero" json:"-"`
	PasswordResetExpiresAt *time.Time `bun:"password_reset_expires_at,nullzero" json:"-"`
	LoginAttempts          int        `bun:"login_attempts" json:"-"`
	LoginAttemptAt         *time.Time `bun:"login_attempt_at" json:"-"`
	LoggedInAt             *time.Time `bun:"loggedin_at" json:"-"`
	CreatedAt              *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt              *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt              *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// ChangedPasswordAfter reports whether the user's password changed strictly
// after the given instant. Tokens issued before that moment are stale and
// must be rejected; this comparison is the only revocation mechanism.
//
// JWT iat claims carry whole second precision, so the comparison happens at
// second granularity. A credential minted right after a password change must
// not read as issued before it.
func (u *User) ChangedPasswordAfter(t time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return u.PasswordChangedAt.Truncate(time.Second).After(t.Truncate(time.Second))
}

// HasActiveReset reports whether a reset fingerprint is currently stored.
func (u *User) HasActiveReset() bool {
	return u.PasswordResetToken != "" || u.PasswordResetExpiresAt != nil
}

// SetPasswordReset stores the reset fingerprint and its absolute expiry.
// The plaintext secret is never persisted.
func (u *User) SetPasswordReset(fingerprint string, expiresAt time.Time) {
	u.PasswordResetToken = fingerprint
	u.PasswordResetExpiresAt = &expiresAt
}

// ClearPasswordReset removes any active reset secret. Clearing an already
// clear user is a no-op, so cleanup paths may run it more than once.
func (u *User) ClearPasswordReset() {
	u.PasswordResetToken = ""
	u.PasswordResetExpiresAt = nil
}
