package memberauth

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Identity holds the attributes of an authenticated identity
type Identity interface {
	ID() string
	Email() string
	Role() string
}

// Authenticator holds methods to deal with authentication
type Authenticator interface {
	Login(ctx context.Context, email, password string) (string, Identity, error)
	Issue(identity Identity) (string, error)
}

// IdentityProvider ensures we have a store to retrieve auth identities
type IdentityProvider interface {
	VerifyIdentity(ctx context.Context, email, password string) (Identity, error)
	FindIdentityByID(ctx context.Context, id string) (Identity, error)
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// Config holds the process wide authentication options. It is built once
// at startup and injected into constructors; nothing reads it ambiently.
type Config struct {
	SigningKey      string
	SigningMethod   string
	TokenExpiration int // hours
	Issuer          string
	Audience        []string
	ContextKey      string
	TokenLookup     string
	AuthScheme      string
	ResetTokenTTL   time.Duration
	Production      bool
}

// Defaults fills in zero values with the options the API ships with.
func (c Config) Defaults() Config {
	if c.SigningMethod == "" {
		c.SigningMethod = "HS256"
	}
	if c.TokenExpiration == 0 {
		c.TokenExpiration = 24
	}
	if c.ContextKey == "" {
		c.ContextKey = "jwt"
	}
	if c.TokenLookup == "" {
		c.TokenLookup = "header:Authorization,cookie:jwt"
	}
	if c.AuthScheme == "" {
		c.AuthScheme = "Bearer"
	}
	if c.ResetTokenTTL == 0 {
		c.ResetTokenTTL = 10 * time.Minute
	}
	return c
}

func (c Config) GetSigningKey() string    { return c.SigningKey }
func (c Config) GetSigningMethod() string { return c.SigningMethod }
func (c Config) GetTokenExpiration() int  { return c.TokenExpiration }
func (c Config) GetIssuer() string        { return c.Issuer }
func (c Config) GetAudience() []string    { return c.Audience }
func (c Config) GetContextKey() string    { return c.ContextKey }
func (c Config) GetTokenLookup() string   { return c.TokenLookup }
func (c Config) GetAuthScheme() string    { return c.AuthScheme }
func (c Config) IsProduction() bool       { return c.Production }

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
