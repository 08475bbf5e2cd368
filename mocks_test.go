package memberauth_test

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"

	"github.com/clubware/memberauth"
	"github.com/clubware/memberauth/mailer"
)

// MockUsers stubs only the methods the handlers reach for; the embedded
// interface satisfies the rest of the repository surface and panics if an
// unstubbed method is hit.
type MockUsers struct {
	mock.Mock
	memberauth.Users
}

func (m *MockUsers) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*memberauth.User, error) {
	args := m.Called(ctx, identifier)
	if user, ok := args.Get(0).(*memberauth.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (*memberauth.User, error) {
	args := m.Called(ctx, tx, identifier)
	if user, ok := args.Get(0).(*memberauth.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) CreateTx(ctx context.Context, tx bun.IDB, record *memberauth.User, criteria ...repository.InsertCriteria) (*memberauth.User, error) {
	args := m.Called(ctx, tx, record)
	if user, ok := args.Get(0).(*memberauth.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) SetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string, changedAt time.Time) error {
	args := m.Called(ctx, tx, id, passwordHash, changedAt)
	return args.Error(0)
}

func (m *MockUsers) SetPasswordReset(ctx context.Context, id uuid.UUID, fingerprint string, expiresAt time.Time) error {
	args := m.Called(ctx, id, fingerprint, expiresAt)
	return args.Error(0)
}

func (m *MockUsers) ClearPasswordReset(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUsers) FindByResetFingerprintTx(ctx context.Context, tx bun.IDB, fingerprint string) (*memberauth.User, error) {
	args := m.Called(ctx, tx, fingerprint)
	if user, ok := args.Get(0).(*memberauth.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockRepositoryManager hands transaction callbacks a zero bun.Tx so the
// mocked repositories never touch a database.
type MockRepositoryManager struct {
	mock.Mock
}

func (m *MockRepositoryManager) Validate() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockRepositoryManager) MustValidate() {
	m.Called()
}

func (m *MockRepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	args := m.Called(ctx, opts, f)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return f(ctx, bun.Tx{})
}

func (m *MockRepositoryManager) Users() memberauth.Users {
	args := m.Called()
	return args.Get(0).(memberauth.Users)
}

type MockActivitySink struct {
	mock.Mock
}

func (m *MockActivitySink) Record(ctx context.Context, event memberauth.ActivityEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, msg mailer.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Login(ctx context.Context, email, password string) (string, memberauth.Identity, error) {
	args := m.Called(ctx, email, password)
	var identity memberauth.Identity
	if id, ok := args.Get(1).(memberauth.Identity); ok {
		identity = id
	}
	return args.String(0), identity, args.Error(2)
}

func (m *MockAuthenticator) Issue(identity memberauth.Identity) (string, error) {
	args := m.Called(identity)
	return args.String(0), args.Error(1)
}
