package auth_test

import (
	"context"
	"sync"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	auth "github.com/inkpress/go-auth"
	"github.com/stretchr/testify/mock"
)

// MockIdentity implements auth.Identity for testing
type MockIdentity struct {
	mock.Mock
}

func (m *MockIdentity) ID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockIdentity) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockIdentity) Email() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockIdentity) Phone() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockIdentity) TokenVersion() int {
	args := m.Called()
	return args.Int(0)
}

// MockLogger implements auth.Logger for testing
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Info(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Warn(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Error(format string, args ...any) {
	m.Called(format, args)
}

// testLogger swallows output without expectations.
type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}

// staticIdentity is a plain value implementation of auth.Identity.
type staticIdentity struct {
	id      string
	name    string
	email   string
	phone   string
	version int
}

func (s staticIdentity) ID() string        { return s.id }
func (s staticIdentity) Name() string      { return s.name }
func (s staticIdentity) Email() string     { return s.email }
func (s staticIdentity) Phone() string     { return s.phone }
func (s staticIdentity) TokenVersion() int { return s.version }

// stubProvider adapts functions into auth.IdentityProvider.
type stubProvider struct {
	verify   func(ctx context.Context, ident auth.Identifier, password string) (auth.Identity, error)
	findByID func(ctx context.Context, id string) (auth.Identity, error)
}

func (s stubProvider) VerifyIdentity(ctx context.Context, ident auth.Identifier, password string) (auth.Identity, error) {
	return s.verify(ctx, ident, password)
}

func (s stubProvider) FindIdentityByID(ctx context.Context, id string) (auth.Identity, error) {
	return s.findByID(ctx, id)
}

// memLookup is an in-memory auth.AccountLookup.
type memLookup struct {
	mu       sync.Mutex
	accounts map[string]*auth.Account
}

func newMemLookup(accounts ...*auth.Account) *memLookup {
	m := &memLookup{accounts: map[string]*auth.Account{}}
	for _, a := range accounts {
		m.accounts[a.ID.String()] = a
	}
	return m
}

func (m *memLookup) GetBySignInIdentifier(ctx context.Context, ident auth.Identifier) (*auth.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if ident.Kind == auth.IdentifierEmail && a.Email == ident.Value {
			return a, nil
		}
		if ident.Kind == auth.IdentifierPhone && a.Phone == ident.Value {
			return a, nil
		}
	}
	return nil, repository.NewRecordNotFound()
}

func (m *memLookup) GetByAccountID(ctx context.Context, id string) (*auth.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.accounts[id]; ok {
		return a, nil
	}
	return nil, repository.NewRecordNotFound()
}

// fakeVersionStore counts increments and can fail on demand.
type fakeVersionStore struct {
	mu       sync.Mutex
	versions map[uuid.UUID]int
	calls    int
	failures int
	failWith error
}

func newFakeVersionStore() *fakeVersionStore {
	return &fakeVersionStore{versions: map[uuid.UUID]int{}}
}

func (f *fakeVersionStore) IncrementTokenVersion(ctx context.Context, id uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.failures > 0 {
		f.failures--
		return 0, f.failWith
	}

	if _, ok := f.versions[id]; !ok {
		return 0, repository.NewRecordNotFound()
	}

	f.versions[id]++
	return f.versions[id], nil
}
