package auth

import (
	"context"
	"fmt"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Identity holds the attributes of an authenticated account
type Identity interface {
	ID() string
	Name() string
	Email() string
	Phone() string
	TokenVersion() int
}

// Authenticator holds methods to deal with authentication
type Authenticator interface {
	SignUp(ctx context.Context, payload SignUpPayload) (*Account, error)
	SignIn(ctx context.Context, payload SignInPayload) (string, Identity, error)
	ChangePassword(ctx context.Context, accountID, current, next string) error
	RevokeAll(ctx context.Context, accountID string) (int, error)
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetSigningMethod() string
	GetContextKey() string
	GetTokenExpiration() int
	GetTokenLookup() string
	GetAuthScheme() string
	GetIssuer() string
	GetAudience() []string
}

// IdentityProvider resolves sign-in identifiers against the account store.
type IdentityProvider interface {
	VerifyIdentity(ctx context.Context, ident Identifier, password string) (Identity, error)
	FindIdentityByID(ctx context.Context, id string) (Identity, error)
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// TokenService mints and validates signed tokens. Validate only covers
// signature and registered-claim checks; counter freshness belongs to
// TokenVerifier.
type TokenService interface {
	Issue(identity Identity, tokenVersion int) (string, error)
	SignClaims(claims *JWTClaims) (string, error)
	Validate(raw string) (AuthClaims, error)
}

// TokenVerifier performs the full three-step check: signature, expiry,
// and counter freshness against the account store.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (Identity, error)
}

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
