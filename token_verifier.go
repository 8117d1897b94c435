package auth

import (
	"context"
	stderrors "errors"

	"github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
)

// TokenVerifierFunc adapts a function into a TokenVerifier.
type TokenVerifierFunc func(ctx context.Context, raw string) (Identity, error)

// Verify satisfies the TokenVerifier interface.
func (f TokenVerifierFunc) Verify(ctx context.Context, raw string) (Identity, error) {
	if f == nil {
		return nil, ErrTokenMalformed
	}
	return f(ctx, raw)
}

// VersionVerifier runs the full verification sequence: signature, expiry,
// then counter freshness. The freshness step costs one account-store read
// per verification; that read is the price of stateless revocation, so it
// must not be cached away.
type VersionVerifier struct {
	tokens   TokenService
	provider IdentityProvider
	logger   Logger
}

// NewVersionVerifier returns a verifier bound to a token service and an
// identity provider.
func NewVersionVerifier(tokens TokenService, provider IdentityProvider, logger Logger) *VersionVerifier {
	if logger == nil {
		logger = defLogger{}
	}
	return &VersionVerifier{
		tokens:   tokens,
		provider: provider,
		logger:   logger,
	}
}

var _ TokenVerifier = (*VersionVerifier)(nil)

// Verify checks the token in order: (a) signature integrity, (b) expiry,
// (c) counter freshness against the stored account. A store failure or a
// caller deadline fails closed with ErrStoreUnavailable, never with
// ErrTokenRevoked, so "could not check" stays distinct from "known
// invalid".
func (v *VersionVerifier) Verify(ctx context.Context, raw string) (Identity, error) {
	claims, err := v.tokens.Validate(raw)
	if err != nil {
		return nil, err
	}

	identity, err := v.provider.FindIdentityByID(ctx, claims.AccountID())
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
			return nil, errors.Wrap(err, ErrStoreUnavailable.Category, ErrStoreUnavailable.Message).
				WithTextCode(ErrStoreUnavailable.TextCode)
		}
		if repository.IsRecordNotFound(err) || stderrors.Is(err, ErrAccountNotFound) {
			// The account no longer exists; every token it ever issued
			// is dead.
			return nil, ErrTokenRevoked
		}
		v.logger.Error("VersionVerifier account lookup failed: %v", err)
		return nil, errors.Wrap(err, ErrStoreUnavailable.Category, ErrStoreUnavailable.Message).
			WithTextCode(ErrStoreUnavailable.TextCode)
	}

	if identity.TokenVersion() != claims.Version() {
		return nil, ErrTokenRevoked
	}

	return identity, nil
}
