package auth_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	auth "github.com/inkpress/go-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func providerReturning(identity auth.Identity, err error) stubProvider {
	return stubProvider{
		verify: func(context.Context, auth.Identifier, string) (auth.Identity, error) {
			return identity, err
		},
		findByID: func(context.Context, string) (auth.Identity, error) {
			return identity, err
		},
	}
}

func TestVersionVerifier(t *testing.T) {
	svc := newTestTokenService(t)
	ctx := context.Background()

	t.Run("fresh token verifies", func(t *testing.T) {
		ada := adaIdentity(2)
		verifier := auth.NewVersionVerifier(svc, providerReturning(ada, nil), testLogger{})

		token, err := svc.Issue(ada, ada.TokenVersion())
		require.NoError(t, err)

		identity, err := verifier.Verify(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, ada.ID(), identity.ID())
		assert.Equal(t, 2, identity.TokenVersion())
	})

	t.Run("stale counter is revoked", func(t *testing.T) {
		ada := adaIdentity(2)
		token, err := svc.Issue(ada, ada.TokenVersion())
		require.NoError(t, err)

		// counter bumped after issuance
		bumped := adaIdentity(3)
		verifier := auth.NewVersionVerifier(svc, providerReturning(bumped, nil), testLogger{})

		_, err = verifier.Verify(ctx, token)
		require.Error(t, err)
		assert.True(t, auth.IsTokenRevokedError(err))
	})

	t.Run("deleted account is revoked", func(t *testing.T) {
		ada := adaIdentity(0)
		token, err := svc.Issue(ada, 0)
		require.NoError(t, err)

		verifier := auth.NewVersionVerifier(svc, providerReturning(nil, repository.NewRecordNotFound()), testLogger{})

		_, err = verifier.Verify(ctx, token)
		require.Error(t, err)
		assert.True(t, auth.IsTokenRevokedError(err))
	})

	t.Run("store failure fails closed as unavailable", func(t *testing.T) {
		ada := adaIdentity(0)
		token, err := svc.Issue(ada, 0)
		require.NoError(t, err)

		verifier := auth.NewVersionVerifier(svc, providerReturning(nil, fmt.Errorf("dial tcp: connection refused")), testLogger{})

		_, err = verifier.Verify(ctx, token)
		require.Error(t, err)
		assert.True(t, auth.IsUnavailableError(err))
		assert.False(t, auth.IsTokenRevokedError(err))
	})

	t.Run("caller deadline fails closed as unavailable", func(t *testing.T) {
		ada := adaIdentity(0)
		token, err := svc.Issue(ada, 0)
		require.NoError(t, err)

		slow := stubProvider{
			findByID: func(ctx context.Context, id string) (auth.Identity, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			},
		}
		verifier := auth.NewVersionVerifier(svc, slow, testLogger{})

		deadlineCtx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
		defer cancel()

		_, err = verifier.Verify(deadlineCtx, token)
		require.Error(t, err)
		assert.True(t, auth.IsUnavailableError(err))
		assert.False(t, auth.IsTokenRevokedError(err))
	})

	t.Run("expired token never reaches the store", func(t *testing.T) {
		ada := adaIdentity(0)
		token, _, err := auth.MintToken(svc, ada, 0, auth.TokenOptions{
			TTL:      time.Minute,
			IssuedAt: time.Now().Add(-time.Hour),
		})
		require.NoError(t, err)

		called := false
		provider := stubProvider{
			findByID: func(context.Context, string) (auth.Identity, error) {
				called = true
				return ada, nil
			},
		}
		verifier := auth.NewVersionVerifier(svc, provider, testLogger{})

		_, err = verifier.Verify(ctx, token)
		require.Error(t, err)
		assert.True(t, auth.IsTokenExpiredError(err))
		assert.False(t, called)
	})

	t.Run("tampered token is malformed", func(t *testing.T) {
		ada := adaIdentity(0)
		verifier := auth.NewVersionVerifier(svc, providerReturning(ada, nil), testLogger{})

		token, err := svc.Issue(ada, 0)
		require.NoError(t, err)

		_, err = verifier.Verify(ctx, token+"tampered")
		require.Error(t, err)
		assert.True(t, auth.IsMalformedError(err))
	})
}

func TestTokenVerifierFunc(t *testing.T) {
	t.Run("nil func is malformed", func(t *testing.T) {
		var f auth.TokenVerifierFunc
		_, err := f.Verify(context.Background(), "whatever")
		assert.True(t, auth.IsMalformedError(err))
	})

	t.Run("delegates", func(t *testing.T) {
		ada := adaIdentity(1)
		f := auth.TokenVerifierFunc(func(context.Context, string) (auth.Identity, error) {
			return ada, nil
		})
		identity, err := f.Verify(context.Background(), "raw")
		require.NoError(t, err)
		assert.Equal(t, ada.ID(), identity.ID())
	})
}
