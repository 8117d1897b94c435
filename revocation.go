package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
)

// VersionStore is the slice of the accounts store the revoker needs.
type VersionStore interface {
	IncrementTokenVersion(ctx context.Context, id uuid.UUID) (int, error)
}

// Revoker advances an account's token_version, instantly invalidating
// every previously issued token for that account. There is no revocation
// list to maintain and nothing to recall: stale tokens simply stop
// verifying.
type Revoker struct {
	store      VersionStore
	logger     Logger
	maxRetries uint64
	backoff    time.Duration
}

// NewRevoker returns a Revoker over the accounts store.
func NewRevoker(store VersionStore) *Revoker {
	return &Revoker{
		store:      store,
		logger:     defLogger{},
		maxRetries: 3,
		backoff:    50 * time.Millisecond,
	}
}

func (r *Revoker) WithLogger(l Logger) *Revoker {
	if l != nil {
		r.logger = l
	}
	return r
}

// WithRetry overrides the transient-failure retry policy.
func (r *Revoker) WithRetry(maxRetries uint64, backoff time.Duration) *Revoker {
	r.maxRetries = maxRetries
	r.backoff = backoff
	return r
}

// RevokeAll bumps the counter and returns the new version. Transient store
// failures are retried with fibonacci backoff; an unknown account is not
// retried. Repeated calls keep incrementing, so the operation is
// idempotent in effect without ever re-validating an old token.
func (r *Revoker) RevokeAll(ctx context.Context, accountID string) (int, error) {
	id, err := uuid.Parse(accountID)
	if err != nil {
		return 0, errors.Wrap(err, errors.CategoryBadInput, "invalid account id")
	}

	var version int
	backoff := retry.WithMaxRetries(r.maxRetries, retry.NewFibonacci(r.backoff))

	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		v, err := r.store.IncrementTokenVersion(ctx, id)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return err
			}
			r.logger.Warn("RevokeAll transient store failure for account %s, retrying: %v", accountID, err)
			return retry.RetryableError(err)
		}
		version = v
		return nil
	})

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return 0, ErrAccountNotFound
		}
		return 0, errors.Wrap(err, errors.CategoryInternal, "failed to revoke tokens")
	}

	r.logger.Info("revoked all tokens for account %s, token_version=%d", accountID, version)
	return version, nil
}
