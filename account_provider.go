package auth

import (
	"context"

	"github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
)

// AccountLookup is the slice of the store the provider needs.
type AccountLookup interface {
	GetBySignInIdentifier(ctx context.Context, ident Identifier) (*Account, error)
	GetByAccountID(ctx context.Context, id string) (*Account, error)
}

// AccountProvider resolves identifiers against the account store and
// verifies credentials.
type AccountProvider struct {
	store  AccountLookup
	logger Logger
}

// NewAccountProvider will create a new AccountProvider
func NewAccountProvider(store AccountLookup) *AccountProvider {
	return &AccountProvider{
		store:  store,
		logger: defLogger{},
	}
}

func (p *AccountProvider) WithLogger(l Logger) *AccountProvider {
	if l != nil {
		p.logger = l
	}
	return p
}

var _ IdentityProvider = (*AccountProvider)(nil)

// VerifyIdentity finds the account behind the identifier and compares the
// password. Unknown identifier and wrong password produce the same
// ErrInvalidCredentials so callers cannot enumerate accounts; a miss still
// pays for a bcrypt comparison against a throwaway digest.
func (p *AccountProvider) VerifyIdentity(ctx context.Context, ident Identifier, password string) (Identity, error) {
	account, err := p.store.GetBySignInIdentifier(ctx, ident)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			ComparePasswordAndHash(password, RandomPasswordHash())
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve account during verification")
	}

	if err := ComparePasswordAndHash(password, account.PasswordHash); err != nil {
		return nil, ErrInvalidCredentials
	}

	return account.Identity(), nil
}

// FindIdentityByID loads the identity snapshot, token_version included,
// for the freshness check on the verification path.
func (p *AccountProvider) FindIdentityByID(ctx context.Context, id string) (Identity, error) {
	account, err := p.store.GetByAccountID(ctx, id)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	return account.Identity(), nil
}
