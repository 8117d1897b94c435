package auth

import (
	"context"
	stderrors "errors"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// IncrementTokenVersionSQL bumps the revocation counter in a single
// statement. The read-modify-write happens inside the database so two
// concurrent revocations can never collapse into one increment.
var IncrementTokenVersionSQL = `UPDATE accounts
SET
	token_version = token_version + 1,
	updated_at = CURRENT_TIMESTAMP
WHERE
	id = ?
AND deleted_at IS NULL
RETURNING token_version;`

// ResetAccountPasswordSQL swaps the password hash and bumps the counter in
// the same statement: a password change atomically revokes every
// outstanding token.
var ResetAccountPasswordSQL = `UPDATE accounts
SET
	password_hash = ?,
	token_version = token_version + 1,
	updated_at = CURRENT_TIMESTAMP
WHERE
	id = ?
AND deleted_at IS NULL
RETURNING token_version;`

type Accounts interface {
	repository.Repository[*Account]

	Register(ctx context.Context, account *Account) (*Account, error)
	RegisterTx(ctx context.Context, tx bun.IDB, account *Account) (*Account, error)
	Create(ctx context.Context, record *Account, criteria ...repository.InsertCriteria) (*Account, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Account, criteria ...repository.InsertCriteria) (*Account, error)

	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByPhone(ctx context.Context, phone string) (*Account, error)
	GetByAccountID(ctx context.Context, id string) (*Account, error)
	GetByAccountIDTx(ctx context.Context, tx bun.IDB, id string) (*Account, error)
	GetBySignInIdentifier(ctx context.Context, ident Identifier) (*Account, error)

	IncrementTokenVersion(ctx context.Context, id uuid.UUID) (int, error)
	IncrementTokenVersionTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (int, error)

	ResetPassword(ctx context.Context, id uuid.UUID, passwordHash string) (int, error)
	ResetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) (int, error)
}

type accounts struct {
	repository.Repository[*Account]
	db *bun.DB
}

var (
	_ Accounts                        = (*accounts)(nil)
	_ repository.Repository[*Account] = (*accounts)(nil)
)

func NewAccountsRepository(db *bun.DB) Accounts {
	repo := repository.NewRepository[*Account](db, repository.ModelHandlers[*Account]{
		NewRecord: func() *Account { return &Account{} },
		GetID: func(a *Account) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Account, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &accounts{
		Repository: repo,
		db:         db,
	}
}

func (a *accounts) Register(ctx context.Context, account *Account) (*Account, error) {
	return a.RegisterTx(ctx, a.db, account)
}

func (a *accounts) RegisterTx(ctx context.Context, tx bun.IDB, account *Account) (*Account, error) {
	return a.CreateTx(ctx, tx, account)
}

func (a *accounts) Create(ctx context.Context, record *Account, criteria ...repository.InsertCriteria) (*Account, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *accounts) CreateTx(ctx context.Context, tx bun.IDB, record *Account, criteria ...repository.InsertCriteria) (*Account, error) {
	prepareAccountDefaults(record)

	created, err := a.Repository.CreateTx(ctx, tx, record, criteria...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateIdentifier.Clone().WithMetadata(map[string]any{
				"email": record.Email,
				"phone": record.Phone,
			})
		}
		return nil, err
	}

	return created, nil
}

func (a *accounts) GetByEmail(ctx context.Context, email string) (*Account, error) {
	// email is stored lowercased; normalize the lookup the same way so an
	// account can always sign in with the exact string it registered with
	return a.getByColumn(ctx, a.db, "email", strings.ToLower(strings.TrimSpace(email)))
}

func (a *accounts) GetByPhone(ctx context.Context, phone string) (*Account, error) {
	return a.getByColumn(ctx, a.db, "phone", strings.TrimSpace(phone))
}

func (a *accounts) GetByAccountID(ctx context.Context, id string) (*Account, error) {
	return a.GetByAccountIDTx(ctx, a.db, id)
}

func (a *accounts) GetByAccountIDTx(ctx context.Context, tx bun.IDB, id string) (*Account, error) {
	if !isUUID(strings.TrimSpace(id)) {
		return nil, repository.NewRecordNotFound().WithMetadata(map[string]any{
			"id": id,
		})
	}
	return a.getByColumn(ctx, tx, "id", strings.TrimSpace(id))
}

func (a *accounts) GetBySignInIdentifier(ctx context.Context, ident Identifier) (*Account, error) {
	switch ident.Kind {
	case IdentifierEmail:
		return a.GetByEmail(ctx, ident.Value)
	case IdentifierPhone:
		if normalized, err := NormalizePhone(ident.Value); err == nil {
			return a.GetByPhone(ctx, normalized)
		}
		return a.GetByPhone(ctx, ident.Value)
	default:
		return nil, repository.NewRecordNotFound().WithMetadata(map[string]any{
			"identifier": ident.Value,
		})
	}
}

func (a *accounts) getByColumn(ctx context.Context, idb bun.IDB, column, value string) (*Account, error) {
	record := &Account{}
	err := idb.NewSelect().
		Model(record).
		Where("?TableAlias."+column+" = ?", value).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().WithMetadata(map[string]any{
				column: value,
			})
		}
		return nil, err
	}

	return record, nil
}

func (a *accounts) IncrementTokenVersion(ctx context.Context, id uuid.UUID) (int, error) {
	return a.IncrementTokenVersionTx(ctx, a.db, id)
}

func (a *accounts) IncrementTokenVersionTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (int, error) {
	var version int
	err := tx.NewRaw(IncrementTokenVersionSQL, id.String()).Scan(ctx, &version)
	if err != nil {
		if repository.IsRecordNotFound(err) || isNoRows(err) {
			return 0, repository.NewRecordNotFound().WithMetadata(map[string]any{
				"id": id.String(),
			})
		}
		return 0, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to increment token version")
	}

	return version, nil
}

func (a *accounts) ResetPassword(ctx context.Context, id uuid.UUID, passwordHash string) (int, error) {
	return a.ResetPasswordTx(ctx, a.db, id, passwordHash)
}

func (a *accounts) ResetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) (int, error) {
	var version int
	err := tx.NewRaw(ResetAccountPasswordSQL, passwordHash, id.String()).Scan(ctx, &version)
	if err != nil {
		if repository.IsRecordNotFound(err) || isNoRows(err) {
			return 0, repository.NewRecordNotFound().WithMetadata(map[string]any{
				"id": id.String(),
			})
		}
		return 0, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to reset account password")
	}

	return version, nil
}

func prepareAccountDefaults(record *Account) {
	if record == nil {
		return
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	record.Email = strings.TrimSpace(strings.ToLower(record.Email))
}

// isUniqueViolation walks the unwrap chain down to the driver error; the
// repository wraps constraint violations in structured errors whose
// top-level message hides the driver text.
func isUniqueViolation(err error) bool {
	for err != nil {
		msg := err.Error()
		if strings.Contains(msg, "UNIQUE constraint failed") ||
			strings.Contains(msg, "duplicate key value") ||
			strings.Contains(msg, "constraint failed: accounts") {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

func isNoRows(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no rows in result set")
}
