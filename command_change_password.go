package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type ChangePasswordMessage struct {
	AccountID       string `json:"account_id"`
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	// OnVersion receives the token_version after the bump, before commit.
	OnVersion func(int)
}

func (e ChangePasswordMessage) Type() string { return "account.password.change" }

// ChangePasswordHandler verifies the current password and swaps the hash.
// The swap statement also bumps token_version, so every token issued
// before the change stops verifying the moment the transaction commits —
// a captured old token is useless after a reset.
type ChangePasswordHandler struct {
	repo RepositoryManager
}

func (h *ChangePasswordHandler) Execute(ctx context.Context, event ChangePasswordMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password change",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ChangePasswordHandler) execute(ctx context.Context, event ChangePasswordMessage) error {
	id, err := uuid.Parse(event.AccountID)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid account id")
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		// read through the transaction: the pool connection is held by the
		// tx, and the check-then-swap must see a consistent row
		account, err := h.repo.Accounts().GetByAccountIDTx(ctx, tx, event.AccountID)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrInvalidCredentials
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account for password change")
		}

		if err := ComparePasswordAndHash(event.CurrentPassword, account.PasswordHash); err != nil {
			return ErrInvalidCredentials
		}

		hash, err := HashPassword(event.NewPassword)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid new password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash new password")
		}

		version, err := h.repo.Accounts().ResetPasswordTx(ctx, tx, id, hash)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update account password")
		}

		if event.OnVersion != nil {
			event.OnVersion(version)
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "password change transaction failed")
	}

	return nil
}
