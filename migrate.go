package auth

import (
	"context"
	"database/sql"

	"github.com/goliatone/go-errors"
	"github.com/pressly/goose/v3"
)

const migrationsDir = "data/sql/migrations"

// RunMigrations applies the embedded schema migrations. Every migration is
// additive and carries a down step, so the token_version and image columns
// can be rolled back independently.
func RunMigrations(ctx context.Context, db *sql.DB, dialect string) error {
	provider, err := goose.NewProvider(goose.Dialect(dialect), db, migrationsSubFS())
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to initialize migration provider")
	}

	if _, err := provider.Up(ctx); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to apply migrations")
	}

	return nil
}

// RollbackMigration reverts the most recent migration.
func RollbackMigration(ctx context.Context, db *sql.DB, dialect string) error {
	provider, err := goose.NewProvider(goose.Dialect(dialect), db, migrationsSubFS())
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to initialize migration provider")
	}

	if _, err := provider.Down(ctx); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to roll back migration")
	}

	return nil
}
