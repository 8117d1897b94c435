package auth

import (
	"embed"
	"io/fs"
)

//go:embed data/sql/migrations
var migrationsFS embed.FS

// GetMigrationsFS returns the migration files for this package
func GetMigrationsFS() embed.FS {
	return migrationsFS
}

// migrationsSubFS roots the embedded FS at the migration files themselves.
func migrationsSubFS() fs.FS {
	sub, err := fs.Sub(migrationsFS, migrationsDir)
	if err != nil {
		// The directory is embedded at compile time; failing to root it
		// is a programming error.
		panic(err)
	}
	return sub
}
