package ayushya

import "embed"

// Dialect-suffixed migration files, registered against the store by the
// process entry point.
//
//go:embed data/sql/migrations
var migrationsFS embed.FS

// GetMigrationsFS exposes the embedded migrations to the persistence layer.
func GetMigrationsFS() embed.FS {
	return migrationsFS
}
