package db

import "io/fs"

var (
	RecordsSQL     = recordsSQL
	RecordsPageSQL = recordsPageSQL
)

// MigrationFiles lists the embedded migration files.
func MigrationFiles() ([]string, error) {
	return fs.Glob(migrations, "migrations/*.sql")
}
