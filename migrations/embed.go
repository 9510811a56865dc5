// Package migrations встраивает SQL схемы удаленного (postgres) и локального (sqlite) хранилищ.
package migrations

import "embed"

//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS

const (
	PostgresDir = "postgres"
	SQLiteDir   = "sqlite"
)
