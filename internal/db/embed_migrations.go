package db

import "embed"

// MigrationFS holds the SQL migrations applied by cmd/migrate and by the server when AUTO_MIGRATE is set.
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
