// Package migrations embeds the per-driver schema files applied by
// internal/core/db.MigrateUp.
package migrations

import "embed"

// Embedded migration files bundled at compile time.
//
//go:embed sqlite/*.sql
var SqliteMigrations embed.FS

//go:embed postgres/*.sql
var PostgresMigrations embed.FS
