// Package migrations embeds the SQL schema files for the catalog store.
package migrations

import "embed"

// Files holds the ordered .up.sql migration files, applied at startup via
// database.RunMigrations.
//
//go:embed *.up.sql
var Files embed.FS
