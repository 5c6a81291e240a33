// Package migrations embeds the history store schema, one directory per
// SQL dialect. Files apply in name order and are checksum tracked.
package migrations

import "embed"

//go:embed sqlite/*.sql
var SqliteMigrations embed.FS

//go:embed postgres/*.sql
var PostgresMigrations embed.FS
