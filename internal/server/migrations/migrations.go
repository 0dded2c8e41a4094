// Package migrations embeds the goose migrations of the indexed record
// store. The SQL is shared by the Postgres and SQLite dialects.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
