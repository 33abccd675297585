// Package migrations embeds the goose SQL migrations of the document store,
// one directory per SQL dialect.
package migrations

import "embed"

//go:embed postgres/*.sql sqlite/*.sql
var Migrations embed.FS
