// Package migrations embeds the SQL schema migrations applied on startup.
package migrations

import "embed"

// FS holds the up and down migrations in golang-migrate file naming.
//
//go:embed *.sql
var FS embed.FS
