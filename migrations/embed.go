// Package migrations embeds the conductor's SQL schema migrations.
package migrations

import "embed"

// FS holds every *.up.sql file in this directory at its root.
//
//go:embed *.sql
var FS embed.FS
