// Package migrations embeds the schema migrations applied by golang-migrate.
package migrations

import "embed"

// FS holds every *.up.sql file, applied in version order.
//
//go:embed *.up.sql
var FS embed.FS
