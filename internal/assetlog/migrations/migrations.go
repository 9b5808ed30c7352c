// Package migrations embeds the asset log schema for goose.
package migrations

import "embed"

// Migrations holds the SQL migration files applied at startup.
//
//go:embed *.sql
var Migrations embed.FS
