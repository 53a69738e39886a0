// Package migrations embeds the versioned PostgreSQL schema for the
// catalog store.
package migrations

import "embed"

// FS holds the migration files consumed by golang-migrate.
//
//go:embed *.sql
var FS embed.FS
