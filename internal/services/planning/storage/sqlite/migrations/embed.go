// Package migrations embeds SQLite schema migrations for planning storage.
package migrations

import "embed"

// FS contains embedded SQLite migrations for planning storage.
//
//go:embed *.sql
var FS embed.FS
