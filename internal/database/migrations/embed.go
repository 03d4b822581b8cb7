package migrations

import "embed"

// FS contains the embedded SQLite migrations for the item schema.
//
//go:embed *.sql
var FS embed.FS
