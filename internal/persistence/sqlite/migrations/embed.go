// Package migrations holds the SQL schema of the student store.
package migrations

import "embed"

// FS contains every versioned migration file.
//
//go:embed *.sql
var FS embed.FS
