// Package migrations embeds the ledger's SQL schema.
package migrations

import "embed"

// FS holds the goose migrations, applied in version order.
//
//go:embed *.sql
var FS embed.FS
