// Package migrations holds the send ledger schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
