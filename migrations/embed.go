// Package migrations ships the SQL schema applied by `orders-server migrate up`.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
