// Package migrations holds the versioned SQL schema, compiled into the
// binaries so the server and the migrate tool need no files on disk.
package migrations

import "embed"

// FS contains every *.up.sql and *.down.sql file in this directory
//
//go:embed *.sql
var FS embed.FS
