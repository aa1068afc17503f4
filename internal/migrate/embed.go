package migrate

import "embed"

// Files holds the schema migrations and seeds shipped with the binary.
//
//go:embed sql/*.sql seeds/*.sql
var Files embed.FS
