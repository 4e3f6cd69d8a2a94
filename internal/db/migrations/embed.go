// Package migrations provides embedded SQL migration files.
// They are applied at startup when RUN_MIGRATIONS=true, or via the
// golang-migrate CLI in deployments that manage schema separately.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
