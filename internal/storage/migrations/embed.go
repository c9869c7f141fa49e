// Package migrations holds the embedded schema for both backends and the
// runners that apply it. Files apply in lexical order and are written to be
// idempotent, so re-running at every daemon start is safe.
package migrations

import "embed"

//go:embed postgres/*.sql
var postgresFS embed.FS

//go:embed clickhouse/*.sql
var clickhouseFS embed.FS
