// Package migrations embeds the SQL schema of both databases and applies it
// statement by statement through a caller-supplied executor.
package migrations

import "embed"

//go:embed postgres/*.sql clickhouse/*.sql
var files embed.FS

// Schema directories inside the embedded tree.
const (
	Postgres   = "postgres"   // saved conditions
	Clickhouse = "clickhouse" // daily snapshots
)
