package migrations

import "embed"

// PostgresFS embeds all PostgreSQL migration templates.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// ClickhouseFS embeds all ClickHouse migration templates.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS
