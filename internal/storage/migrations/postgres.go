package migrations

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresExecer is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type PostgresExecer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// RunPostgresMigrations applies all embedded SQL templates in lexical order
// for the given (optionally schema-qualified) table.
// Migrations are expected to be idempotent.
func RunPostgresMigrations(ctx context.Context, db PostgresExecer, table string) error {
	parts := strings.Split(table, ".")
	data := templateData{
		Table: pgx.Identifier(parts).Sanitize(),
		Index: pgx.Identifier{parts[len(parts)-1] + "_pubkey_collected_time_idx"}.Sanitize(),
	}

	migrations, err := renderAll(PostgresFS, "postgres", data)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		// No arguments: pgx uses the simple protocol, which accepts multiple statements.
		if _, err := db.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.name, err)
		}
	}

	return nil
}
