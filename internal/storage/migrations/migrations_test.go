package migrations

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stakepool-monitor/internal/domain"
)

type recordingPostgres struct {
	statements []string
	err        error
}

func (r *recordingPostgres) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	r.statements = append(r.statements, sql)
	return pgconn.CommandTag{}, r.err
}

type recordingClickhouse struct {
	statements []string
}

func (r *recordingClickhouse) Exec(_ context.Context, query string, _ ...any) error {
	r.statements = append(r.statements, query)
	return nil
}

func TestRunPostgresMigrations_RendersTable(t *testing.T) {
	db := &recordingPostgres{}

	require.NoError(t, RunPostgresMigrations(context.Background(), db, "public.bbsol_stakepool"))
	require.Len(t, db.statements, 1)

	sql := db.statements[0]
	assert.Contains(t, sql, `CREATE TABLE IF NOT EXISTS "public"."bbsol_stakepool"`)
	assert.Contains(t, sql, `"bbsol_stakepool_pubkey_collected_time_idx"`)
	assert.NotContains(t, sql, "{{")
}

func TestRunPostgresMigrations_ColumnOrder(t *testing.T) {
	db := &recordingPostgres{}
	require.NoError(t, RunPostgresMigrations(context.Background(), db, "snapshots"))

	assertColumnsInOrder(t, db.statements[0])
}

func TestRunPostgresMigrations_QuotesHostileName(t *testing.T) {
	db := &recordingPostgres{}
	require.NoError(t, RunPostgresMigrations(context.Background(), db, `x"; DROP TABLE y; --`))

	assert.Contains(t, db.statements[0], `"x""; DROP TABLE y; --"`)
}

func TestRunPostgresMigrations_ExecError(t *testing.T) {
	db := &recordingPostgres{err: errors.New("permission denied")}

	err := RunPostgresMigrations(context.Background(), db, "snapshots")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "001_snapshot_table.sql")
}

func TestRunClickhouseMigrations_CreatesDatabase(t *testing.T) {
	conn := &recordingClickhouse{}

	require.NoError(t, RunClickhouseMigrations(context.Background(), conn, "monitor.snapshots"))
	require.Len(t, conn.statements, 2)

	assert.Equal(t, "CREATE DATABASE IF NOT EXISTS `monitor`", conn.statements[0])
	assert.True(t, strings.HasPrefix(conn.statements[1], "CREATE TABLE IF NOT EXISTS `monitor`.`snapshots`"))
	assertColumnsInOrder(t, conn.statements[1])
}

func TestRunClickhouseMigrations_UnqualifiedTable(t *testing.T) {
	conn := &recordingClickhouse{}

	require.NoError(t, RunClickhouseMigrations(context.Background(), conn, "snapshots"))
	require.Len(t, conn.statements, 1)
	assert.Contains(t, conn.statements[0], "MergeTree")
}

func TestSplitStatements(t *testing.T) {
	input := `
-- comment
CREATE TABLE a (x UInt8);

CREATE TABLE b (y UInt8);
`
	stmts := splitStatements(input)
	assert.Equal(t, []string{"CREATE TABLE a (x UInt8)", "CREATE TABLE b (y UInt8)"}, stmts)
}

func TestValidateNoSemicolonInStrings(t *testing.T) {
	assert.NoError(t, validateNoSemicolonInStrings(`SELECT 'it''s'; SELECT 1;`))
	assert.Error(t, validateNoSemicolonInStrings(`SELECT 'a;b';`))
}

// assertColumnsInOrder checks every snapshot column appears in declaration order.
func assertColumnsInOrder(t *testing.T, sql string) {
	t.Helper()

	var lines []string
	for _, line := range strings.Split(sql, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && !strings.HasPrefix(fields[0], "--") && !strings.EqualFold(fields[0], "CREATE") {
			lines = append(lines, fields[0])
		}
	}

	var declared []string
	for _, name := range lines {
		for _, col := range domain.SnapshotColumns {
			if name == col {
				declared = append(declared, name)
			}
		}
	}
	assert.Equal(t, domain.SnapshotColumns, declared)
}
