package migrations

import (
	"context"
	"fmt"
	"strings"
)

// ClickhouseExecer is satisfied by clickhouse-go driver.Conn.
type ClickhouseExecer interface {
	Exec(ctx context.Context, query string, args ...any) error
}

// RunClickhouseMigrations applies all embedded SQL templates for table.
// A "db.table" name creates the database first.
func RunClickhouseMigrations(ctx context.Context, conn ClickhouseExecer, table string) error {
	parts := strings.Split(table, ".")
	if len(parts) == 2 {
		if err := conn.Exec(ctx, "CREATE DATABASE IF NOT EXISTS "+quoteClickhouse(parts[0])); err != nil {
			return fmt.Errorf("create database %s: %w", parts[0], err)
		}
	}

	quoted := make([]string, len(parts))
	for i, p := range parts {
		quoted[i] = quoteClickhouse(p)
	}

	migrations, err := renderAll(ClickhouseFS, "clickhouse", templateData{Table: strings.Join(quoted, ".")})
	if err != nil {
		return err
	}

	for _, m := range migrations {
		// Validate SQL doesn't contain semicolons in strings (would break splitter)
		if err := validateNoSemicolonInStrings(m.sql); err != nil {
			return fmt.Errorf("validate migration %s: %w", m.name, err)
		}

		// ClickHouse driver doesn't support multiquery in Exec
		for _, stmt := range splitStatements(m.sql) {
			if err := conn.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("apply migration %s: %w", m.name, err)
			}
		}
	}

	return nil
}

func quoteClickhouse(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "\\`") + "`"
}

// splitStatements splits SQL content into individual statements by semicolon.
//
// The splitter does not understand semicolons inside string literals or
// block comments; validateNoSemicolonInStrings rejects the former.
func splitStatements(input string) []string {
	var filtered []string
	for _, line := range strings.Split(input, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		filtered = append(filtered, line)
	}
	joined := strings.Join(filtered, "\n")

	var stmts []string
	for _, part := range strings.Split(joined, ";") {
		stmt := strings.TrimSpace(part)
		if stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

// validateNoSemicolonInStrings checks that SQL doesn't contain semicolons inside
// single-quoted strings, which would break our simple statement splitter.
func validateNoSemicolonInStrings(sql string) error {
	inString := false
	for i := 0; i < len(sql); i++ {
		ch := sql[i]
		if ch == '\'' {
			// Handle escaped quotes ''
			if i+1 < len(sql) && sql[i+1] == '\'' {
				i++
				continue
			}
			inString = !inString
		} else if ch == ';' && inString {
			return fmt.Errorf("semicolon found inside string literal")
		}
	}
	return nil
}
