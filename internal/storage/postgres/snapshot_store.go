package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"stakepool-monitor/internal/domain"
	"stakepool-monitor/internal/observability"
	"stakepool-monitor/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using PostgreSQL.
type SnapshotStore struct {
	pool  *Pool
	query string
}

// NewSnapshotStore creates a SnapshotStore writing to table.
// table may be schema-qualified ("schema.table").
func NewSnapshotStore(pool *Pool, table string) *SnapshotStore {
	return &SnapshotStore{
		pool:  pool,
		query: insertQuery(table),
	}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Insert appends one row with a single parameterized statement.
func (s *SnapshotStore) Insert(ctx context.Context, row *domain.SnapshotRow) error {
	if row == nil {
		return storage.ErrInvalidInput
	}

	start := time.Now()
	_, err := s.pool.Exec(ctx, s.query, row.Values()...)
	observability.RecordDBQuery("postgres", "insert_snapshot", time.Since(start).Seconds(), err)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// QuoteTable quotes a possibly schema-qualified table name.
func QuoteTable(table string) string {
	return pgx.Identifier(strings.Split(table, ".")).Sanitize()
}

func insertQuery(table string) string {
	placeholders := make([]string, len(domain.SnapshotColumns))
	for i := range placeholders {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		QuoteTable(table),
		strings.Join(domain.SnapshotColumns, ", "),
		strings.Join(placeholders, ", "),
	)
}
