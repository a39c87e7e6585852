package storage

import (
	"context"

	"stakepool-monitor/internal/domain"
)

// SnapshotStore appends stake pool snapshots. Rows are never updated or deleted.
type SnapshotStore interface {
	// Insert appends one row. Returns ErrInvalidInput for a nil row.
	Insert(ctx context.Context, row *domain.SnapshotRow) error
}
