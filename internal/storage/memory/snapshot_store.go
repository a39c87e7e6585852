package memory

import (
	"context"
	"sync"

	"stakepool-monitor/internal/domain"
	"stakepool-monitor/internal/storage"
)

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
type SnapshotStore struct {
	mu   sync.RWMutex
	rows []domain.SnapshotRow
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

// Insert appends a copy of row.
func (s *SnapshotStore) Insert(_ context.Context, row *domain.SnapshotRow) error {
	if row == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.rows = append(s.rows, *row)
	return nil
}

// Rows returns all stored rows in insertion order.
func (s *SnapshotStore) Rows() []domain.SnapshotRow {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.SnapshotRow, len(s.rows))
	copy(out, s.rows)
	return out
}

// Len returns the number of stored rows.
func (s *SnapshotStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

var _ storage.SnapshotStore = (*SnapshotStore)(nil)
