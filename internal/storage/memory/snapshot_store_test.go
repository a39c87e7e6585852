package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stakepool-monitor/internal/domain"
	"stakepool-monitor/internal/storage"
)

func TestSnapshotStore_InsertAppends(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, &domain.SnapshotRow{Pubkey: "a", Lamports: "1"}))
	require.NoError(t, store.Insert(ctx, &domain.SnapshotRow{Pubkey: "a", Lamports: "1"}))
	require.NoError(t, store.Insert(ctx, &domain.SnapshotRow{Pubkey: "a", Lamports: "2"}))

	rows := store.Rows()
	require.Len(t, rows, 3, "identical rows are not deduplicated")
	assert.Equal(t, "2", rows[2].Lamports)
}

func TestSnapshotStore_InsertNil(t *testing.T) {
	store := NewSnapshotStore()

	err := store.Insert(context.Background(), nil)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
	assert.Equal(t, 0, store.Len())
}

func TestSnapshotStore_StoresCopy(t *testing.T) {
	store := NewSnapshotStore()
	row := &domain.SnapshotRow{Pubkey: "a"}

	require.NoError(t, store.Insert(context.Background(), row))
	row.Pubkey = "mutated"

	assert.Equal(t, "a", store.Rows()[0].Pubkey)
}

func TestSnapshotStore_ConcurrentInsert(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Insert(ctx, &domain.SnapshotRow{Pubkey: "a"})
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, store.Len())
}
