package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"stakepool-monitor/internal/domain"
	"stakepool-monitor/internal/observability"
	"stakepool-monitor/internal/storage"
)

// SnapshotSource reads the current state of a stake pool account.
type SnapshotSource interface {
	Fetch(ctx context.Context, pubkey solana.PublicKey) (*domain.RemoteSnapshot, error)
}

// Collector runs one fetch, transform and persist cycle per tick.
type Collector struct {
	source         SnapshotSource
	store          storage.SnapshotStore
	pool           solana.PublicKey
	fetchTimeout   time.Duration
	persistTimeout time.Duration
	now            func() time.Time
	logger         *zap.Logger
}

// CollectorOptions contains configuration for creating a Collector.
type CollectorOptions struct {
	Source         SnapshotSource
	Store          storage.SnapshotStore
	Pool           solana.PublicKey
	FetchTimeout   time.Duration // Default: 15s
	PersistTimeout time.Duration // Default: 10s
	Now            func() time.Time
	Logger         *zap.Logger
}

// NewCollector creates a new snapshot collector.
func NewCollector(opts CollectorOptions) *Collector {
	fetchTimeout := opts.FetchTimeout
	if fetchTimeout == 0 {
		fetchTimeout = 15 * time.Second
	}

	persistTimeout := opts.PersistTimeout
	if persistTimeout == 0 {
		persistTimeout = 10 * time.Second
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Collector{
		source:         opts.Source,
		store:          opts.Store,
		pool:           opts.Pool,
		fetchTimeout:   fetchTimeout,
		persistTimeout: persistTimeout,
		now:            now,
		logger:         logger,
	}
}

// RunCycle fetches the pool account, converts it to a row and appends it to the store.
// Failures are logged and returned as *CycleError; nothing is retried.
func (c *Collector) RunCycle(ctx context.Context, tick Tick) (row *domain.SnapshotRow, err error) {
	stage := StageFetch
	done := observability.CycleStarted()
	logger := c.logger.With(
		zap.Uint64("seq", tick.Seq),
		zap.Bool("aligned", tick.Aligned),
		zap.Time("scheduled", tick.Scheduled),
		zap.Stringer("pubkey", c.pool),
	)

	defer func() {
		if r := recover(); r != nil {
			row = nil
			err = &CycleError{Stage: stage, Err: fmt.Errorf("panic: %v", r)}
		}
		c.report(logger, row, err, done)
	}()

	snap, err := c.fetch(ctx)
	if err != nil {
		return nil, &CycleError{Stage: StageFetch, Err: err}
	}

	stage = StageTransform
	row, err = Transform(snap, c.now())
	if err != nil {
		return nil, &CycleError{Stage: StageTransform, Err: err}
	}
	observability.UpdateObservedSlot(snap.Slot)

	stage = StagePersist
	if err := c.persist(ctx, row); err != nil {
		return nil, &CycleError{Stage: StagePersist, Err: err}
	}

	observability.RecordSnapshot(row.CollectedTime, snap.Data.TotalLamports, snap.Data.PoolTokenSupply)
	return row, nil
}

func (c *Collector) fetch(ctx context.Context) (*domain.RemoteSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()
	return c.source.Fetch(ctx, c.pool)
}

func (c *Collector) persist(ctx context.Context, row *domain.SnapshotRow) error {
	ctx, cancel := context.WithTimeout(ctx, c.persistTimeout)
	defer cancel()
	return c.store.Insert(ctx, row)
}

func (c *Collector) report(logger *zap.Logger, row *domain.SnapshotRow, err error, done func(string)) {
	if err == nil {
		done(observability.OutcomeSuccess)
		logger.Info("snapshot stored",
			zap.Time("collected_time", row.CollectedTime),
			zap.String("total_lamports", row.TotalLamports),
			zap.String("pool_token_supply", row.PoolTokenSupply),
			zap.String("last_update_epoch", row.LastUpdateEpoch),
		)
		return
	}

	stage, _ := StageOf(err)
	switch stage {
	case StageFetch:
		done(observability.OutcomeFetchError)
	case StageTransform:
		done(observability.OutcomeTransformError)
	default:
		done(observability.OutcomePersistError)
	}
	logger.Error("snapshot cycle failed", zap.String("stage", string(stage)), zap.Error(err))
}
