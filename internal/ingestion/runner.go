package ingestion

import (
	"context"
	"time"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"

	"stakepool-monitor/internal/domain"
)

// CycleRunner executes one snapshot cycle for a tick.
type CycleRunner interface {
	RunCycle(ctx context.Context, tick Tick) (*domain.SnapshotRow, error)
}

// TickSource produces ticks until its context is cancelled.
type TickSource interface {
	Run(ctx context.Context) <-chan Tick
}

// Runner feeds scheduler ticks to a bounded worker pool of snapshot cycles.
type Runner struct {
	ticks         TickSource
	cycles        CycleRunner
	concurrency   int
	shutdownGrace time.Duration
	logger        *zap.Logger
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	Ticks         TickSource
	Cycles        CycleRunner
	Concurrency   int           // Default: 4. 1 serializes cycles.
	ShutdownGrace time.Duration // Default: 10s
	Logger        *zap.Logger
}

// NewRunner creates a new snapshot runner.
func NewRunner(opts RunnerOptions) *Runner {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	shutdownGrace := opts.ShutdownGrace
	if shutdownGrace == 0 {
		shutdownGrace = 10 * time.Second
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Runner{
		ticks:         opts.Ticks,
		cycles:        opts.Cycles,
		concurrency:   concurrency,
		shutdownGrace: shutdownGrace,
		logger:        logger,
	}
}

// Run blocks until ctx is cancelled. Cycles already started keep running with
// their own context for up to the shutdown grace period, then they are cancelled.
func (r *Runner) Run(ctx context.Context) error {
	workCtx, cancelWork := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelWork()

	pool := pond.NewPool(r.concurrency, pond.WithContext(workCtx))

	r.logger.Info("runner started",
		zap.Int("concurrency", r.concurrency),
		zap.Duration("shutdown_grace", r.shutdownGrace),
	)

	for tick := range r.ticks.Run(ctx) {
		tick := tick
		pool.Submit(func() {
			// Outcome is reported by the cycle itself.
			_, _ = r.cycles.RunCycle(workCtx, tick)
		})
	}

	r.drain(pool, cancelWork)
	return nil
}

func (r *Runner) drain(pool pond.Pool, cancelWork context.CancelFunc) {
	pending := pool.RunningWorkers()
	r.logger.Info("draining in-flight cycles", zap.Int64("running", pending))

	stopped := pool.Stop()
	timer := time.NewTimer(r.shutdownGrace)
	defer timer.Stop()

	select {
	case <-stopped.Done():
		r.logger.Info("runner stopped")
	case <-timer.C:
		r.logger.Warn("shutdown grace elapsed, cancelling in-flight cycles",
			zap.Int64("running", pool.RunningWorkers()),
		)
		cancelWork()
		<-stopped.Done()
		r.logger.Info("runner stopped")
	}
}
