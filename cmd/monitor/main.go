// Command monitor appends periodic snapshots of one SPL stake pool account to a store.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"stakepool-monitor/internal/config"
	"stakepool-monitor/internal/ingestion"
	"stakepool-monitor/internal/logging"
	"stakepool-monitor/internal/observability"
	"stakepool-monitor/internal/solana"
	"stakepool-monitor/internal/stakepool"
	"stakepool-monitor/internal/storage"
	chstore "stakepool-monitor/internal/storage/clickhouse"
	"stakepool-monitor/internal/storage/memory"
	"stakepool-monitor/internal/storage/migrations"
	pgstore "stakepool-monitor/internal/storage/postgres"
)

// forceExitAfter is added to the shutdown grace before a stuck shutdown is aborted.
const forceExitAfter = 20 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "monitor: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "monitor: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		var sig os.Signal
		select {
		case sig = <-sigCh:
		case <-done:
			return
		}
		logger.Info("received signal, shutting down", zap.Stringer("signal", sig))
		cancel()

		// A second signal or a stuck drain forces exit.
		select {
		case sig := <-sigCh:
			logger.Warn("received second signal, forcing exit", zap.Stringer("signal", sig))
		case <-time.After(cfg.Cycle.ShutdownGrace + forceExitAfter):
			logger.Error("graceful shutdown timed out, forcing exit")
		case <-done:
			return
		}
		_ = logger.Sync()
		os.Exit(1)
	}()

	err = run(ctx, cfg, logger)
	close(done)

	if err != nil {
		logger.Error("monitor stopped", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}

	logger.Info("shutdown complete")
	_ = logger.Sync()
}

// run wires the components and blocks until ctx is cancelled or a component fails.
func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	boundary, err := ingestion.ParseSchedule(cfg.Schedule.Spec)
	if err != nil {
		return fmt.Errorf("%w: SCHEDULE_SPEC: %v", config.ErrInvalidConfig, err)
	}

	rpc := solana.NewHTTPClient(cfg.Solana.Endpoint,
		solana.WithMaxRetries(cfg.Solana.MaxRetries),
		solana.WithRetryDelay(cfg.Solana.RetryDelay),
		solana.WithMaxDelay(cfg.Solana.MaxDelay),
		solana.WithTimeout(cfg.Cycle.FetchTimeout),
	)
	checkRPC(ctx, rpc, logger)

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	collector := ingestion.NewCollector(ingestion.CollectorOptions{
		Source:         stakepool.NewReader(rpc, stakepool.WithCommitment(cfg.Solana.Commitment)),
		Store:          store,
		Pool:           cfg.StakePool,
		FetchTimeout:   cfg.Cycle.FetchTimeout,
		PersistTimeout: cfg.Cycle.PersistTimeout,
		Logger:         logger.Named("collector"),
	})

	scheduler := ingestion.NewScheduler(boundary,
		ingestion.WithInterval(cfg.Schedule.Interval),
		ingestion.WithSchedulerLogger(logger.Named("scheduler")),
	)

	runner := ingestion.NewRunner(ingestion.RunnerOptions{
		Ticks:         scheduler,
		Cycles:        collector,
		Concurrency:   cfg.Cycle.Concurrency,
		ShutdownGrace: cfg.Cycle.ShutdownGrace,
		Logger:        logger.Named("runner"),
	})

	logger.Info("monitoring stake pool",
		zap.Stringer("pubkey", cfg.StakePool),
		zap.String("table", cfg.Table),
		zap.String("backend", cfg.StoreBackend),
		zap.String("schedule", cfg.Schedule.Spec),
		zap.Duration("interval", cfg.Schedule.Interval),
		zap.Duration("first_tick_in", scheduler.NextDelay(time.Now())),
	)

	g, gctx := errgroup.WithContext(ctx)

	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           metricsMux(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Info("starting metrics server", zap.String("addr", cfg.MetricsAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("metrics server shutdown", zap.Error(err))
			}
			return nil
		})
	}

	g.Go(func() error {
		return runner.Run(gctx)
	})

	return g.Wait()
}

// checkRPC logs whether the endpoint answers. An unreachable node is not fatal;
// each cycle reports its own fetch failure.
func checkRPC(ctx context.Context, rpc solana.RPCClient, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	slot, err := rpc.GetSlot(ctx)
	if err != nil {
		logger.Warn("rpc endpoint not reachable", zap.Error(err))
		return
	}
	logger.Info("connected to rpc endpoint", zap.Int64("slot", slot))
}

// openStore connects the configured backend and optionally applies migrations.
// The returned func releases the backend's connections.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.SnapshotStore, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		logger.Warn("using in-memory store; snapshots are not persisted")
		return memory.NewSnapshotStore(), func() {}, nil

	case config.BackendClickhouse:
		conn, err := chstore.NewConn(ctx, cfg.Clickhouse.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		closeConn := func() {
			if err := conn.Close(); err != nil {
				logger.Warn("close clickhouse connection", zap.Error(err))
			}
		}
		if cfg.Migrate {
			if err := migrations.RunClickhouseMigrations(ctx, conn, cfg.Table); err != nil {
				closeConn()
				return nil, nil, fmt.Errorf("migrate clickhouse: %w", err)
			}
			logger.Info("clickhouse migrations applied", zap.String("table", cfg.Table))
		}
		return chstore.NewSnapshotStore(conn, cfg.Table), closeConn, nil

	default:
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN(), pgstore.WithMaxConns(cfg.Postgres.MaxConns))
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres %s/%s: %w", cfg.Postgres.Host, cfg.Postgres.Database, err)
		}
		logger.Info("connected to postgres",
			zap.String("host", cfg.Postgres.Host),
			zap.String("database", cfg.Postgres.Database),
			zap.Int32("max_conns", cfg.Postgres.MaxConns),
		)
		if cfg.Migrate {
			if err := migrations.RunPostgresMigrations(ctx, pool, cfg.Table); err != nil {
				pool.Close()
				return nil, nil, fmt.Errorf("migrate postgres: %w", err)
			}
			logger.Info("postgres migrations applied", zap.String("table", cfg.Table))
		}
		return pgstore.NewSnapshotStore(pool, cfg.Table), pool.Close, nil
	}
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}
