package indexer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/akashx/akashx/pkg/checkpoint"
	"github.com/akashx/akashx/pkg/db"
	"github.com/akashx/akashx/pkg/db/memory"
	"github.com/akashx/akashx/pkg/db/postgres"
	"github.com/akashx/akashx/pkg/indexer"
	"github.com/akashx/akashx/pkg/indexer/akash"
	"github.com/akashx/akashx/pkg/indexer/bank"
	"github.com/akashx/akashx/pkg/indexer/proposal"
	"github.com/akashx/akashx/pkg/indexer/validator"
	"github.com/akashx/akashx/pkg/logging"
	"github.com/akashx/akashx/pkg/notify"
	"github.com/akashx/akashx/pkg/processor"
	"github.com/akashx/akashx/pkg/rawcache"
	"github.com/akashx/akashx/pkg/rpc"
	"github.com/akashx/akashx/pkg/syncer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type App struct {
	Config Config
	Logger *zap.Logger

	Store       db.Store
	Cache       *rawcache.Cache
	Client      *rpc.HTTPClient
	Coordinator *syncer.Coordinator
	Notifier    *notify.Client
	Metrics     *prometheus.Registry

	// Cron triggers a sync cycle according to Config.SyncCron.
	Cron   *cron.Cron
	Server *http.Server

	// cycles started outside the scheduler
	running sync.WaitGroup
}

// Initialize wires every component from cfg.
func Initialize(ctx context.Context, cfg Config) (*App, error) {
	logger, err := logging.New()
	if err != nil {
		// nothing else to do here, we'll just log to stderr
		panic(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return build(ctx, logger, cfg)
}

func build(ctx context.Context, logger *zap.Logger, cfg Config) (*App, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	store, err := openStore(ctx, logger, cfg)
	if err != nil {
		return nil, err
	}

	cache, err := rawcache.Open(cfg.CacheDir(), logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	checkpoints, err := checkpoint.New(cfg.CheckpointDir())
	if err != nil {
		_ = store.Close()
		_ = cache.Close()
		return nil, err
	}

	client := rpc.NewHTTPWithOpts(rpc.Opts{
		Endpoints:     cfg.RPCEndpoints,
		MaxConcurrent: cfg.RPCMaxConcurrent,
		Timeout:       cfg.RPCTimeout,
		JitterMin:     cfg.RPCJitterMin,
		JitterMax:     cfg.RPCJitterMax,
		Metrics:       rpc.NewMetrics(reg),
	})

	var (
		notifier  *notify.Client
		publisher notify.Publisher
	)
	if cfg.RedisEnabled {
		notifier, err = notify.NewClient(ctx, logger)
		if err != nil {
			logger.Warn("Failed to initialize Redis client - block notifications will be disabled", zap.Error(err))
			notifier = nil
		} else {
			publisher = notifier
		}
	} else {
		logger.Info("Redis disabled - block notifications will not be published")
	}

	processed := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "akashx",
		Subsystem: "processor",
		Name:      "blocks_total",
		Help:      "Blocks processed through the indexers.",
	})
	processedHeight := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "akashx",
		Subsystem: "processor",
		Name:      "height",
		Help:      "Highest processed height.",
	})
	reg.MustRegister(processed, processedHeight)

	registry := indexer.NewRegistry(
		akash.New(logger),
		validator.New(logger),
		bank.New(logger),
		proposal.New(logger),
	)
	proc := processor.New(logger, store, cache, registry, processor.Config{
		Window: cfg.ProcessWindow,
		Fetch: func(ctx context.Context, hash string) ([]byte, error) {
			return client.Get(ctx, rpc.TxPath(hash))
		},
		Publisher: publisher,
		OnWindow: func(ev notify.BlockProcessed) {
			processed.Add(float64(ev.Blocks))
			processedHeight.Set(float64(ev.ToHeight))
		},
	})
	coord := syncer.New(logger, client, cache, checkpoints, store, registry, proc, syncer.Config{
		MaxHeight:       cfg.MaxHeight,
		Production:      cfg.Production,
		InsertBatchSize: cfg.InsertBatchSize,
	})

	return &App{
		Config:      cfg,
		Logger:      logger,
		Store:       store,
		Cache:       cache,
		Client:      client,
		Coordinator: coord,
		Notifier:    notifier,
		Metrics:     reg,
	}, nil
}

func openStore(ctx context.Context, logger *zap.Logger, cfg Config) (db.Store, error) {
	switch cfg.StoreDriver {
	case DriverMemory:
		logger.Warn("Using the in-memory store, nothing will be persisted")
		return memory.New(), nil
	case DriverPostgres:
		store, err := postgres.NewStore(ctx, logger, cfg.PostgresURL, cfg.DBName)
		if err != nil {
			return nil, fmt.Errorf("postgres store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// SetupScheduler registers the sync cycle on the cron scheduler.
func (a *App) SetupScheduler(ctx context.Context) error {
	cl := logging.CronLogger{L: a.Logger.Sugar()}
	// Seconds field, optional
	a.Cron = cron.New(
		cron.WithSeconds(),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	_, err := a.Cron.AddFunc(a.Config.SyncCron, func() { a.SyncOnce(ctx) })
	return err
}

// SyncOnce runs one sync cycle; failures are logged by the coordinator and
// surfaced on /status.
func (a *App) SyncOnce(ctx context.Context) {
	err := a.Coordinator.Sync(ctx)
	if errors.Is(err, syncer.ErrCycleRunning) {
		a.Logger.Debug("Sync cycle skipped, previous one still running")
	}
}

// RebuildIfRequested replays every message when REBUILD_INDEXERS is set.
func (a *App) RebuildIfRequested(ctx context.Context) error {
	if !a.Config.RebuildIndexers {
		return nil
	}
	a.Logger.Info("Rebuilding indexers from stored messages")
	return a.Coordinator.Rebuild(ctx)
}

// SetupServer sets up the HTTP server.
func (a *App) SetupServer() {
	r := NewRouter(a.Coordinator.Status(), a.Client, a.Metrics, a.Ready)
	a.Server = &http.Server{Addr: a.Config.Addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
}

// Ready is true once a cycle has completed and the last one did not fail.
func (a *App) Ready() bool {
	s := a.Coordinator.Status().Snapshot()
	return s.Cycles > 0 && s.LastError == ""
}

// Start serves HTTP and runs the scheduler until ctx is canceled.
func (a *App) Start(ctx context.Context) {
	go func() {
		a.Logger.Info("Starting server", zap.String("addr", a.Config.Addr))
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.Error("Server stopped", zap.Error(err))
		}
	}()

	a.Cron.Start()
	a.Logger.Info("Cron started", zap.String("cronSpec", a.Config.SyncCron))
	a.running.Add(1)
	go func() {
		defer a.running.Done()
		a.SyncOnce(ctx)
	}()

	<-ctx.Done()
	a.Stop()
}

// Stop waits for a running cycle to return, then releases every resource.
func (a *App) Stop() {
	a.Logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if a.Server != nil {
		_ = a.Server.Shutdown(shutdownCtx)
	}
	if a.Cron != nil {
		<-a.Cron.Stop().Done()
	}
	a.running.Wait()
	a.Coordinator.Close()
	if a.Notifier != nil {
		_ = a.Notifier.Close()
	}
	if err := a.Cache.Close(); err != nil {
		a.Logger.Warn("Closing raw cache failed", zap.Error(err))
	}
	if err := a.Store.Close(); err != nil {
		a.Logger.Warn("Closing store failed", zap.Error(err))
	}
	a.Logger.Info("さようなら!")
}
