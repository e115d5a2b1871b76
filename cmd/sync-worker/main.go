package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/plaidbridge/internal/cron"
	"github.com/angelmondragon/plaidbridge/internal/items"
	"github.com/angelmondragon/plaidbridge/pkg/config"
	"github.com/angelmondragon/plaidbridge/pkg/db"
	"github.com/angelmondragon/plaidbridge/pkg/instance"
	"github.com/angelmondragon/plaidbridge/pkg/logger"
	"github.com/angelmondragon/plaidbridge/pkg/metrics"
	"github.com/angelmondragon/plaidbridge/pkg/migrate"
	"github.com/angelmondragon/plaidbridge/pkg/plaid"
	"github.com/angelmondragon/plaidbridge/pkg/redis"
	"github.com/angelmondragon/plaidbridge/pkg/security"
)

const serviceName = "sync-worker"

func main() {
	once := flag.Bool("once", false, "run a single sweep and exit")
	metricsAddr := flag.String("metrics-addr", "", "serve /metrics on this address, e.g. :9102")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Fields:      map[string]any{"env": cfg.App.Env, "instance": instance.ID()},
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	jobMetrics := metrics.NewJobMetrics(registry)

	plaidClient, err := plaid.NewClientFromConfig(cfg.Plaid,
		plaid.WithLogger(logg),
		plaid.WithMetrics(metrics.NewPlaidMetrics(registry)),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create plaid client", err)
		os.Exit(1)
	}

	sealer, err := security.NewTokenSealerFromConfig(cfg.Security)
	if err != nil {
		logg.Error(context.Background(), "failed to create token sealer", err)
		os.Exit(1)
	}

	itemsService, err := items.NewService(items.ServiceParams{
		Repo:         items.NewRepository(dbClient.DB()),
		Plaid:        plaidClient,
		Sealer:       sealer,
		Locker:       redisClient,
		PlaidConfig:  cfg.Plaid,
		Logger:       logg,
		SyncPageSize: cfg.Sync.PageSize,
		MaxSyncPages: cfg.Sync.MaxPages,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create items service", err)
		os.Exit(1)
	}

	syncJob, err := cron.NewTransactionsSyncJob(itemsService, logg, jobMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create sync job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, serviceName, cfg.App.Env, cfg.Sync.Interval)
	if err != nil {
		logg.Error(context.Background(), "failed to create worker lock", err)
		os.Exit(1)
	}

	jobs := cron.NewRegistry(syncJob)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: jobs,
		Lock:     lock,
		Metrics:  jobMetrics,
		Interval: cfg.Sync.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create worker service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"jobs":     jobs.Names(),
		"interval": cfg.Sync.Interval.String(),
		"lockKey":  lock.Key(),
	})

	if *once {
		if err := service.RunOnce(ctx); err != nil {
			logg.Error(ctx, "sweep failed", err)
			os.Exit(1)
		}
		return
	}

	if *metricsAddr != "" {
		go serveMetrics(ctx, logg, *metricsAddr, registry)
	}

	logg.Info(ctx, "starting sync worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "sync worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "sync worker shutting down gracefully")
}

func serveMetrics(ctx context.Context, logg *logger.Logger, addr string, gatherer prometheus.Gatherer) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "metrics server stopped", err)
	}
}
