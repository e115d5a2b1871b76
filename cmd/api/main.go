package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/plaidbridge/api/routes"
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

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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
		Cache:        redisClient,
		Verifier:     plaid.NewWebhookVerifier(plaidClient),
		PlaidConfig:  cfg.Plaid,
		Logger:       logg,
		SyncPageSize: cfg.Sync.PageSize,
		MaxSyncPages: cfg.Sync.MaxPages,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create items service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"addr":       addr,
		"plaidEnv":   plaidClient.Environment().String(),
		"plaidProds": cfg.Plaid.Products,
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, dbClient, redisClient, itemsService, registry),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "graceful shutdown failed", err)
		}
	}
}
