package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/entropix/entropy-certify/config"
)

// RunConfig carries everything needed to run the process to completion.
type RunConfig struct {
	Config   *config.AppConfig
	Services *ServiceContainer
	DB       *sql.DB
	Redis    redis.UniversalClient
	Logger   *slog.Logger
}

// Run drives the process lifecycle: the recovery sweep first, then the worker
// pool and the HTTP server, then a graceful stop on SIGINT/SIGTERM. The
// recovery sweep must finish before any traffic is accepted and before any
// worker starts, otherwise it could fail a job a live worker just picked up.
func Run(ctx context.Context, cfg RunConfig) error {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if err := cfg.Services.Recovery.Reconcile(ctx); err != nil {
		return fmt.Errorf("startup recovery sweep: %w", err)
	}

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(runCtx)

	group.Go(func() error {
		return cfg.Services.Pool.Run(groupCtx)
	})

	server := StartHTTPServer(&HTTPServerConfig{
		Config:   cfg.Config,
		Services: cfg.Services,
		DB:       cfg.DB,
		Redis:    cfg.Redis,
		Logger:   logger,
	})

	group.Go(func() error {
		<-groupCtx.Done()
		return ShutdownHTTPServer(ShutdownConfig{
			Context: context.Background(),
			Server:  server,
			Timeout: cfg.Config.HTTP.ShutdownTimeout,
			Logger:  logger,
		})
	})

	if err := group.Wait(); err != nil && err != context.Canceled {
		return err
	}

	if cfg.Services.Metrics != nil {
		if err := cfg.Services.Metrics.Close(); err != nil {
			logger.Warn("close statsd client failed", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}
