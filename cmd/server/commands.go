package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v3"
	redisstore "github.com/gofiber/storage/redis/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sharebox/internal/archive"
	"sharebox/internal/blob"
	"sharebox/internal/config"
	"sharebox/internal/db"
	"sharebox/internal/handlers"
	"sharebox/internal/jobs"
	"sharebox/internal/logger"
	"sharebox/internal/metrics"
	"sharebox/internal/ratelimit"
	"sharebox/internal/server"
	"sharebox/internal/sharing"
)

// app holds the long-lived components every command builds on.
type app struct {
	cfg      *config.Config
	policy   *config.Policy
	log      *zap.Logger
	database *db.DB
	blobs    *blob.S3Store
	redis    *redisstore.Storage
	service  *sharing.Service
}

func bootstrap(ctx context.Context) (*app, error) {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel, cfg.ResolvedLogFormat())
	if err != nil {
		return nil, err
	}

	policy, err := config.LoadPolicy()
	if err != nil {
		return nil, err
	}

	database, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	a := &app{
		cfg:      cfg,
		policy:   policy,
		log:      log,
		database: database,
		blobs: blob.NewS3Store(blob.Options{
			Endpoint:     cfg.S3Endpoint,
			Region:       cfg.S3Region,
			Bucket:       cfg.S3Bucket,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			UsePathStyle: cfg.S3UsePathStyle,
		}, log.Named("blob")),
	}

	deps := sharing.Deps{
		Store:    database,
		Accounts: database,
		Blobs:    a.blobs,
		Logger:   log.Named("sharing"),
	}

	if cfg.RedisURL != "" {
		a.redis = redisstore.New(redisstore.Config{URL: cfg.RedisURL})
		deps.Limiter = ratelimit.NewSliding(a.redis.Conn(), policy)
	} else {
		log.Warn("REDIS_URL not set; sessions are in-memory and share rate limits are off")
	}

	a.service = sharing.NewService(deps, policy)
	return a, nil
}

func (a *app) close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("failed to close redis", zap.Error(err))
		}
	}
	a.database.Close()
	_ = a.log.Sync()
}

// storage returns the fiber storage backend, or nil for in-memory.
func (a *app) storage() fiber.Storage {
	if a.redis == nil {
		return nil
	}
	return a.redis
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.database.RunMigrations(a.cfg.DatabaseURL); err != nil {
		return err
	}
	a.log.Info("migrations completed")

	metrics.Init(a.database, a.log.Named("metrics"))

	srv := server.New(a.cfg, a.log, a.storage())
	err = srv.RegisterRoutes(ctx, server.Dependencies{
		Service:  a.service,
		Streamer: archive.NewStreamer(a.blobs, a.log.Named("archive")),
		Users:    a.database,
		Checks: map[string]handlers.Pinger{
			"database": a.database,
			"storage":  a.blobs,
		},
		Policy: a.policy,
	})
	if err != nil {
		return fmt.Errorf("failed to register routes: %w", err)
	}

	if a.cfg.SweepInterval > 0 {
		sweeper := jobs.NewExpirySweeper(a.database, a.service, a.cfg.SweepInterval, a.cfg.SweepGrace, a.log.Named("sweeper"))
		go sweeper.Start(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	a.log.Info("shutting down server")
	if err := srv.Shutdown(); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	a.log.Info("server exited")
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	log, err := logger.New(cfg.LogLevel, cfg.ResolvedLogFormat())
	if err != nil {
		return err
	}
	defer log.Sync()

	database, err := db.New(cmd.Context(), cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return err
	}
	log.Info("migrations completed")
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	sweeper := jobs.NewExpirySweeper(a.database, a.service, a.cfg.SweepInterval, a.cfg.SweepGrace, a.log.Named("sweeper"))
	n, err := sweeper.Sweep(ctx)
	if err != nil {
		return fmt.Errorf("sweep failed after %d deletions: %w", n, err)
	}
	a.log.Info("sweep finished", zap.Int("deleted", n))
	return nil
}
