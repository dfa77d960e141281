package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/crivus/quiziq/internal/adapter"
	"github.com/crivus/quiziq/internal/config"
	"github.com/crivus/quiziq/internal/logger"
	"github.com/crivus/quiziq/internal/policy"
	"github.com/crivus/quiziq/internal/store"
	"github.com/crivus/quiziq/internal/sweeper"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadSweeperConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:     cfg.Debug,
		SentryDSN: cfg.SentryDSN,
		Tags: map[string]string{
			"service": "sweeper",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.Info("Starting retention sweeper")

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Configure connection pool
	if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
		logger.Fatal("Failed to configure connection pool", zap.Error(err))
	}

	// Initialize store and services
	dataStore := store.NewPGStore(db)
	policies := policy.NewService(dataStore)
	clock := adapter.NewClock()

	sw := sweeper.NewRetentionSweeper(
		&sweeper.RetentionSweeperConfig{
			Interval:  cfg.Sweeper.Interval,
			BatchSize: cfg.Sweeper.BatchSize,
		},
		dataStore,
		policies,
		clock,
	)

	// Start sweeper in a goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := sw.Start(ctx); err != nil {
			errCh <- err
		}
	}()
	logger.Info("Sweeper running", zap.String("name", sw.Name()))

	// Wait for interrupt signal to gracefully shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	case err := <-errCh:
		logger.Error(err, zap.String("component", "sweeper"))
		cancel()
	}

	// Stop with timeout (don't use canceled ctx)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := sw.Stop(shutdownCtx); err != nil {
		logger.Fatal("Sweeper forced to stop", zap.Error(err))
	}

	logger.Info("Retention sweeper stopped")
}
