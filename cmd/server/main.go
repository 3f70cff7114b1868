// Package main provides the entry point for the paper enrichment HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5"

	"github.com/helixir/paper-enrichment-service/internal/bootstrap"
	"github.com/helixir/paper-enrichment-service/internal/config"
	"github.com/helixir/paper-enrichment-service/internal/database"
	"github.com/helixir/paper-enrichment-service/internal/enrichment"
	"github.com/helixir/paper-enrichment-service/internal/observability"
	"github.com/helixir/paper-enrichment-service/internal/repository"
	httpserver "github.com/helixir/paper-enrichment-service/internal/server/http"
	"github.com/helixir/paper-enrichment-service/internal/temporal"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Set up structured logging.
	logger := bootstrap.NewLogger(cfg.Logging)
	logger = logger.With().Str("component", "server").Logger()
	logger.Info().Msg("paper-enrichment-service server starting")

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to PostgreSQL.
	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	logger.Info().Msg("database connection established")

	if cfg.Database.EnsureSchema {
		err := db.WithTransaction(ctx, func(tx pgx.Tx) error {
			return repository.EnsurePostgresSchema(ctx, tx)
		})
		if err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		logger.Info().Msg("database schema ensured")
	}

	metrics := observability.NewMetrics(observability.DefaultNamespace)

	// Event publisher.
	publisher, closePublisher := bootstrap.NewEventPublisher(cfg.Kafka, metrics, logger)
	defer func() {
		if err := closePublisher(); err != nil {
			logger.Error().Err(err).Msg("failed to close event publisher")
		}
	}()

	// Report generator (nil when disabled).
	generator, err := bootstrap.NewReportGenerator(cfg.LLM, metrics, logger)
	if err != nil {
		return err
	}

	sources := bootstrap.NewSources(cfg, metrics, logger)
	service := enrichment.NewService(enrichment.ServiceConfig{
		Orchestrator:         bootstrap.NewOrchestrator(cfg, sources, metrics, logger),
		Papers:               repository.NewPgPaperRepository(db),
		Reports:              repository.NewPgReportRepository(db),
		Generator:            generator,
		Events:               publisher,
		Metrics:              metrics,
		Logger:               logger,
		MaxConcurrentReports: cfg.LLM.MaxConcurrentReports,
	})

	deps := httpserver.Dependencies{
		Papers: service,
		Health: db,
		Logger: logger,
	}

	// Batch endpoints need a Temporal client.
	if cfg.Temporal.Enabled {
		clientCfg := bootstrap.TemporalClientConfig(cfg, logger)
		temporalClient, err := temporal.NewClient(clientCfg)
		if err != nil {
			return fmt.Errorf("connect to temporal: %w", err)
		}
		batchClient := temporal.NewBatchWorkflowClientWithConfig(temporalClient, clientCfg)
		defer batchClient.Close()
		deps.Batches = batchClient
		if err := batchClient.Health(ctx); err != nil {
			logger.Warn().Err(err).Msg("temporal health check failed; batch requests may fail")
		}
		logger.Info().
			Str("host_port", cfg.Temporal.HostPort).
			Str("namespace", cfg.Temporal.Namespace).
			Msg("temporal client connected")
	} else {
		logger.Info().Msg("temporal disabled; batch endpoints unavailable")
	}

	httpCfg := httpserver.Config{
		Address:         cfg.Server.HTTPAddress(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}
	if cfg.Metrics.Enabled {
		httpCfg.MetricsPath = cfg.Metrics.Path
	}
	httpSrv := httpserver.NewServer(httpCfg, deps)

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	logger.Info().
		Str("http_address", httpCfg.Address).
		Bool("batches", deps.Batches != nil).
		Bool("reports", generator != nil).
		Msg("paper-enrichment-service is ready")

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	logger.Info().Msg("shutting down paper-enrichment-service")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	logger.Info().Msg("paper-enrichment-service shutdown complete")
	return nil
}
