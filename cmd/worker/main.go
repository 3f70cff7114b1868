// Package main provides the entry point for the batch enrichment Temporal worker.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/helixir/paper-enrichment-service/internal/bootstrap"
	"github.com/helixir/paper-enrichment-service/internal/config"
	"github.com/helixir/paper-enrichment-service/internal/database"
	"github.com/helixir/paper-enrichment-service/internal/enrichment"
	"github.com/helixir/paper-enrichment-service/internal/events"
	"github.com/helixir/paper-enrichment-service/internal/observability"
	"github.com/helixir/paper-enrichment-service/internal/repository"
	"github.com/helixir/paper-enrichment-service/internal/temporal"
	"github.com/helixir/paper-enrichment-service/internal/temporal/activities"
	"github.com/helixir/paper-enrichment-service/internal/temporal/workflows"
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
	logger = logger.With().Str("component", "worker").Logger()
	logger.Info().Msg("paper-enrichment-service worker starting")

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

	metrics := observability.NewMetrics(observability.DefaultNamespace)

	publisher, closePublisher := bootstrap.NewEventPublisher(cfg.Kafka, metrics, logger)
	defer func() {
		if err := closePublisher(); err != nil {
			logger.Error().Err(err).Msg("failed to close event publisher")
		}
	}()

	sources := bootstrap.NewSources(cfg, metrics, logger)
	orchestrator := bootstrap.NewOrchestrator(cfg, sources, metrics, logger)
	service := enrichment.NewService(enrichment.ServiceConfig{
		Orchestrator: orchestrator,
		Papers:       repository.NewPgPaperRepository(db),
		Reports:      repository.NewPgReportRepository(db),
		Events:       publisher,
		Metrics:      metrics,
		Logger:       logger,
	})

	// Create Temporal client.
	temporalClient, err := temporal.NewClient(bootstrap.TemporalClientConfig(cfg, logger))
	if err != nil {
		return fmt.Errorf("connect to temporal: %w", err)
	}
	defer temporalClient.Close()
	logger.Info().
		Str("host_port", cfg.Temporal.HostPort).
		Str("namespace", cfg.Temporal.Namespace).
		Msg("temporal client connected")

	// Create WorkerManager.
	workerConfig := temporal.DefaultWorkerConfig(cfg.Temporal.TaskQueue)
	if cfg.Temporal.MaxConcurrentActivities > 0 {
		workerConfig.MaxConcurrentActivityExecutionSize = cfg.Temporal.MaxConcurrentActivities
	}
	manager, err := temporal.NewWorkerManager(temporalClient, workerConfig)
	if err != nil {
		return fmt.Errorf("create worker manager: %w", err)
	}

	manager.RegisterWorkflow(temporal.BatchWorkflowName, workflows.BatchEnrichmentWorkflow)
	manager.RegisterActivity(activities.NewEnrichmentActivities(service, orchestrator))

	// Start the refresh listener if Kafka is configured for it.
	if cfg.Kafka.Enabled && cfg.Kafka.RefreshTopic != "" {
		listener := events.NewRefreshListener(events.ListenerConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.RefreshTopic,
			GroupID: cfg.Kafka.GroupID,
		}, service, logger)
		defer func() {
			if err := listener.Close(); err != nil {
				logger.Error().Err(err).Msg("failed to close refresh listener")
			}
		}()

		go func() {
			if err := listener.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error().Err(err).Msg("refresh listener error")
			}
		}()

		logger.Info().
			Str("topic", cfg.Kafka.RefreshTopic).
			Str("group_id", cfg.Kafka.GroupID).
			Msg("refresh listener started")
	}

	logger.Info().
		Str("task_queue", cfg.Temporal.TaskQueue).
		Strs("workflows", manager.Workflows()).
		Msg("starting temporal worker")

	// Start the worker and block until context is cancelled.
	if err := manager.Start(ctx); err != nil {
		if ctx.Err() != nil {
			logger.Info().Msg("worker stopped via signal")
			return nil
		}
		return fmt.Errorf("worker error: %w", err)
	}

	return nil
}
