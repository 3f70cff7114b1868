// Package main provides paperctl, a command line client that enriches papers
// against a local SQLite cache.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/helixir/paper-enrichment-service/internal/bootstrap"
	"github.com/helixir/paper-enrichment-service/internal/config"
	"github.com/helixir/paper-enrichment-service/internal/enrichment"
	"github.com/helixir/paper-enrichment-service/internal/repository"
)

// Version is set at build time via ldflags.
var Version = "dev"

var (
	dbPath   string
	logLevel string
)

// app holds the wiring shared by every subcommand.
type app struct {
	cfg     *config.Config
	store   *repository.SQLiteStore
	service *enrichment.Service
	logger  zerolog.Logger
}

var rootCmd = &cobra.Command{
	Use:   "paperctl",
	Short: "Enrich scholarly papers from the command line",
	Long: `paperctl resolves DOIs and free-text queries into canonical paper records by
merging Semantic Scholar, OpenAlex, Crossref and Unpaywall metadata, assigning
badges and caching the result in a local SQLite database.

Configuration is read from PAPERENRICH_* environment variables, a .env file and
an optional config.yaml. Output is JSON.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Load .env file if present (for API keys and contact email).
	_ = godotenv.Load()

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite cache path (default: store.sqlite_path)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level written to stderr")
	rootCmd.Version = Version
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(exitCode(err))
	}
}

// newApp loads configuration and opens the local cache. Callers must call close.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logCfg := cfg.Logging
	logCfg.Level = logLevel
	logCfg.Output = "stderr"
	logCfg.Format = "console"
	logger := bootstrap.NewLogger(logCfg)

	path := dbPath
	if path == "" {
		path = cfg.Store.SQLitePath
	}
	store, err := repository.OpenSQLiteStore(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open cache %s: %w", path, err)
	}

	generator, err := bootstrap.NewReportGenerator(cfg.LLM, nil, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	sources := bootstrap.NewSources(cfg, nil, logger)
	service := enrichment.NewService(enrichment.ServiceConfig{
		Orchestrator:         bootstrap.NewOrchestrator(cfg, sources, nil, logger),
		Papers:               store,
		Reports:              store,
		Generator:            generator,
		Logger:               logger,
		MaxConcurrentReports: cfg.LLM.MaxConcurrentReports,
	})

	return &app{cfg: cfg, store: store, service: service, logger: logger}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Error().Err(err).Msg("failed to close cache")
	}
}

// withApp wraps a subcommand body with app setup and teardown.
func withApp(run func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()
		return run(ctx, a, args)
	}
}
