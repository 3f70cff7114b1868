// Package bootstrap builds the enrichment stack from configuration. It is shared by
// the server, the worker and the CLI so they construct sources and generators alike.
package bootstrap

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/paper-enrichment-service/internal/config"
	"github.com/helixir/paper-enrichment-service/internal/enrichment"
	"github.com/helixir/paper-enrichment-service/internal/events"
	"github.com/helixir/paper-enrichment-service/internal/llm"
	"github.com/helixir/paper-enrichment-service/internal/observability"
	"github.com/helixir/paper-enrichment-service/internal/papersources"
	"github.com/helixir/paper-enrichment-service/internal/papersources/crossref"
	"github.com/helixir/paper-enrichment-service/internal/papersources/openalex"
	"github.com/helixir/paper-enrichment-service/internal/papersources/semanticscholar"
	"github.com/helixir/paper-enrichment-service/internal/papersources/unpaywall"
	"github.com/helixir/paper-enrichment-service/internal/temporal"
)

// NewLogger builds the process logger from the logging section.
func NewLogger(cfg config.LoggingConfig) zerolog.Logger {
	return observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Level,
		Format:     cfg.Format,
		Output:     cfg.Output,
		AddSource:  cfg.AddSource,
		TimeFormat: cfg.TimeFormat,
	})
}

// NewSources creates a client for every enabled source. Disabled sources stay nil,
// which the orchestrator treats as always absent. observer may be nil.
func NewSources(cfg *config.Config, observer papersources.Observer, logger zerolog.Logger) enrichment.Sources {
	var sources enrichment.Sources

	if sc := cfg.Sources.SemanticScholar; sc.Enabled {
		sources.Graph = semanticscholar.New(semanticscholar.Config{
			BaseURL:           sc.BaseURL,
			APIKey:            sc.APIKey,
			Timeout:           sc.Timeout,
			RateLimit:         sc.RateLimit,
			BurstSize:         sc.Burst,
			MaxAttempts:       sc.MaxAttempts,
			RateLimitMinDelay: sc.RateLimitMinDelay,
		}, sourceOptions(observer, logger)...)
		logger.Info().Msg("registered metadata source: Semantic Scholar")
	}

	if sc := cfg.Sources.OpenAlex; sc.Enabled {
		sources.Metrics = openalex.New(openalex.Config{
			BaseURL:           sc.BaseURL,
			Email:             cfg.ContactEmail,
			Timeout:           sc.Timeout,
			RateLimit:         sc.RateLimit,
			BurstSize:         sc.Burst,
			MaxAttempts:       sc.MaxAttempts,
			RateLimitMinDelay: sc.RateLimitMinDelay,
		}, sourceOptions(observer, logger)...)
		logger.Info().Msg("registered metadata source: OpenAlex")
	}

	if sc := cfg.Sources.Crossref; sc.Enabled {
		sources.Registry = crossref.New(crossref.Config{
			BaseURL:           sc.BaseURL,
			ContactEmail:      cfg.ContactEmail,
			Timeout:           sc.Timeout,
			RateLimit:         sc.RateLimit,
			BurstSize:         sc.Burst,
			MaxAttempts:       sc.MaxAttempts,
			RateLimitMinDelay: sc.RateLimitMinDelay,
		}, sourceOptions(observer, logger)...)
		logger.Info().Msg("registered metadata source: Crossref")
	}

	// Unpaywall rejects requests without a contact address.
	if sc := cfg.Sources.Unpaywall; sc.Enabled && cfg.ContactEmail != "" {
		sources.Access = unpaywall.New(unpaywall.Config{
			BaseURL:           sc.BaseURL,
			Email:             cfg.ContactEmail,
			Timeout:           sc.Timeout,
			RateLimit:         sc.RateLimit,
			BurstSize:         sc.Burst,
			MaxAttempts:       sc.MaxAttempts,
			RateLimitMinDelay: sc.RateLimitMinDelay,
		}, sourceOptions(observer, logger)...)
		logger.Info().Msg("registered metadata source: Unpaywall")
	} else if sc.Enabled {
		logger.Warn().Msg("unpaywall enabled without contact_email; source disabled")
	}

	return sources
}

func sourceOptions(observer papersources.Observer, logger zerolog.Logger) []papersources.HTTPClientOption {
	return []papersources.HTTPClientOption{
		papersources.WithObserver(observer),
		papersources.WithLogger(logger),
	}
}

// NewOrchestrator creates the orchestrator with the enrichment tuning section.
func NewOrchestrator(cfg *config.Config, sources enrichment.Sources, recorder enrichment.Recorder, logger zerolog.Logger) *enrichment.Orchestrator {
	return enrichment.NewOrchestrator(sources, enrichment.OrchestratorConfig{
		SearchPageSize:           cfg.Enrichment.SearchPageSize,
		SearchMaxPages:           cfg.Enrichment.SearchMaxPages,
		InterPageDelay:           cfg.Enrichment.InterPageDelay,
		MaxConcurrentEnrichments: cfg.Enrichment.MaxConcurrentEnrichments,
	},
		enrichment.WithLogger(logger),
		enrichment.WithRecorder(recorder),
	)
}

// NewReportGenerator creates the configured generator. It returns a nil generator,
// not an error, when reports are disabled.
func NewReportGenerator(cfg config.LLMConfig, recorder llm.Recorder, logger zerolog.Logger) (enrichment.ReportGenerator, error) {
	gen, err := llm.NewReportGenerator(llm.FactoryConfig{
		Provider: cfg.Provider,
		Options: llm.ProviderOptions{
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			Timeout:     cfg.Timeout,
		},
		OpenAI: llm.OpenAIConfig{
			APIKey:  cfg.OpenAI.APIKey,
			Model:   cfg.OpenAI.Model,
			BaseURL: cfg.OpenAI.BaseURL,
		},
		Anthropic: llm.AnthropicConfig{
			APIKey:  cfg.Anthropic.APIKey,
			Model:   cfg.Anthropic.Model,
			BaseURL: cfg.Anthropic.BaseURL,
		},
	}, recorder, logger)
	if err != nil {
		return nil, fmt.Errorf("create report generator: %w", err)
	}
	if gen == nil {
		return nil, nil
	}
	return gen, nil
}

// NewEventPublisher returns a Kafka publisher when Kafka is enabled and a no-op
// publisher otherwise. The returned close function is never nil.
func NewEventPublisher(cfg config.KafkaConfig, recorder events.Recorder, logger zerolog.Logger) (enrichment.EventPublisher, func() error) {
	if !cfg.Enabled || cfg.Topic == "" {
		return events.NoopPublisher{}, func() error { return nil }
	}
	pub := events.NewKafkaPublisher(events.Config{
		Brokers:      cfg.Brokers,
		Topic:        cfg.Topic,
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
	}, logger, recorder)
	logger.Info().Strs("brokers", cfg.Brokers).Str("topic", cfg.Topic).Msg("kafka event publisher created")
	return pub, pub.Close
}

// searchActivitySlack covers activity scheduling and rate limiter waits.
const searchActivitySlack = time.Minute

// TemporalClientConfig maps the temporal section to client options.
func TemporalClientConfig(cfg *config.Config, logger zerolog.Logger) temporal.ClientConfig {
	return temporal.ClientConfig{
		HostPort:      cfg.Temporal.HostPort,
		Namespace:     cfg.Temporal.Namespace,
		TaskQueue:     cfg.Temporal.TaskQueue,
		SearchTimeout: SearchActivityTimeout(cfg),
		Logger:        observability.NewTemporalLogger(logger),
	}
}

// SearchActivityTimeout is the slowest paginated search the configured search source
// and pagination settings allow, plus slack.
func SearchActivityTimeout(cfg *config.Config) time.Duration {
	sc := cfg.Sources.SemanticScholar
	perPage := semanticscholar.Config{
		Timeout:           sc.Timeout,
		MaxAttempts:       sc.MaxAttempts,
		RateLimitMinDelay: sc.RateLimitMinDelay,
	}.RequestBudget()

	pagination := enrichment.OrchestratorConfig{
		SearchMaxPages: cfg.Enrichment.SearchMaxPages,
		InterPageDelay: cfg.Enrichment.InterPageDelay,
	}
	return pagination.SearchBudget(perPage) + searchActivitySlack
}
