// Package config provides configuration management for the paper enrichment service.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "PAPERENRICH"

// SSL mode constants for database connections.
const (
	// SSLModeDisable disables SSL (use only for local development).
	SSLModeDisable = "disable"
	// SSLModeRequire requires SSL but does not verify certificates.
	SSLModeRequire = "require"
	// SSLModeVerifyCA verifies the server certificate against a CA.
	SSLModeVerifyCA = "verify-ca"
	// SSLModeVerifyFull verifies the server certificate and hostname.
	SSLModeVerifyFull = "verify-full"
)

// LLM provider names.
const (
	LLMProviderNone      = "none"
	LLMProviderStatic    = "static"
	LLMProviderOpenAI    = "openai"
	LLMProviderAnthropic = "anthropic"
)

// Config holds all configuration for the paper enrichment service.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Database contains PostgreSQL connection settings.
	Database DatabaseConfig `mapstructure:"database"`
	// Temporal contains Temporal workflow orchestration settings.
	Temporal TemporalConfig `mapstructure:"temporal"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// Kafka contains settings for the paper.enriched event publisher.
	Kafka KafkaConfig `mapstructure:"kafka"`
	// LLM contains report generator settings.
	LLM LLMConfig `mapstructure:"llm"`
	// Store contains the local SQLite cache used by the CLI.
	Store StoreConfig `mapstructure:"store"`
	// Enrichment contains orchestrator tuning.
	Enrichment EnrichmentConfig `mapstructure:"enrichment"`
	// Sources contains per-source client settings.
	Sources SourcesConfig `mapstructure:"sources"`
	// ContactEmail is sent to Unpaywall (mandatory) and to OpenAlex and Crossref (polite pool).
	ContactEmail string `mapstructure:"contact_email"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP server port (default: 8080).
	HTTPPort int `mapstructure:"http_port"`
	// ReadTimeout is the maximum duration for reading request body.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing response.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// IdleTimeout is the keep-alive idle timeout.
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	// Host is the PostgreSQL server hostname.
	Host string `mapstructure:"host"`
	// Port is the PostgreSQL server port (default: 5432).
	Port int `mapstructure:"port"`
	// User is the database username.
	User string `mapstructure:"user"`
	// Password is the database password (PAPERENRICH_DATABASE_PASSWORD).
	Password string `mapstructure:"-"`
	// Name is the database name.
	Name string `mapstructure:"name"`
	// SSLMode controls SSL connection security (require, verify-ca, verify-full, disable).
	SSLMode string `mapstructure:"ssl_mode"`
	// MaxConns is the maximum number of connections in the pool.
	MaxConns int32 `mapstructure:"max_conns"`
	// MinConns is the minimum number of connections to keep open.
	MinConns int32 `mapstructure:"min_conns"`
	// MaxConnLifetime is the maximum lifetime of a connection before it's closed.
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	// MaxConnIdleTime is the maximum time a connection can be idle before it's closed.
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	// HealthCheckPeriod is the interval between health checks of idle connections.
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	// ConnectTimeout is the maximum time to wait for a connection.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	// EnsureSchema creates the tables on startup when they are missing.
	EnsureSchema bool `mapstructure:"ensure_schema"`
	// StatementCacheCapacity is the size of the prepared statement cache.
	StatementCacheCapacity int `mapstructure:"statement_cache_capacity"`
}

// TemporalConfig holds Temporal workflow configuration.
type TemporalConfig struct {
	// Enabled turns on batch enrichment endpoints in the server.
	Enabled bool `mapstructure:"enabled"`
	// HostPort is the Temporal server address.
	HostPort string `mapstructure:"host_port"`
	// Namespace is the Temporal namespace.
	Namespace string `mapstructure:"namespace"`
	// TaskQueue is the task queue name for batch enrichment workflows.
	TaskQueue string `mapstructure:"task_queue"`
	// MaxConcurrentActivities bounds activity executions per worker.
	MaxConcurrentActivities int `mapstructure:"max_concurrent_activities"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr, file path).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for metrics endpoint.
	Path string `mapstructure:"path"`
}

// KafkaConfig holds Kafka publisher settings.
type KafkaConfig struct {
	// Enabled controls whether events are written to Kafka.
	Enabled bool `mapstructure:"enabled"`
	// Brokers is the list of Kafka broker addresses.
	Brokers []string `mapstructure:"brokers"`
	// Topic receives paper.enriched events.
	Topic string `mapstructure:"topic"`
	// BatchSize is the maximum number of messages to batch before sending.
	BatchSize int `mapstructure:"batch_size"`
	// BatchTimeout is the maximum time to wait for a batch to fill before sending.
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	// RefreshTopic carries refresh requests consumed by the worker. Empty disables the listener.
	RefreshTopic string `mapstructure:"refresh_topic"`
	// GroupID is the consumer group of the refresh listener.
	GroupID string `mapstructure:"group_id"`
}

// LLMConfig holds report generator configuration.
type LLMConfig struct {
	// Provider is one of none, static, openai, anthropic.
	Provider string `mapstructure:"provider"`
	// Timeout is the timeout for a single completion call.
	Timeout time.Duration `mapstructure:"timeout"`
	// MaxTokens bounds the completion length.
	MaxTokens int `mapstructure:"max_tokens"`
	// Temperature is the sampling temperature.
	Temperature float64 `mapstructure:"temperature"`
	// MaxConcurrentReports bounds report generation fan-out.
	MaxConcurrentReports int `mapstructure:"max_concurrent_reports"`
	// OpenAI contains OpenAI-specific settings.
	OpenAI LLMProviderConfig `mapstructure:"openai"`
	// Anthropic contains Anthropic-specific settings.
	Anthropic LLMProviderConfig `mapstructure:"anthropic"`
}

// LLMProviderConfig holds settings for one LLM provider.
type LLMProviderConfig struct {
	// APIKey is loaded only from PAPERENRICH_LLM_<PROVIDER>_API_KEY.
	APIKey string `mapstructure:"-"`
	// Model is the model to use.
	Model string `mapstructure:"model"`
	// BaseURL is the API base URL.
	BaseURL string `mapstructure:"base_url"`
}

// StoreConfig holds the CLI cache location.
type StoreConfig struct {
	// SQLitePath is the SQLite database file.
	SQLitePath string `mapstructure:"sqlite_path"`
}

// EnrichmentConfig holds orchestrator settings.
type EnrichmentConfig struct {
	// MaxConcurrentEnrichments bounds DOI-level parallelism in query mode.
	MaxConcurrentEnrichments int `mapstructure:"max_concurrent_enrichments"`
	// SearchPageSize is the number of results requested per search page.
	SearchPageSize int `mapstructure:"search_page_size"`
	// SearchMaxPages bounds the number of search pages fetched per query.
	SearchMaxPages int `mapstructure:"search_max_pages"`
	// InterPageDelay is slept between consecutive search pages.
	InterPageDelay time.Duration `mapstructure:"inter_page_delay"`
}

// SourcesConfig holds configuration for the four metadata sources.
type SourcesConfig struct {
	SemanticScholar SourceConfig `mapstructure:"semantic_scholar"`
	OpenAlex        SourceConfig `mapstructure:"openalex"`
	Crossref        SourceConfig `mapstructure:"crossref"`
	Unpaywall       SourceConfig `mapstructure:"unpaywall"`
}

// SourceConfig holds configuration for a single source client.
type SourceConfig struct {
	// Enabled controls whether this source is consulted. A disabled source is always Absent.
	Enabled bool `mapstructure:"enabled"`
	// APIKey is loaded only from PAPERENRICH_SOURCES_<SOURCE>_API_KEY.
	APIKey string `mapstructure:"-"`
	// BaseURL is the API base URL.
	BaseURL string `mapstructure:"base_url"`
	// Timeout is the per-request timeout.
	Timeout time.Duration `mapstructure:"timeout"`
	// RateLimit is the maximum requests per second.
	RateLimit float64 `mapstructure:"rate_limit"`
	// Burst is the rate limiter burst size.
	Burst int `mapstructure:"burst"`
	// MaxAttempts bounds attempts per request, including the first.
	MaxAttempts int `mapstructure:"max_attempts"`
	// RateLimitMinDelay is the base delay after a 429.
	RateLimitMinDelay time.Duration `mapstructure:"rate_limit_min_delay"`
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	params := url.Values{}
	params.Set("sslmode", c.SSLMode)
	if c.ConnectTimeout > 0 {
		params.Set("connect_timeout", fmt.Sprintf("%d", int(c.ConnectTimeout.Seconds())))
	}
	if c.StatementCacheCapacity > 0 {
		params.Set("statement_cache_capacity", fmt.Sprintf("%d", c.StatementCacheCapacity))
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Name,
		params.Encode(),
	)
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// Load loads configuration from environment variables and config files.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/paper-enrichment")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Secret fields are tagged mapstructure:"-" and never come from config files.
	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func loadSecrets(cfg *Config) {
	cfg.Database.Password = os.Getenv(EnvPrefix + "_DATABASE_PASSWORD")
	cfg.LLM.OpenAI.APIKey = os.Getenv(EnvPrefix + "_LLM_OPENAI_API_KEY")
	cfg.LLM.Anthropic.APIKey = os.Getenv(EnvPrefix + "_LLM_ANTHROPIC_API_KEY")
	cfg.Sources.SemanticScholar.APIKey = os.Getenv(EnvPrefix + "_SOURCES_SEMANTIC_SCHOLAR_API_KEY")
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("contact_email", "")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "2m")
	v.SetDefault("server.idle_timeout", "2m")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "paperenrich")
	v.SetDefault("database.name", "paper_enrichment")
	v.SetDefault("database.ssl_mode", SSLModeRequire)
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")
	v.SetDefault("database.health_check_period", "30s")
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.ensure_schema", true)
	v.SetDefault("database.statement_cache_capacity", 512)

	// Temporal defaults
	v.SetDefault("temporal.enabled", false)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "paper-enrichment")
	v.SetDefault("temporal.task_queue", "paper-enrichment-tasks")
	v.SetDefault("temporal.max_concurrent_activities", 8)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	// Kafka defaults
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "events.paper_enrichment.paper_enriched")
	v.SetDefault("kafka.batch_size", 100)
	v.SetDefault("kafka.batch_timeout", "10ms")
	v.SetDefault("kafka.refresh_topic", "commands.paper_enrichment.refresh")
	v.SetDefault("kafka.group_id", "paper-enrichment-worker")

	// LLM defaults. API keys are loaded exclusively from environment variables.
	v.SetDefault("llm.provider", LLMProviderNone)
	v.SetDefault("llm.timeout", "60s")
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.max_concurrent_reports", 3)
	v.SetDefault("llm.openai.model", "gpt-4o-mini")
	v.SetDefault("llm.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.anthropic.model", "claude-3-5-haiku-latest")
	v.SetDefault("llm.anthropic.base_url", "https://api.anthropic.com")

	// Store defaults
	v.SetDefault("store.sqlite_path", "paper-enrichment.db")

	// Enrichment defaults
	v.SetDefault("enrichment.max_concurrent_enrichments", 3)
	v.SetDefault("enrichment.search_page_size", 10)
	v.SetDefault("enrichment.search_max_pages", 5)
	v.SetDefault("enrichment.inter_page_delay", "2s")

	// Source defaults
	v.SetDefault("sources.semantic_scholar.enabled", true)
	v.SetDefault("sources.semantic_scholar.base_url", "https://api.semanticscholar.org/graph/v1")
	v.SetDefault("sources.semantic_scholar.timeout", "15s")
	v.SetDefault("sources.semantic_scholar.rate_limit", 1.0)
	v.SetDefault("sources.semantic_scholar.burst", 1)
	v.SetDefault("sources.semantic_scholar.max_attempts", 4)
	v.SetDefault("sources.semantic_scholar.rate_limit_min_delay", "5s")

	v.SetDefault("sources.openalex.enabled", true)
	v.SetDefault("sources.openalex.base_url", "https://api.openalex.org")
	v.SetDefault("sources.openalex.timeout", "10s")
	v.SetDefault("sources.openalex.rate_limit", 10.0)
	v.SetDefault("sources.openalex.burst", 5)
	v.SetDefault("sources.openalex.max_attempts", 3)
	v.SetDefault("sources.openalex.rate_limit_min_delay", "1s")

	v.SetDefault("sources.crossref.enabled", true)
	v.SetDefault("sources.crossref.base_url", "https://api.crossref.org")
	v.SetDefault("sources.crossref.timeout", "10s")
	v.SetDefault("sources.crossref.rate_limit", 10.0)
	v.SetDefault("sources.crossref.burst", 5)
	v.SetDefault("sources.crossref.max_attempts", 3)
	v.SetDefault("sources.crossref.rate_limit_min_delay", "1s")

	v.SetDefault("sources.unpaywall.enabled", true)
	v.SetDefault("sources.unpaywall.base_url", "https://api.unpaywall.org/v2")
	v.SetDefault("sources.unpaywall.timeout", "8s")
	v.SetDefault("sources.unpaywall.rate_limit", 10.0)
	v.SetDefault("sources.unpaywall.burst", 5)
	v.SetDefault("sources.unpaywall.max_attempts", 3)
	v.SetDefault("sources.unpaywall.rate_limit_min_delay", "1s")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.ContactEmail == "" || !strings.Contains(c.ContactEmail, "@") {
		return fmt.Errorf("contact_email is required (set %s_CONTACT_EMAIL)", EnvPrefix)
	}

	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("max_conns (%d) must be >= min_conns (%d)", c.Database.MaxConns, c.Database.MinConns)
	}

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka brokers are required when kafka is enabled")
	}

	if err := c.Enrichment.validate(); err != nil {
		return err
	}

	sources := map[string]SourceConfig{
		"semantic_scholar": c.Sources.SemanticScholar,
		"openalex":         c.Sources.OpenAlex,
		"crossref":         c.Sources.Crossref,
		"unpaywall":        c.Sources.Unpaywall,
	}
	for name, src := range sources {
		if !src.Enabled {
			continue
		}
		if src.BaseURL == "" {
			return fmt.Errorf("sources.%s.base_url is required", name)
		}
		if src.RateLimit <= 0 {
			return fmt.Errorf("sources.%s.rate_limit must be positive", name)
		}
		if src.MaxAttempts < 1 {
			return fmt.Errorf("sources.%s.max_attempts must be at least 1", name)
		}
	}

	switch strings.ToLower(c.LLM.Provider) {
	case LLMProviderNone, LLMProviderStatic, "":
	case LLMProviderOpenAI:
		if c.LLM.OpenAI.APIKey == "" {
			return fmt.Errorf("LLM provider %q requires %s_LLM_OPENAI_API_KEY to be set", c.LLM.Provider, EnvPrefix)
		}
	case LLMProviderAnthropic:
		if c.LLM.Anthropic.APIKey == "" {
			return fmt.Errorf("LLM provider %q requires %s_LLM_ANTHROPIC_API_KEY to be set", c.LLM.Provider, EnvPrefix)
		}
	default:
		return fmt.Errorf("unsupported LLM provider: %s", c.LLM.Provider)
	}

	return nil
}

func (c EnrichmentConfig) validate() error {
	if c.MaxConcurrentEnrichments < 1 {
		return fmt.Errorf("enrichment.max_concurrent_enrichments must be at least 1")
	}
	if c.SearchPageSize < 1 || c.SearchPageSize > 100 {
		return fmt.Errorf("enrichment.search_page_size must be between 1 and 100")
	}
	if c.SearchMaxPages < 1 {
		return fmt.Errorf("enrichment.search_max_pages must be at least 1")
	}
	if c.InterPageDelay < 0 {
		return fmt.Errorf("enrichment.inter_page_delay must not be negative")
	}
	return nil
}
