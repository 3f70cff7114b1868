package llm

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Provider names accepted by NewReportGenerator.
const (
	ProviderNone      = "none"
	ProviderStatic    = "static"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

const (
	defaultTimeout    = 60 * time.Second
	defaultMaxRetries = 2

	// maxResponseBytes bounds provider response bodies.
	maxResponseBytes = 4 << 20
)

// ProviderOptions holds settings shared by all HTTP providers.
type ProviderOptions struct {
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	MaxRetries  int
}

func (o *ProviderOptions) applyDefaults() {
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = defaultMaxRetries
	}
}

// FactoryConfig holds the parameters needed to create a ReportGenerator.
// This is defined in the llm package to avoid importing the config package.
type FactoryConfig struct {
	// Provider is one of none, static, openai, anthropic. Empty means none.
	Provider string
	// Options apply to the openai and anthropic providers.
	Options ProviderOptions
	// OpenAI contains OpenAI-specific settings.
	OpenAI OpenAIConfig
	// Anthropic contains Anthropic-specific settings.
	Anthropic AnthropicConfig
}

// NewReportGenerator creates a ReportGenerator for the configured provider.
// It returns a nil generator for "none", which disables report generation.
func NewReportGenerator(cfg FactoryConfig, metrics Recorder, logger zerolog.Logger) (ReportGenerator, error) {
	switch cfg.Provider {
	case "", ProviderNone:
		return nil, nil
	case ProviderStatic:
		return StaticGenerator{}, nil
	case ProviderOpenAI:
		if cfg.OpenAI.APIKey == "" {
			return nil, fmt.Errorf("openai provider requires an API key")
		}
		return NewGenerator(NewOpenAIProvider(cfg.OpenAI, cfg.Options), metrics, logger), nil
	case ProviderAnthropic:
		if cfg.Anthropic.APIKey == "" {
			return nil, fmt.Errorf("anthropic provider requires an API key")
		}
		return NewGenerator(NewAnthropicProvider(cfg.Anthropic, cfg.Options), metrics, logger), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %q", cfg.Provider)
	}
}

func newProviderHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func orDefaultInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
