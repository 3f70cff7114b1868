package llm

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReportGenerator_None(t *testing.T) {
	t.Parallel()

	for _, provider := range []string{"", ProviderNone} {
		gen, err := NewReportGenerator(FactoryConfig{Provider: provider}, nil, zerolog.Nop())
		require.NoError(t, err)
		assert.Nil(t, gen)
	}
}

func TestNewReportGenerator_Static(t *testing.T) {
	t.Parallel()

	gen, err := NewReportGenerator(FactoryConfig{Provider: ProviderStatic}, nil, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, StaticGenerator{}, gen)
}

func TestNewReportGenerator_OpenAI(t *testing.T) {
	t.Parallel()

	cfg := FactoryConfig{
		Provider: ProviderOpenAI,
		Options:  ProviderOptions{Timeout: 30 * time.Second, MaxRetries: 3, Temperature: 0.7},
		OpenAI: OpenAIConfig{
			APIKey: "sk-test-key",
			Model:  "gpt-4o",
		},
	}

	gen, err := NewReportGenerator(cfg, nil, zerolog.Nop())
	require.NoError(t, err)

	g, ok := gen.(*Generator)
	require.True(t, ok)
	assert.Equal(t, "openai", g.completer.Provider())
	assert.Equal(t, "gpt-4o", g.completer.Model())
}

func TestNewReportGenerator_Anthropic(t *testing.T) {
	t.Parallel()

	cfg := FactoryConfig{
		Provider: ProviderAnthropic,
		Anthropic: AnthropicConfig{
			APIKey: "sk-ant-test-key",
			Model:  "claude-3-5-sonnet-latest",
		},
	}

	gen, err := NewReportGenerator(cfg, nil, zerolog.Nop())
	require.NoError(t, err)

	g, ok := gen.(*Generator)
	require.True(t, ok)
	assert.Equal(t, "anthropic", g.completer.Provider())
	assert.Equal(t, "claude-3-5-sonnet-latest", g.completer.Model())
}

func TestNewReportGenerator_MissingAPIKey(t *testing.T) {
	t.Parallel()

	for _, provider := range []string{ProviderOpenAI, ProviderAnthropic} {
		gen, err := NewReportGenerator(FactoryConfig{Provider: provider}, nil, zerolog.Nop())
		require.Error(t, err, provider)
		assert.Nil(t, gen)
		assert.Contains(t, err.Error(), "API key")
	}
}

func TestNewReportGenerator_Unknown(t *testing.T) {
	t.Parallel()

	gen, err := NewReportGenerator(FactoryConfig{Provider: "gemini"}, nil, zerolog.Nop())
	require.Error(t, err)
	assert.Nil(t, gen)
	assert.Contains(t, err.Error(), `unsupported LLM provider: "gemini"`)
}
