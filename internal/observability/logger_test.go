package observability

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "enrich.log")
	logger := NewLogger(LoggingConfig{Level: "debug", Format: "json", Output: path})

	logger.Info().Str("doi", "10.1038/nature12373").Msg("paper enriched")

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	require.True(t, scanner.Scan())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
	assert.Equal(t, ServiceName, entry["service"])
	assert.Equal(t, "10.1038/nature12373", entry["doi"])
	assert.Equal(t, "info", entry["level"])
	assert.Contains(t, entry, "time")
}

func TestNewLogger_Level(t *testing.T) {
	logger := NewLogger(LoggingConfig{Level: "warn", Output: "stderr"})
	assert.Equal(t, zerolog.WarnLevel, logger.GetLevel())

	logger = NewLogger(LoggingConfig{Format: "console", Output: "stdout"})
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
}

func TestNewLogger_UnwritableFileFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "dir", "enrich.log")
	logger := NewLogger(LoggingConfig{Output: path})

	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"Warning", zerolog.WarnLevel},
		{" error ", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"panic", zerolog.PanicLevel},
		{"verbose", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.input))
		})
	}
}

func TestTemporalLogger(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf).Level(zerolog.DebugLevel)
	tl := NewTemporalLogger(base)

	tl.Debug("polling task queue", "queue", "paper-enrichment")
	assert.Zero(t, buf.Len(), "sdk debug entries are demoted to trace")

	tl.With("WorkflowID", "batch-1").Info("activity completed", "ActivityType", "EnrichDOI", "dangling")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "temporal-sdk", entry["component"])
	assert.Equal(t, "batch-1", entry["WorkflowID"])
	assert.Equal(t, "EnrichDOI", entry["ActivityType"])
	assert.Contains(t, entry, "dangling")
	assert.Equal(t, "activity completed", entry["message"])
}
