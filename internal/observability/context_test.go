package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestIDContext(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, RequestIDFromContext(ctx))

	ctx = WithRequestID(ctx, "req-123")
	assert.Equal(t, "req-123", RequestIDFromContext(ctx))
}

func TestDOIContext(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, DOIFromContext(ctx))

	ctx = WithDOI(ctx, "10.1038/nature12373")
	assert.Equal(t, "10.1038/nature12373", DOIFromContext(ctx))
}

func TestWorkflowContext(t *testing.T) {
	ctx := context.Background()
	wf, run := WorkflowFromContext(ctx)
	assert.Empty(t, wf)
	assert.Empty(t, run)

	ctx = WithWorkflow(ctx, "wf-1", "run-1")
	wf, run = WorkflowFromContext(ctx)
	assert.Equal(t, "wf-1", wf)
	assert.Equal(t, "run-1", run)
}

func TestContextOverwrite(t *testing.T) {
	ctx := WithDOI(context.Background(), "10.1/a")
	ctx = WithDOI(ctx, "10.1/b")
	assert.Equal(t, "10.1/b", DOIFromContext(ctx))
}

func TestLoggerFromContext(t *testing.T) {
	t.Run("adds present fields", func(t *testing.T) {
		var buf bytes.Buffer
		ctx := WithRequestID(context.Background(), "req-9")
		ctx = WithDOI(ctx, "10.1/x")
		ctx = WithWorkflow(ctx, "wf-9", "run-9")

		logger := LoggerFromContext(ctx, zerolog.New(&buf))
		logger.Info().Msg("hello")

		entry := decodeEntry(t, &buf)
		assert.Equal(t, "req-9", entry["request_id"])
		assert.Equal(t, "10.1/x", entry["doi"])
		assert.Equal(t, "wf-9", entry["workflow_id"])
		assert.Equal(t, "run-9", entry["workflow_run_id"])
	})

	t.Run("omits absent fields", func(t *testing.T) {
		var buf bytes.Buffer

		logger := LoggerFromContext(context.Background(), zerolog.New(&buf))
		logger.Info().Msg("hello")

		entry := decodeEntry(t, &buf)
		assert.NotContains(t, entry, "request_id")
		assert.NotContains(t, entry, "doi")
		assert.NotContains(t, entry, "workflow_id")
	})
}

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}
