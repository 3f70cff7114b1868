package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time interface check.
var _ Completer = (*AnthropicProvider)(nil)

func newAnthropicTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func newAnthropicTestProvider(baseURL string) *AnthropicProvider {
	cfg := AnthropicConfig{
		APIKey:  "test-api-key",
		Model:   "claude-3-5-haiku-latest",
		BaseURL: baseURL,
	}
	p := NewAnthropicProvider(cfg, ProviderOptions{Temperature: 0.2, Timeout: 10 * time.Second, MaxRetries: 2})
	p.retryDelay = 10 * time.Millisecond
	return p
}

func writeAnthropicText(w http.ResponseWriter, text string) {
	resp := messagesResponse{
		ID:         "msg_test123",
		Type:       "message",
		Role:       "assistant",
		Content:    []contentBlock{{Type: "text", Text: text}},
		Model:      "claude-3-5-haiku-latest",
		StopReason: "end_turn",
		Usage:      anthropicUsage{InputTokens: 150, OutputTokens: 45},
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

func TestAnthropicProvider_Complete(t *testing.T) {
	t.Parallel()

	srv := newAnthropicTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "test-api-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var reqBody messagesRequest
		require.NoError(t, json.Unmarshal(body, &reqBody))
		assert.Equal(t, "claude-3-5-haiku-latest", reqBody.Model)
		assert.Equal(t, defaultAnthropicMaxTokens, reqBody.MaxTokens)
		assert.Equal(t, "be brief", reqBody.System)
		require.Len(t, reqBody.Messages, 1)
		assert.Equal(t, "user", reqBody.Messages[0].Role)
		assert.Equal(t, "hello", reqBody.Messages[0].Content)
		assert.InDelta(t, 0.2, reqBody.Temperature, 0.001)

		writeAnthropicText(w, "  The paper is relevant.  ")
	})
	provider := newAnthropicTestProvider(srv.URL)

	out, err := provider.Complete(context.Background(), CompletionRequest{System: "be brief", User: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "The paper is relevant.", out.Text)
	assert.Equal(t, "claude-3-5-haiku-latest", out.Model)
	assert.Equal(t, 150, out.InputTokens)
	assert.Equal(t, 45, out.OutputTokens)
}

func TestAnthropicProvider_Complete_APIError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		statusCode int
		body       string
		wantType   string
		wantCalls  int32
	}{
		{
			name:       "invalid api key is not retried",
			statusCode: http.StatusUnauthorized,
			body:       `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`,
			wantType:   "authentication_error",
			wantCalls:  1,
		},
		{
			name:       "bad request is not retried",
			statusCode: http.StatusBadRequest,
			body:       `{"type":"error","error":{"type":"invalid_request_error","message":"max_tokens too large"}}`,
			wantType:   "invalid_request_error",
			wantCalls:  1,
		},
		{
			name:       "overloaded is retried until exhausted",
			statusCode: 529,
			body:       `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`,
			wantType:   "overloaded_error",
			wantCalls:  3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var calls atomic.Int32
			srv := newAnthropicTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.body))
			})
			provider := newAnthropicTestProvider(srv.URL)

			_, err := provider.Complete(context.Background(), CompletionRequest{User: "hello"})
			require.Error(t, err)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, "anthropic", apiErr.Provider)
			assert.Equal(t, tt.statusCode, apiErr.StatusCode)
			assert.Equal(t, tt.wantType, apiErr.Type)
			assert.Equal(t, tt.wantCalls, calls.Load())
		})
	}
}

func TestAnthropicProvider_Complete_RetriesRateLimit(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := newAnthropicTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`))
			return
		}
		writeAnthropicText(w, "ok")
	})
	provider := newAnthropicTestProvider(srv.URL)

	out, err := provider.Complete(context.Background(), CompletionRequest{User: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "ok", out.Text)
	assert.Equal(t, int32(2), calls.Load())
}

func TestAnthropicProvider_Complete_EmptyContent(t *testing.T) {
	t.Parallel()

	srv := newAnthropicTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeAnthropicText(w, "   ")
	})
	provider := newAnthropicTestProvider(srv.URL)

	_, err := provider.Complete(context.Background(), CompletionRequest{User: "hello"})
	require.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestAnthropicProvider_Complete_ContextCancelledDuringBackoff(t *testing.T) {
	t.Parallel()

	srv := newAnthropicTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	provider := newAnthropicTestProvider(srv.URL)
	provider.retryDelay = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := provider.Complete(ctx, CompletionRequest{User: "hello"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewAnthropicProvider_Defaults(t *testing.T) {
	t.Parallel()

	p := NewAnthropicProvider(AnthropicConfig{APIKey: "k"}, ProviderOptions{})

	assert.Equal(t, "anthropic", p.Provider())
	assert.Equal(t, defaultAnthropicModel, p.Model())
	assert.Equal(t, defaultAnthropicBaseURL, p.baseURL)
	assert.Equal(t, defaultAnthropicMaxTokens, p.maxTokens)
	assert.Equal(t, defaultMaxRetries, p.maxRetries)
	assert.Equal(t, defaultTimeout, p.httpClient.Timeout)
}
