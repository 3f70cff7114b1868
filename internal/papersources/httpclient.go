package papersources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/paper-enrichment-service/internal/domain"
)

// HTTPClientConfig configures the HTTP client.
type HTTPClientConfig struct {
	// Source names the upstream API in logs, metrics and errors.
	Source string

	// Timeout is the per-attempt request timeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// Retry is the retry/backoff policy applied to every request.
	Retry RetryPolicy

	// UserAgent is the User-Agent header sent with requests.
	UserAgent string

	// APIKey is an optional API key for authentication.
	APIKey string

	// APIKeyHeader is the header name for the API key (e.g., "x-api-key").
	APIKeyHeader string
}

// HTTPClientOption customizes an HTTPClient.
type HTTPClientOption func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client, typically to inject a transport.
func WithHTTPClient(client *http.Client) HTTPClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// WithSleeper replaces the backoff sleeper.
func WithSleeper(sleep Sleeper) HTTPClientOption {
	return func(c *HTTPClient) {
		c.sleep = sleep
	}
}

// WithObserver attaches request telemetry.
func WithObserver(observer Observer) HTTPClientOption {
	return func(c *HTTPClient) {
		if observer != nil {
			c.observer = observer
		}
	}
}

// WithLogger sets the logger used to report absent results.
func WithLogger(logger zerolog.Logger) HTTPClientOption {
	return func(c *HTTPClient) {
		c.logger = logger
	}
}

// HTTPClient wraps http.Client with rate limiting and the retry engine.
// It is safe for concurrent use.
type HTTPClient struct {
	client      *http.Client
	rateLimiter *RateLimiter
	engine      *RetryEngine
	sleep       Sleeper
	observer    Observer
	logger      zerolog.Logger
	config      HTTPClientConfig
}

// NewHTTPClient creates a new HTTP client with rate limiting and retries.
func NewHTTPClient(cfg HTTPClientConfig, opts ...HTTPClientOption) *HTTPClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 10
	}
	if cfg.BurstSize == 0 {
		cfg.BurstSize = 1
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Helixir-PaperEnrichment/1.0"
	}
	cfg.Retry.applyDefaults()

	c := &HTTPClient{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimiter: NewRateLimiter(cfg.RateLimit, cfg.BurstSize),
		sleep:       SleepContext,
		observer:    NopObserver{},
		logger:      zerolog.Nop(),
		config:      cfg,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.client.Timeout == 0 {
		c.client.Timeout = cfg.Timeout
	}
	c.engine = NewRetryEngine(cfg.Source, cfg.Retry, c.sleep, c.observer)
	c.logger = c.logger.With().Str("source", cfg.Source).Logger()
	return c
}

// Source returns the configured source name.
func (c *HTTPClient) Source() string {
	return c.config.Source
}

// Do executes an HTTP request through the rate limiter and retry engine.
// Only 2xx responses are returned; every other outcome is an error.
func (c *HTTPClient) Do(req *http.Request) (*http.Response, *RetryState, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	if c.config.APIKey != "" && c.config.APIKeyHeader != "" {
		req.Header.Set(c.config.APIKeyHeader, c.config.APIKey)
	}

	return c.engine.Execute(req.Context(), func(ctx context.Context) (*http.Response, error) {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}
		if err := resetRequestBody(req); err != nil {
			return nil, fmt.Errorf("cannot retry request: %w", err)
		}
		return c.client.Do(req.WithContext(ctx))
	})
}

// GetJSON issues a GET to url and decodes the JSON body into out.
func (c *HTTPClient) GetJSON(ctx context.Context, url string, out any) (*RetryState, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, state, err := c.Do(req)
	if err != nil {
		return state, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBytes))
	if err != nil {
		return state, domain.NewExternalAPIError(c.config.Source, resp.StatusCode, "failed to read response", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return state, domain.NewExternalAPIError(c.config.Source, resp.StatusCode, "failed to decode response", err)
	}
	return state, nil
}

// ReportAbsent logs and counts a fetch that produced no data.
func (c *HTTPClient) ReportAbsent(ctx context.Context, key string, state *RetryState, err error) {
	reason := AbsentReason(err)
	c.observer.ObserveSourceAbsent(c.config.Source, string(reason))

	event := c.logger.Warn()
	if reason == ReasonNotFound {
		event = c.logger.Debug()
	}
	if state != nil {
		event = event.Int("attempts", state.Attempts).
			Int("status", state.LastStatus).
			Dur("total_wait", state.TotalWait)
	}
	event.Ctx(ctx).
		Str("key", key).
		Str("reason", string(reason)).
		Err(err).
		Msg("source returned no data")
}

// resetRequestBody resets the request body for retry if possible.
func resetRequestBody(req *http.Request) error {
	if req.Body == nil || req.GetBody == nil {
		return nil
	}

	body, err := req.GetBody()
	if err != nil {
		return fmt.Errorf("failed to get request body for retry: %w", err)
	}
	req.Body = body
	return nil
}
