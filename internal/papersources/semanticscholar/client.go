package semanticscholar

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/helixir/paper-enrichment-service/internal/domain"
	"github.com/helixir/paper-enrichment-service/internal/papersources"
)

const (
	// DefaultBaseURL is the default base URL for the Semantic Scholar Graph API.
	DefaultBaseURL = "https://api.semanticscholar.org/graph/v1"

	// DefaultRateLimit is the unauthenticated request rate (roughly 100 req / 5 min shared pool).
	DefaultRateLimit = 1.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 1

	// DefaultTimeout is the per-request timeout. Search is the slowest upstream.
	DefaultTimeout = 15 * time.Second

	// DefaultMaxAttempts is higher than other sources because 429s are routine here.
	DefaultMaxAttempts = 4

	// DefaultRateLimitMinDelay is the 429 delay when no Retry-After is sent.
	DefaultRateLimitMinDelay = 5 * time.Second

	// MaxSearchLimit is the largest page the search endpoint accepts.
	MaxSearchLimit = 100

	// apiKeyHeader is the header name for the Semantic Scholar API key.
	apiKeyHeader = "x-api-key"

	// paperFields is the field projection requested from the API.
	paperFields = "title,authors,year,venue,abstract,url,citationCount,externalIds,publicationDate,isOpenAccess"
)

// Config contains configuration options for the Semantic Scholar client.
type Config struct {
	// BaseURL is the base URL for the API.
	BaseURL string

	// APIKey is the optional API key; authenticated requests get a dedicated rate limit.
	APIKey string

	// Timeout is the HTTP request timeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// MaxAttempts bounds attempts per request, including the first.
	MaxAttempts int

	// RateLimitMinDelay is the base 429 delay.
	RateLimitMinDelay time.Duration
}

// applyDefaults sets default values for unset configuration fields.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.BurstSize == 0 {
		c.BurstSize = DefaultBurstSize
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.RateLimitMinDelay == 0 {
		c.RateLimitMinDelay = DefaultRateLimitMinDelay
	}
}

// RequestBudget is the worst-case duration of one request, retries included.
func (c Config) RequestBudget() time.Duration {
	c.applyDefaults()
	policy := papersources.RetryPolicy{
		MaxAttempts:       c.MaxAttempts,
		RateLimitMinDelay: c.RateLimitMinDelay,
	}
	return policy.WorstCase(c.Timeout)
}

// Client is the search/graph source.
type Client struct {
	httpClient *papersources.HTTPClient
	config     Config
}

// New creates a Semantic Scholar client. Options are passed to the underlying HTTPClient.
func New(cfg Config, opts ...papersources.HTTPClientOption) *Client {
	cfg.applyDefaults()

	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Source:       string(domain.SourceTypeSemanticScholar),
		Timeout:      cfg.Timeout,
		RateLimit:    cfg.RateLimit,
		BurstSize:    cfg.BurstSize,
		APIKey:       cfg.APIKey,
		APIKeyHeader: apiKeyHeader,
		Retry: papersources.RetryPolicy{
			MaxAttempts:       cfg.MaxAttempts,
			RateLimitMinDelay: cfg.RateLimitMinDelay,
		},
	}, opts...)

	return NewWithHTTPClient(cfg, httpClient)
}

// NewWithHTTPClient creates a client around an existing HTTPClient.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()
	return &Client{
		httpClient: httpClient,
		config:     cfg,
	}
}

// SourceType identifies this source.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeSemanticScholar
}

// FetchByDOI resolves a single paper. It returns false when the source has no usable data.
func (c *Client) FetchByDOI(ctx context.Context, doi string) (*Paper, bool) {
	reqURL := fmt.Sprintf("%s/paper/DOI:%s?fields=%s",
		c.config.BaseURL, papersources.EscapeDOIPath(doi), url.QueryEscape(paperFields))

	var paper Paper
	state, err := c.httpClient.GetJSON(ctx, reqURL, &paper)
	if err != nil {
		c.httpClient.ReportAbsent(ctx, doi, state, err)
		return nil, false
	}
	if paper.PaperID == "" && paper.Title == "" {
		c.httpClient.ReportAbsent(ctx, doi, state, nil)
		return nil, false
	}
	return &paper, true
}

// SearchByQuery fetches one page of keyword search results. Unlike FetchByDOI it returns
// an error when the page could not be fetched, so callers can tell an outage from an
// empty result set.
func (c *Client) SearchByQuery(ctx context.Context, query string, offset, limit int) ([]Paper, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.NewValidationError("query", "must not be empty")
	}
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("offset", strconv.Itoa(offset))
	params.Set("limit", strconv.Itoa(limit))
	params.Set("fields", paperFields)
	reqURL := c.config.BaseURL + "/paper/search?" + params.Encode()

	var resp SearchResponse
	state, err := c.httpClient.GetJSON(ctx, reqURL, &resp)
	if err != nil {
		c.httpClient.ReportAbsent(ctx, "search:"+query, state, err)
		return nil, fmt.Errorf("semantic scholar search (offset %d): %w", offset, err)
	}
	return resp.Data, nil
}
