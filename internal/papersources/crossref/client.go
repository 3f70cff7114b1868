package crossref

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/helixir/paper-enrichment-service/internal/domain"
	"github.com/helixir/paper-enrichment-service/internal/papersources"
)

const (
	// DefaultBaseURL is the default Crossref API base URL.
	DefaultBaseURL = "https://api.crossref.org"

	// DefaultRateLimit is the polite-pool request rate.
	DefaultRateLimit = 10.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 5

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second
)

// Config holds configuration for the Crossref client.
type Config struct {
	// BaseURL is the Crossref API base URL.
	BaseURL string

	// ContactEmail routes requests to the polite pool.
	ContactEmail string

	// Timeout is the request timeout.
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
		c.MaxAttempts = papersources.DefaultMaxAttempts
	}
	if c.RateLimitMinDelay == 0 {
		c.RateLimitMinDelay = papersources.DefaultRateLimitMinDelay
	}
}

// Client is the publisher-registry source.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

// New creates a new Crossref client.
func New(cfg Config, opts ...papersources.HTTPClientOption) *Client {
	cfg.applyDefaults()

	userAgent := "Helixir-PaperEnrichment/1.0"
	if cfg.ContactEmail != "" {
		userAgent += " (mailto:" + cfg.ContactEmail + ")"
	}

	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Source:    string(domain.SourceTypeCrossref),
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		BurstSize: cfg.BurstSize,
		UserAgent: userAgent,
		Retry: papersources.RetryPolicy{
			MaxAttempts:       cfg.MaxAttempts,
			RateLimitMinDelay: cfg.RateLimitMinDelay,
		},
	}, opts...)

	return NewWithHTTPClient(cfg, httpClient)
}

// NewWithHTTPClient creates a Crossref client with a custom HTTP client.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()
	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// SourceType identifies this source.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeCrossref
}

// FetchByDOI resolves a work by DOI. It returns false when the source has no usable data.
func (c *Client) FetchByDOI(ctx context.Context, doi string) (*Work, bool) {
	reqURL := c.config.BaseURL + "/works/" + papersources.EscapeDOIPath(doi)
	if c.config.ContactEmail != "" {
		reqURL += "?" + url.Values{"mailto": []string{c.config.ContactEmail}}.Encode()
	}

	var resp response
	state, err := c.httpClient.GetJSON(ctx, reqURL, &resp)
	if err != nil {
		c.httpClient.ReportAbsent(ctx, doi, state, err)
		return nil, false
	}
	if resp.Message.DOI == "" && len(resp.Message.Title) == 0 {
		c.httpClient.ReportAbsent(ctx, doi, state, nil)
		return nil, false
	}
	return &resp.Message, true
}
