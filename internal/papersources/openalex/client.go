package openalex

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/helixir/paper-enrichment-service/internal/domain"
	"github.com/helixir/paper-enrichment-service/internal/papersources"
)

const (
	// DefaultBaseURL is the default OpenAlex API base URL.
	DefaultBaseURL = "https://api.openalex.org"

	// DefaultRateLimit is the default request rate. The polite pool (with email) allows more.
	DefaultRateLimit = 10.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 5

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second

	// doiURLPrefix is how OpenAlex addresses works by DOI.
	doiURLPrefix = "https://doi.org/"

	// selectFields is the root-level field projection.
	selectFields = "id,doi,title,display_name,type,language,publication_year,publication_date," +
		"cited_by_count,fwci,citation_normalized_percentile,institutions_distinct_count," +
		"countries_distinct_count,is_retracted,has_fulltext,open_access,primary_location," +
		"authorships,abstract_inverted_index,topics,grants,keywords,counts_by_year,biblio," +
		"related_works,referenced_works"
)

// Config holds configuration for the OpenAlex client.
type Config struct {
	// BaseURL is the OpenAlex API base URL.
	BaseURL string

	// Email is the contact email for the polite pool.
	Email string

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

// Client is the citation-metrics source.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

// New creates a new OpenAlex client with the given configuration.
func New(cfg Config, opts ...papersources.HTTPClientOption) *Client {
	cfg.applyDefaults()

	userAgent := "Helixir-PaperEnrichment/1.0"
	if cfg.Email != "" {
		userAgent += " (mailto:" + cfg.Email + ")"
	}

	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Source:    string(domain.SourceTypeOpenAlex),
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

// NewWithHTTPClient creates a new OpenAlex client with a custom HTTP client.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()
	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// SourceType identifies this source.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeOpenAlex
}

// FetchByDOI resolves a work by DOI. It returns false when the source has no usable data.
func (c *Client) FetchByDOI(ctx context.Context, doi string) (*Work, bool) {
	params := url.Values{}
	params.Set("select", selectFields)
	if c.config.Email != "" {
		params.Set("mailto", c.config.Email)
	}
	reqURL := c.config.BaseURL + "/works/" + doiURLPrefix + papersources.EscapeDOIPath(doi) + "?" + params.Encode()

	var work Work
	state, err := c.httpClient.GetJSON(ctx, reqURL, &work)
	if err != nil {
		c.httpClient.ReportAbsent(ctx, doi, state, err)
		return nil, false
	}
	if work.ID == "" {
		c.httpClient.ReportAbsent(ctx, doi, state, nil)
		return nil, false
	}
	return &work, true
}
