package unpaywall

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/helixir/paper-enrichment-service/internal/domain"
	"github.com/helixir/paper-enrichment-service/internal/papersources"
)

const (
	// DefaultBaseURL is the default Unpaywall API base URL.
	DefaultBaseURL = "https://api.unpaywall.org/v2"

	// DefaultRateLimit keeps well under the 100k/day allowance.
	DefaultRateLimit = 10.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 5

	// DefaultTimeout is the default request timeout. Unpaywall answers from a single index.
	DefaultTimeout = 8 * time.Second
)

// ErrMissingEmail is reported when the client is used without a contact email.
var ErrMissingEmail = errors.New("unpaywall requires a contact email")

// Config holds configuration for the Unpaywall client.
type Config struct {
	// BaseURL is the Unpaywall API base URL.
	BaseURL string

	// Email is sent with every request as required by the API terms.
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

// Client is the open-access resolver source.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

// New creates a new Unpaywall client.
func New(cfg Config, opts ...papersources.HTTPClientOption) *Client {
	cfg.applyDefaults()

	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Source:    string(domain.SourceTypeUnpaywall),
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		BurstSize: cfg.BurstSize,
		Retry: papersources.RetryPolicy{
			MaxAttempts:       cfg.MaxAttempts,
			RateLimitMinDelay: cfg.RateLimitMinDelay,
		},
	}, opts...)

	return NewWithHTTPClient(cfg, httpClient)
}

// NewWithHTTPClient creates an Unpaywall client with a custom HTTP client.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()
	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// SourceType identifies this source.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeUnpaywall
}

// FetchByDOI resolves open-access status for a DOI. It returns false when the source
// has no usable data or no contact email is configured.
func (c *Client) FetchByDOI(ctx context.Context, doi string) (*Record, bool) {
	if c.config.Email == "" {
		c.httpClient.ReportAbsent(ctx, doi, nil, ErrMissingEmail)
		return nil, false
	}

	reqURL := c.config.BaseURL + "/" + papersources.EscapeDOIPath(doi) +
		"?" + url.Values{"email": []string{c.config.Email}}.Encode()

	var record Record
	state, err := c.httpClient.GetJSON(ctx, reqURL, &record)
	if err != nil {
		c.httpClient.ReportAbsent(ctx, doi, state, err)
		return nil, false
	}
	if record.DOI == "" && record.IsOA == nil {
		c.httpClient.ReportAbsent(ctx, doi, state, nil)
		return nil, false
	}
	return &record, true
}
