// Package enrichment turns a DOI or a free-text query into canonical paper records.
//
// The Orchestrator fans out to the four metadata sources, merges the answers and derives
// badges. The Service in front of it is the identity/cache gate: it consults the paper
// store before touching any source and persists new records idempotently.
package enrichment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/helixir/paper-enrichment-service/internal/badges"
	"github.com/helixir/paper-enrichment-service/internal/domain"
	"github.com/helixir/paper-enrichment-service/internal/normalize"
	"github.com/helixir/paper-enrichment-service/internal/papersources"
	"github.com/helixir/paper-enrichment-service/internal/papersources/crossref"
	"github.com/helixir/paper-enrichment-service/internal/papersources/openalex"
	"github.com/helixir/paper-enrichment-service/internal/papersources/semanticscholar"
	"github.com/helixir/paper-enrichment-service/internal/papersources/unpaywall"
)

// Search defaults.
const (
	DefaultSearchPageSize           = 10
	DefaultSearchMaxPages           = 5
	DefaultInterPageDelay           = 2 * time.Second
	DefaultMaxConcurrentEnrichments = 3
)

// GraphSource is the search/graph source.
type GraphSource interface {
	FetchByDOI(ctx context.Context, doi string) (*semanticscholar.Paper, bool)
	SearchByQuery(ctx context.Context, query string, offset, limit int) ([]semanticscholar.Paper, error)
}

// MetricsSource is the citation-metrics source.
type MetricsSource interface {
	FetchByDOI(ctx context.Context, doi string) (*openalex.Work, bool)
}

// RegistrySource is the publisher-registry source.
type RegistrySource interface {
	FetchByDOI(ctx context.Context, doi string) (*crossref.Work, bool)
}

// AccessSource is the open-access resolver.
type AccessSource interface {
	FetchByDOI(ctx context.Context, doi string) (*unpaywall.Record, bool)
}

// Sources groups the four source clients. A nil member is always Absent.
type Sources struct {
	Graph    GraphSource
	Metrics  MetricsSource
	Registry RegistrySource
	Access   AccessSource
}

// OrchestratorConfig tunes the search variant.
type OrchestratorConfig struct {
	// SearchPageSize is the number of results requested per search page.
	SearchPageSize int

	// SearchMaxPages bounds how many pages one query may fetch.
	SearchMaxPages int

	// InterPageDelay is waited before every page after the first. Negative disables it.
	InterPageDelay time.Duration

	// MaxConcurrentEnrichments caps DOI-level enrichments running at once.
	MaxConcurrentEnrichments int
}

// SearchBudget is the worst-case duration of one paginated search when each page
// request takes at most perPage.
func (c OrchestratorConfig) SearchBudget(perPage time.Duration) time.Duration {
	c.applyDefaults()
	pages := time.Duration(c.SearchMaxPages)
	return pages*perPage + (pages-1)*c.InterPageDelay
}

func (c *OrchestratorConfig) applyDefaults() {
	if c.SearchPageSize <= 0 {
		c.SearchPageSize = DefaultSearchPageSize
	}
	if c.SearchMaxPages <= 0 {
		c.SearchMaxPages = DefaultSearchMaxPages
	}
	switch {
	case c.InterPageDelay == 0:
		c.InterPageDelay = DefaultInterPageDelay
	case c.InterPageDelay < 0:
		c.InterPageDelay = 0
	}
	if c.MaxConcurrentEnrichments <= 0 {
		c.MaxConcurrentEnrichments = DefaultMaxConcurrentEnrichments
	}
}

// Recorder receives enrichment metrics. observability.Metrics implements it.
type Recorder interface {
	RecordEnrichment(outcome string, duration time.Duration)
	RecordCacheLookup(result string)
	RecordSearchPage()
	RecordBadges(badges []string)
	RecordReport(status string)
}

type nopRecorder struct{}

func (nopRecorder) RecordEnrichment(string, time.Duration) {}
func (nopRecorder) RecordCacheLookup(string)               {}
func (nopRecorder) RecordSearchPage()                      {}
func (nopRecorder) RecordBadges([]string)                  {}
func (nopRecorder) RecordReport(string)                    {}

// Enrichment outcomes reported to the Recorder.
const (
	OutcomeEnriched   = "enriched"
	OutcomeCached     = "cached"
	OutcomeNoMetadata = "no_metadata"
	OutcomeFailed     = "failed"
)

// Orchestrator runs the per-DOI fan-out and the query search variant.
type Orchestrator struct {
	sources Sources
	cfg     OrchestratorConfig
	sleep   papersources.Sleeper
	now     func() time.Time
	logger  zerolog.Logger
	metrics Recorder
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithSleeper replaces the inter-page delay implementation.
func WithSleeper(sleep papersources.Sleeper) Option {
	return func(o *Orchestrator) {
		if sleep != nil {
			o.sleep = sleep
		}
	}
}

// WithClock sets the time source used for date fallback and badge age.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger sets the orchestrator logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger.With().Str("component", "enrichment").Logger()
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.metrics = r
		}
	}
}

// NewOrchestrator creates an Orchestrator over the given sources.
func NewOrchestrator(sources Sources, cfg OrchestratorConfig, opts ...Option) *Orchestrator {
	cfg.applyDefaults()
	o := &Orchestrator{
		sources: sources,
		cfg:     cfg,
		sleep:   papersources.SleepContext,
		now:     time.Now,
		logger:  zerolog.Nop(),
		metrics: nopRecorder{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Config returns the effective configuration.
func (o *Orchestrator) Config() OrchestratorConfig {
	return o.cfg
}

// Fetch queries all four sources concurrently and waits for every one of them. Sources
// never cancel each other; each reports its own Absent.
func (o *Orchestrator) Fetch(ctx context.Context, doi string) normalize.Bundle {
	bundle := normalize.Bundle{DOI: doi}

	var wg sync.WaitGroup
	if o.sources.Graph != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if p, ok := o.sources.Graph.FetchByDOI(ctx, doi); ok {
				bundle.Graph = p
			}
		}()
	}
	if o.sources.Metrics != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if w, ok := o.sources.Metrics.FetchByDOI(ctx, doi); ok {
				bundle.Metrics = w
			}
		}()
	}
	if o.sources.Registry != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if w, ok := o.sources.Registry.FetchByDOI(ctx, doi); ok {
				bundle.Registry = w
			}
		}()
	}
	if o.sources.Access != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r, ok := o.sources.Access.FetchByDOI(ctx, doi); ok {
				bundle.Access = r
			}
		}()
	}
	wg.Wait()

	return bundle
}

// EnrichDOI fetches, normalizes and badges one DOI. It returns an *domain.EnrichmentError
// (matching domain.ErrNoMetadataFound) when every source is Absent.
func (o *Orchestrator) EnrichDOI(ctx context.Context, doi string) (*domain.Paper, error) {
	doi = domain.NormalizeDOI(doi)
	start := o.now()

	bundle := o.Fetch(ctx, doi)
	if err := ctx.Err(); err != nil && bundle.Empty() {
		return nil, fmt.Errorf("%w: enriching %s: %w", domain.ErrCancelled, doi, err)
	}
	if bundle.Empty() {
		o.metrics.RecordEnrichment(OutcomeNoMetadata, o.now().Sub(start))
		o.logger.Info().Str("doi", doi).Msg("no source returned metadata")
		return nil, domain.NewNoMetadataError(doi)
	}

	now := o.now()
	paper := normalize.Normalize(bundle, now)
	paper.Badges = badges.Compute(badges.FieldsFromPaper(paper), now).Sorted()

	o.metrics.RecordEnrichment(OutcomeEnriched, o.now().Sub(start))
	o.metrics.RecordBadges(paper.Badges)
	o.logger.Debug().
		Str("doi", doi).
		Int("sources", len(paper.Sources)).
		Strs("badges", paper.Badges).
		Msg("paper enriched")

	return paper, nil
}

// Candidates is the outcome of paginating the search source for DOIs.
type Candidates struct {
	DOIs         []string
	PagesFetched int
	// Exhausted is true when pagination ended before the requested count was reached.
	Exhausted bool
}

// SearchCandidates pages through the search source until n distinct DOIs are collected,
// the source runs out of results, or the page budget is spent. A failure on the first
// page is an outage and is returned as an error; a failure on a later page ends
// pagination with what was collected.
func (o *Orchestrator) SearchCandidates(ctx context.Context, query string, n int) (*Candidates, error) {
	if o.sources.Graph == nil {
		return nil, fmt.Errorf("%w: search source not configured", domain.ErrSourceUnavailable)
	}
	if n <= 0 {
		return &Candidates{Exhausted: true}, nil
	}

	seen := make(map[string]struct{}, n)
	result := &Candidates{DOIs: make([]string, 0, n)}
	logger := o.logger.With().Str("query", query).Logger()

	for page := 0; page < o.cfg.SearchMaxPages && len(result.DOIs) < n; page++ {
		if page > 0 && o.cfg.InterPageDelay > 0 {
			if err := o.sleep(ctx, o.cfg.InterPageDelay); err != nil {
				return nil, fmt.Errorf("%w: searching %q: %w", domain.ErrCancelled, query, err)
			}
		}

		papers, err := o.sources.Graph.SearchByQuery(ctx, query, page*o.cfg.SearchPageSize, o.cfg.SearchPageSize)
		if err != nil {
			if page == 0 {
				return nil, fmt.Errorf("searching %q: %w", query, err)
			}
			logger.Warn().Err(err).Int("page", page).Msg("search page failed, keeping collected candidates")
			break
		}
		result.PagesFetched++
		o.metrics.RecordSearchPage()

		for i := range papers {
			doi := domain.NormalizeDOI(papers[i].DOI())
			if _, err := domain.ParseDOI(doi); err != nil {
				continue
			}
			if _, dup := seen[doi]; dup {
				continue
			}
			seen[doi] = struct{}{}
			result.DOIs = append(result.DOIs, doi)
			if len(result.DOIs) == n {
				break
			}
		}

		if len(papers) < o.cfg.SearchPageSize {
			break
		}
	}

	result.Exhausted = len(result.DOIs) < n
	logger.Debug().
		Int("requested", n).
		Int("found", len(result.DOIs)).
		Int("pages", result.PagesFetched).
		Msg("search candidates collected")

	return result, nil
}

// DOIEnricher resolves one DOI into a paper. The Service passes its cache-aware
// EnrichByDOI so repeated DOIs are served from the store.
type DOIEnricher func(ctx context.Context, doi string) (*domain.Paper, error)

// QueryResult is the outcome of a query enrichment. Zero papers is a valid result.
type QueryResult struct {
	Query           string          `json:"query"`
	Papers          []*domain.Paper `json:"papers"`
	Requested       int             `json:"requested"`
	CandidatesFound int             `json:"found"`
	PagesFetched    int             `json:"pages_fetched"`
	Exhausted       bool            `json:"exhausted"`
	Failed          []string        `json:"failed,omitempty"`
}

// EnrichQuery collects candidate DOIs for query and enriches them concurrently, bounded
// by MaxConcurrentEnrichments. DOIs that fail to enrich are skipped and listed in Failed.
// Papers keep the search ranking order.
func (o *Orchestrator) EnrichQuery(ctx context.Context, query string, n int, enrich DOIEnricher) (*QueryResult, error) {
	if enrich == nil {
		enrich = o.EnrichDOI
	}

	candidates, err := o.SearchCandidates(ctx, query, n)
	if err != nil {
		return nil, err
	}

	papers := make([]*domain.Paper, len(candidates.DOIs))
	failures := make([]error, len(candidates.DOIs))

	var g errgroup.Group
	g.SetLimit(o.cfg.MaxConcurrentEnrichments)
	for i, doi := range candidates.DOIs {
		g.Go(func() error {
			p, err := enrich(ctx, doi)
			if err != nil {
				failures[i] = err
				return nil
			}
			papers[i] = p
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: enriching query %q: %w", domain.ErrCancelled, query, err)
	}

	result := &QueryResult{
		Query:           query,
		Papers:          make([]*domain.Paper, 0, len(papers)),
		Requested:       n,
		CandidatesFound: len(candidates.DOIs),
		PagesFetched:    candidates.PagesFetched,
		Exhausted:       candidates.Exhausted,
	}
	for i, p := range papers {
		if p != nil {
			result.Papers = append(result.Papers, p)
			continue
		}
		result.Failed = append(result.Failed, candidates.DOIs[i])
		event := o.logger.Warn()
		if errors.Is(failures[i], domain.ErrNoMetadataFound) {
			event = o.logger.Info()
		}
		event.Err(failures[i]).Str("doi", candidates.DOIs[i]).Msg("skipping candidate")
	}

	return result, nil
}
