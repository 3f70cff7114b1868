package enrichment

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/helixir/paper-enrichment-service/internal/badges"
	"github.com/helixir/paper-enrichment-service/internal/domain"
)

// MaxQueryCount bounds the number of papers one query may request.
const MaxQueryCount = 50

// Cache lookup results reported to the Recorder.
const (
	CacheHit  = "hit"
	CacheMiss = "miss"
)

// Report generation statuses reported to the Recorder.
const (
	ReportGenerated = "generated"
	ReportCached    = "cached"
	ReportFailed    = "failed"
)

// PaperStore persists canonical papers keyed by DOI.
type PaperStore interface {
	// FindByDOI returns domain.ErrNotFound when no paper has the DOI.
	FindByDOI(ctx context.Context, doi string) (*domain.Paper, error)

	// Create stores a new paper. When the DOI already exists it returns the stored row.
	Create(ctx context.Context, paper *domain.Paper) (*domain.Paper, error)

	// UpdateMetrics overwrites the refreshable fields of an existing paper.
	UpdateMetrics(ctx context.Context, paper *domain.Paper) (*domain.Paper, error)
}

// ReportStore caches generated reports per (paper, query, type).
type ReportStore interface {
	// FindReport returns domain.ErrNotFound when no report is cached.
	FindReport(ctx context.Context, paperID uuid.UUID, query string, reportType domain.ReportType) (*domain.PaperReport, error)
	SaveReport(ctx context.Context, report *domain.PaperReport) (*domain.PaperReport, error)
}

// ReportGenerator produces text about a paper for a query. Calls may be slow.
type ReportGenerator interface {
	Generate(ctx context.Context, reportType domain.ReportType, query string, paper *domain.Paper) (string, error)
}

// EventPublisher announces stored papers.
type EventPublisher interface {
	PublishPaperEnriched(ctx context.Context, event domain.PaperEnrichedEvent) error
}

// ServiceConfig wires a Service. Only Orchestrator and Papers are required.
type ServiceConfig struct {
	Orchestrator *Orchestrator
	Papers       PaperStore
	Reports      ReportStore
	Generator    ReportGenerator
	Events       EventPublisher
	Metrics      Recorder
	Logger       zerolog.Logger
	Now          func() time.Time

	// MaxConcurrentReports caps concurrent generator calls in GenerateReports.
	MaxConcurrentReports int
}

// Service is the entry point for enrichment. It normalizes and validates DOIs, serves
// stored papers without contacting any source and persists newly enriched papers.
type Service struct {
	orchestrator *Orchestrator
	papers       PaperStore
	reports      ReportStore
	generator    ReportGenerator
	events       EventPublisher
	metrics      Recorder
	logger       zerolog.Logger
	now          func() time.Time
	reportLimit  int
}

// NewService creates a Service.
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		orchestrator: cfg.Orchestrator,
		papers:       cfg.Papers,
		reports:      cfg.Reports,
		generator:    cfg.Generator,
		events:       cfg.Events,
		metrics:      cfg.Metrics,
		logger:       cfg.Logger.With().Str("component", "enrichment_service").Logger(),
		now:          cfg.Now,
		reportLimit:  cfg.MaxConcurrentReports,
	}
	if s.metrics == nil {
		s.metrics = nopRecorder{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.reportLimit <= 0 {
		s.reportLimit = DefaultMaxConcurrentEnrichments
	}
	return s
}

// EnrichByDOI returns the stored paper for doi, enriching and storing it on a miss.
// When every source is Absent it returns an error matching domain.ErrNoMetadataFound
// and nothing is written.
func (s *Service) EnrichByDOI(ctx context.Context, rawDOI string) (*domain.Paper, error) {
	doi, err := domain.ParseDOI(rawDOI)
	if err != nil {
		return nil, err
	}

	existing, err := s.papers.FindByDOI(ctx, doi)
	switch {
	case err == nil:
		s.metrics.RecordCacheLookup(CacheHit)
		return existing, nil
	case !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("looking up %s: %w", doi, err)
	}
	s.metrics.RecordCacheLookup(CacheMiss)

	paper, err := s.orchestrator.EnrichDOI(ctx, doi)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	paper.ID = uuid.New()
	paper.CreatedAt = now
	paper.UpdatedAt = now

	stored, err := s.papers.Create(ctx, paper)
	if err != nil {
		return nil, fmt.Errorf("storing %s: %w", doi, err)
	}

	// A concurrent enrichment may have won the insert; only the creator announces it.
	if stored.ID == paper.ID {
		s.publish(ctx, stored, false)
	}
	return stored, nil
}

// EnrichByQuery enriches up to count papers matching query. Fewer or zero papers is a
// successful result; an error means the search source could not be reached.
func (s *Service) EnrichByQuery(ctx context.Context, query string, count int) (*QueryResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.NewValidationError("query", "must not be empty")
	}
	if count < 1 || count > MaxQueryCount {
		return nil, domain.NewValidationError("count", fmt.Sprintf("must be between 1 and %d", MaxQueryCount))
	}
	return s.orchestrator.EnrichQuery(ctx, query, count, s.EnrichByDOI)
}

// RefreshMetrics re-enriches a stored paper and overwrites its citation count, metrics
// and badges. Unknown DOIs return domain.ErrNotFound.
func (s *Service) RefreshMetrics(ctx context.Context, rawDOI string) (*domain.Paper, error) {
	doi, err := domain.ParseDOI(rawDOI)
	if err != nil {
		return nil, err
	}

	existing, err := s.papers.FindByDOI(ctx, doi)
	if err != nil {
		return nil, fmt.Errorf("looking up %s: %w", doi, err)
	}

	fresh, err := s.orchestrator.EnrichDOI(ctx, doi)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	existing.CitationCount = fresh.CitationCount
	existing.Metrics = fresh.Metrics
	// The flag only moves when the access source answered this time.
	if slices.Contains(fresh.Sources, domain.SourceTypeUnpaywall) {
		existing.IsOpenAccess = fresh.IsOpenAccess
	}
	existing.Sources = mergeSources(existing.Sources, fresh.Sources)
	existing.Badges = badges.Compute(badges.FieldsFromPaper(existing), now).Sorted()
	existing.UpdatedAt = now

	updated, err := s.papers.UpdateMetrics(ctx, existing)
	if err != nil {
		return nil, fmt.Errorf("updating %s: %w", doi, err)
	}

	s.publish(ctx, updated, true)
	return updated, nil
}

// Lookup returns the stored paper without contacting any source.
func (s *Service) Lookup(ctx context.Context, rawDOI string) (*domain.Paper, error) {
	doi, err := domain.ParseDOI(rawDOI)
	if err != nil {
		return nil, err
	}
	return s.papers.FindByDOI(ctx, doi)
}

// GenerateReports produces one search report per paper. A failing generator yields an
// empty report for that paper. The result is keyed by DOI.
func (s *Service) GenerateReports(ctx context.Context, query string, papers []*domain.Paper) map[string]string {
	reports := make(map[string]string, len(papers))
	if s.generator == nil || len(papers) == 0 {
		return reports
	}

	texts := make([]string, len(papers))
	var g errgroup.Group
	g.SetLimit(s.reportLimit)
	for i, p := range papers {
		g.Go(func() error {
			text, err := s.report(ctx, domain.ReportTypeSearch, query, p)
			if err != nil {
				s.logger.Error().Err(err).Str("doi", p.DOI).Msg("report generation failed")
				return nil
			}
			texts[i] = text
			return nil
		})
	}
	_ = g.Wait()

	for i, p := range papers {
		reports[p.DOI] = texts[i]
	}
	return reports
}

// CiteCheckResult pairs a paper with its citation check against a claim.
type CiteCheckResult struct {
	Paper  *domain.Paper `json:"paper"`
	Report string        `json:"report"`
}

// CiteCheck enriches doi and reports how well it supports query. Reports are cached per
// (paper, query).
func (s *Service) CiteCheck(ctx context.Context, query, rawDOI string) (*CiteCheckResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.NewValidationError("query", "must not be empty")
	}
	if s.generator == nil {
		return nil, fmt.Errorf("%w: report generator not configured", domain.ErrServiceUnavailable)
	}

	paper, err := s.EnrichByDOI(ctx, rawDOI)
	if err != nil {
		return nil, err
	}

	text, err := s.report(ctx, domain.ReportTypeCiteCheck, query, paper)
	if err != nil {
		return nil, fmt.Errorf("cite check for %s: %w", paper.DOI, err)
	}
	return &CiteCheckResult{Paper: paper, Report: text}, nil
}

func (s *Service) report(ctx context.Context, reportType domain.ReportType, query string, paper *domain.Paper) (string, error) {
	if s.reports != nil && paper.ID != uuid.Nil {
		cached, err := s.reports.FindReport(ctx, paper.ID, query, reportType)
		if err == nil {
			s.metrics.RecordReport(ReportCached)
			return cached.Report, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn().Err(err).Str("doi", paper.DOI).Msg("report cache lookup failed")
		}
	}

	text, err := s.generator.Generate(ctx, reportType, query, paper)
	if err != nil {
		s.metrics.RecordReport(ReportFailed)
		return "", err
	}
	s.metrics.RecordReport(ReportGenerated)

	if s.reports != nil && paper.ID != uuid.Nil {
		_, err := s.reports.SaveReport(ctx, &domain.PaperReport{
			ID:        uuid.New(),
			PaperID:   paper.ID,
			DOI:       paper.DOI,
			Query:     query,
			Type:      reportType,
			Report:    text,
			CreatedAt: s.now().UTC(),
		})
		if err != nil {
			s.logger.Warn().Err(err).Str("doi", paper.DOI).Msg("saving report failed")
		}
	}
	return text, nil
}

func (s *Service) publish(ctx context.Context, paper *domain.Paper, refreshed bool) {
	if s.events == nil {
		return
	}
	event := domain.NewPaperEnrichedEvent(paper, refreshed, s.now().UTC())
	if err := s.events.PublishPaperEnriched(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("doi", paper.DOI).Msg("publishing paper event failed")
	}
}

// mergeSources appends the sources in fresh that stored does not list yet.
func mergeSources(stored, fresh []domain.SourceType) []domain.SourceType {
	merged := slices.Clone(stored)
	for _, src := range fresh {
		if !slices.Contains(merged, src) {
			merged = append(merged, src)
		}
	}
	return merged
}
