package activities

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/helixir/paper-enrichment-service/internal/domain"
	"github.com/helixir/paper-enrichment-service/internal/enrichment"
)

// PaperEnricher is implemented by *enrichment.Service. Going through the
// service keeps the store as the cache in front of the sources.
type PaperEnricher interface {
	EnrichByDOI(ctx context.Context, doi string) (*domain.Paper, error)
}

// CandidateSearcher is implemented by *enrichment.Orchestrator.
type CandidateSearcher interface {
	SearchCandidates(ctx context.Context, query string, n int) (*enrichment.Candidates, error)
}

// EnrichmentActivities provides the activities of the batch enrichment
// workflow. Methods on this struct are registered with the worker.
type EnrichmentActivities struct {
	enricher PaperEnricher
	searcher CandidateSearcher
}

// NewEnrichmentActivities creates a new EnrichmentActivities instance.
func NewEnrichmentActivities(enricher PaperEnricher, searcher CandidateSearcher) *EnrichmentActivities {
	return &EnrichmentActivities{
		enricher: enricher,
		searcher: searcher,
	}
}

// SearchCandidates collects up to input.Count DOIs for input.Query. Zero
// candidates is a successful result; an error means the search source was
// unreachable and is retried by the workflow's policy.
func (a *EnrichmentActivities) SearchCandidates(ctx context.Context, input SearchCandidatesInput) (*SearchCandidatesOutput, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("searching candidates", "query", input.Query, "count", input.Count)

	if input.Query == "" || input.Count < 1 {
		return nil, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("search requires a query and a positive count, got %q/%d", input.Query, input.Count),
			ErrTypeInvalidInput, nil)
	}

	candidates, err := a.searcher.SearchCandidates(ctx, input.Query, input.Count)
	if err != nil {
		return nil, fmt.Errorf("search candidates: %w", err)
	}

	logger.Info("candidates found",
		"query", input.Query,
		"found", len(candidates.DOIs),
		"pages", candidates.PagesFetched,
	)

	return &SearchCandidatesOutput{
		DOIs:         candidates.DOIs,
		PagesFetched: candidates.PagesFetched,
		Exhausted:    candidates.Exhausted,
	}, nil
}

// EnrichDOI enriches and stores one DOI. A DOI with no metadata in any source
// and a malformed DOI fail with non-retryable application errors; every other
// failure is left to the retry policy.
func (a *EnrichmentActivities) EnrichDOI(ctx context.Context, input EnrichDOIInput) (*EnrichDOIOutput, error) {
	logger := activity.GetLogger(ctx)

	paper, err := a.enricher.EnrichByDOI(ctx, input.DOI)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNoMetadataFound):
			logger.Info("no metadata found", "doi", input.DOI)
			return nil, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeNoMetadataFound, err)
		case errors.Is(err, domain.ErrInvalidDOI), errors.Is(err, domain.ErrInvalidInput):
			return nil, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeInvalidInput, err)
		default:
			logger.Warn("enrichment failed", "doi", input.DOI, "error", err)
			return nil, fmt.Errorf("enrich %s: %w", input.DOI, err)
		}
	}

	return &EnrichDOIOutput{
		PaperID:       paper.ID.String(),
		DOI:           paper.DOI,
		Title:         paper.Title,
		CitationCount: paper.CitationCount,
		Badges:        paper.Badges,
	}, nil
}
