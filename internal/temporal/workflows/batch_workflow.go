// Package workflows defines the Temporal workflow for durable batch enrichment.
package workflows

import (
	"errors"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	petemporal "github.com/helixir/paper-enrichment-service/internal/temporal"
	"github.com/helixir/paper-enrichment-service/internal/temporal/activities"
)

// DefaultMaxConcurrent bounds in-flight EnrichDOI activities when the input
// does not set MaxConcurrent.
const DefaultMaxConcurrent = 5

// DefaultSearchTimeout bounds the candidate search when the input carries no
// timeout. It covers five throttled pages under the default source settings.
const DefaultSearchTimeout = 10 * time.Minute

// enrichRetryPolicy mirrors the source 5xx backoff: 1s doubling to 10s.
var enrichRetryPolicy = &temporal.RetryPolicy{
	InitialInterval:    time.Second,
	BackoffCoefficient: 2.0,
	MaximumInterval:    10 * time.Second,
	MaximumAttempts:    3,
	NonRetryableErrorTypes: []string{
		activities.ErrTypeNoMetadataFound,
		activities.ErrTypeInvalidInput,
	},
}

// BatchEnrichmentWorkflow enriches a list of DOIs, optionally extended by the
// candidates of a search query. DOIs run as concurrent EnrichDOI activities,
// at most MaxConcurrent at a time. Individual failures are recorded in the
// result and never fail the batch; only a failed search does.
func BatchEnrichmentWorkflow(ctx workflow.Context, input petemporal.BatchWorkflowInput) (*petemporal.BatchResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("starting batch enrichment",
		"batchID", input.BatchID.String(),
		"dois", len(input.DOIs),
		"query", input.Query,
		"count", input.Count,
	)

	if len(input.DOIs) == 0 && input.Query == "" {
		return nil, temporal.NewNonRetryableApplicationError(
			"batch requires dois or a query", activities.ErrTypeInvalidInput, nil)
	}

	progress := petemporal.BatchProgress{Phase: petemporal.PhaseEnriching}
	if err := workflow.SetQueryHandler(ctx, petemporal.QueryProgress, func() (petemporal.BatchProgress, error) {
		return progress, nil
	}); err != nil {
		return nil, err
	}

	var act *activities.EnrichmentActivities
	result := &petemporal.BatchResult{
		BatchID:  input.BatchID.String(),
		Enriched: []string{},
	}

	dois := input.DOIs
	if input.Query != "" {
		progress.Phase = petemporal.PhaseSearching
		searchCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
			StartToCloseTimeout: SearchTimeout(input),
			RetryPolicy:         enrichRetryPolicy,
		})

		var found activities.SearchCandidatesOutput
		err := workflow.ExecuteActivity(searchCtx, act.SearchCandidates, activities.SearchCandidatesInput{
			Query: input.Query,
			Count: input.Count,
		}).Get(ctx, &found)
		if err != nil {
			logger.Error("candidate search failed", "query", input.Query, "error", err)
			return nil, err
		}
		result.Exhausted = found.Exhausted
		dois = append(append([]string{}, dois...), found.DOIs...)
	}

	dois = UniqueDOIs(dois)
	result.Requested = len(dois)
	progress.Phase = petemporal.PhaseEnriching
	progress.Total = len(dois)

	limit := input.MaxConcurrent
	if limit <= 0 {
		limit = DefaultMaxConcurrent
	}

	enrichCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy:         enrichRetryPolicy,
	})

	for start := 0; start < len(dois); start += limit {
		end := min(start+limit, len(dois))
		window := dois[start:end]

		futures := make([]workflow.Future, len(window))
		for i, doi := range window {
			futures[i] = workflow.ExecuteActivity(enrichCtx, act.EnrichDOI, activities.EnrichDOIInput{DOI: doi})
		}

		for i, f := range futures {
			doi := window[i]
			var out activities.EnrichDOIOutput
			err := f.Get(ctx, &out)
			progress.Completed++

			switch {
			case err == nil:
				result.Enriched = append(result.Enriched, out.DOI)
				progress.Enriched++
			case isApplicationError(err, activities.ErrTypeNoMetadataFound):
				result.NoMetadata = append(result.NoMetadata, doi)
				progress.NoMetadata++
			default:
				result.Failed = append(result.Failed, petemporal.FailedDOI{DOI: doi, Reason: err.Error()})
				progress.Failed++
				logger.Warn("doi enrichment failed", "doi", doi, "error", err)
			}
		}
	}

	progress.Phase = petemporal.PhaseCompleted
	logger.Info("batch enrichment completed",
		"batchID", result.BatchID,
		"requested", result.Requested,
		"enriched", len(result.Enriched),
		"noMetadata", len(result.NoMetadata),
		"failed", len(result.Failed),
	)

	return result, nil
}

// SearchTimeout returns the StartToClose timeout of the search activity.
func SearchTimeout(input petemporal.BatchWorkflowInput) time.Duration {
	if input.SearchTimeout > 0 {
		return input.SearchTimeout
	}
	return DefaultSearchTimeout
}

func isApplicationError(err error, errType string) bool {
	var appErr *temporal.ApplicationError
	return errors.As(err, &appErr) && appErr.Type() == errType
}
