// Package observability provides logging and metrics support for the
// paper enrichment service.
//
// # Logging
//
// Create a logger from configuration:
//
//	logger := observability.NewLogger(observability.LoggingConfig{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "stdout",
//	})
//
// Output may also be a file path. Temporal SDK logs go through NewTemporalLogger.
//
// # Metrics
//
// A single Metrics value serves as the papersources.Observer for every
// source client and as the enrichment.Recorder for the orchestrator and
// service:
//
//	metrics := observability.NewMetrics(observability.DefaultNamespace)
//	client := openalex.New(cfg, papersources.WithObserver(metrics))
//
// # Context Helpers
//
//	ctx = observability.WithRequestID(ctx, requestID)
//	ctx = observability.WithDOI(ctx, doi)
//	logger := observability.LoggerFromContext(ctx, base)
//
// # Standard Fields
//
//   - service: always paper-enrichment-service
//   - request_id: inbound HTTP request identifier
//   - doi: normalised DOI under enrichment
//   - source: metadata source (semantic_scholar, openalex, crossref, unpaywall)
//   - workflow_id, workflow_run_id: Temporal batch workflow identifiers
//
// All components are safe for concurrent use from multiple goroutines.
package observability
