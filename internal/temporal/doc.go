// Package temporal integrates the enrichment service with Temporal for
// durable batch enrichment.
//
// The server starts batches through BatchWorkflowClient by workflow name
// (BatchWorkflowName), so it never imports the workflows package. The worker
// registers workflows.BatchEnrichmentWorkflow under that name together with
// activities.EnrichmentActivities.
//
//	c, err := temporal.NewClient(temporal.ClientConfig{
//	    HostPort:  "localhost:7233",
//	    Namespace: "paper-enrichment",
//	})
//	if err != nil {
//	    return err
//	}
//	batches := temporal.NewBatchWorkflowClient(c, "paper-enrichment-tasks")
//	workflowID, runID, err := batches.StartBatch(ctx, temporal.BatchWorkflowInput{
//	    BatchID: uuid.New(),
//	    Query:   "sleep and memory consolidation",
//	    Count:   20,
//	})
//
// Progress of a running batch is available through QueryProgress; the final
// BatchResult through GetBatchResult. Failures are *BatchError values that also
// match domain.ErrNotFound, domain.ErrAlreadyExists or domain.ErrServiceUnavailable.
package temporal
