package observability

import (
	"context"

	"github.com/rs/zerolog"
)

type contextKey string

const (
	requestIDKey  contextKey = "request_id"
	doiKey        contextKey = "doi"
	workflowIDKey contextKey = "workflow_id"
	runIDKey      contextKey = "workflow_run_id"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext returns the request ID, or "" when absent.
func RequestIDFromContext(ctx context.Context) string {
	return stringValue(ctx, requestIDKey)
}

// WithDOI adds the DOI under enrichment to the context.
func WithDOI(ctx context.Context, doi string) context.Context {
	return context.WithValue(ctx, doiKey, doi)
}

// DOIFromContext returns the DOI, or "" when absent.
func DOIFromContext(ctx context.Context) string {
	return stringValue(ctx, doiKey)
}

// WithWorkflow adds workflow ID and run ID to the context.
func WithWorkflow(ctx context.Context, workflowID, runID string) context.Context {
	ctx = context.WithValue(ctx, workflowIDKey, workflowID)
	ctx = context.WithValue(ctx, runIDKey, runID)
	return ctx
}

// WorkflowFromContext returns workflow ID and run ID, or empty strings when absent.
func WorkflowFromContext(ctx context.Context) (workflowID, runID string) {
	return stringValue(ctx, workflowIDKey), stringValue(ctx, runIDKey)
}

// LoggerFromContext returns base enriched with every observability field present in ctx.
func LoggerFromContext(ctx context.Context, base zerolog.Logger) zerolog.Logger {
	lc := base.With()
	if id := RequestIDFromContext(ctx); id != "" {
		lc = lc.Str("request_id", id)
	}
	if doi := DOIFromContext(ctx); doi != "" {
		lc = lc.Str("doi", doi)
	}
	if wf, run := WorkflowFromContext(ctx); wf != "" {
		lc = lc.Str("workflow_id", wf).Str("workflow_run_id", run)
	}
	return lc.Logger()
}

func stringValue(ctx context.Context, key contextKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}
