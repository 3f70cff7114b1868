package temporal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/log"
)

// Names shared by the server and the workflow implementation, so the server
// does not import the workflows package.
const (
	// BatchWorkflowName is the registered name of the batch enrichment workflow.
	BatchWorkflowName = "BatchEnrichmentWorkflow"

	// QueryProgress is the query name used to retrieve batch progress.
	QueryProgress = "progress"
)

const (
	// DefaultWorkflowExecutionTimeout bounds a whole batch, including its search phase.
	DefaultWorkflowExecutionTimeout = 2 * time.Hour

	DefaultHealthCheckTimeout = 5 * time.Second
)

// ClientConfig configures the connection used by the server and the worker.
type ClientConfig struct {
	HostPort  string
	Namespace string
	// TaskQueue receives batch workflows and their activities.
	TaskQueue string

	// ConnectionTimeout bounds the initial system info call. Zero keeps the SDK default.
	ConnectionTimeout time.Duration

	// HealthCheckTimeout defaults to DefaultHealthCheckTimeout.
	HealthCheckTimeout time.Duration

	// SearchTimeout is stamped on batches that do not set their own. It should cover
	// the slowest paginated search the worker's source settings allow.
	SearchTimeout time.Duration

	// Logger receives SDK logs. observability.TemporalLogger adapts zerolog.
	Logger log.Logger
}

// NewClient dials the Temporal frontend.
func NewClient(cfg ClientConfig) (client.Client, error) {
	options := client.Options{
		HostPort:  cfg.HostPort,
		Namespace: cfg.Namespace,
		Logger:    cfg.Logger,
	}

	if cfg.ConnectionTimeout > 0 {
		options.ConnectionOptions.GetSystemInfoTimeout = cfg.ConnectionTimeout
	}

	c, err := client.Dial(options)
	if err != nil {
		return nil, fmt.Errorf("create Temporal client: %w", err)
	}

	return c, nil
}

// BatchWorkflowInput contains the parameters for a batch enrichment workflow.
// Either DOIs or Query must be set; both may be.
type BatchWorkflowInput struct {
	// BatchID identifies the batch and derives the workflow ID.
	BatchID uuid.UUID `json:"batch_id"`
	// DOIs are enriched directly.
	DOIs []string `json:"dois,omitempty"`
	// Query, when set, is searched for Count candidate DOIs.
	Query string `json:"query,omitempty"`
	// Count bounds the number of search candidates.
	Count int `json:"count,omitempty"`
	// MaxConcurrent bounds concurrently running enrichment activities.
	MaxConcurrent int `json:"max_concurrent,omitempty"`
	// RequestedBy is free-form caller attribution.
	RequestedBy string `json:"requested_by,omitempty"`
	// SearchTimeout bounds the candidate search activity. Zero uses the workflow default.
	SearchTimeout time.Duration `json:"search_timeout,omitempty"`
}

// FailedDOI records a DOI the batch could not enrich.
type FailedDOI struct {
	DOI    string `json:"doi"`
	Reason string `json:"reason"`
}

// BatchResult is the result of a batch enrichment workflow.
type BatchResult struct {
	BatchID    string      `json:"batch_id"`
	Requested  int         `json:"requested"`
	Enriched   []string    `json:"enriched"`
	NoMetadata []string    `json:"no_metadata,omitempty"`
	Failed     []FailedDOI `json:"failed,omitempty"`
	// Exhausted is true when the search returned fewer candidates than Count.
	Exhausted bool `json:"exhausted"`
}

// BatchProgress is returned by the progress query.
type BatchProgress struct {
	Phase      string `json:"phase"`
	Total      int    `json:"total"`
	Completed  int    `json:"completed"`
	Enriched   int    `json:"enriched"`
	NoMetadata int    `json:"no_metadata"`
	Failed     int    `json:"failed"`
}

// Batch phases reported by BatchProgress.
const (
	PhaseSearching = "searching"
	PhaseEnriching = "enriching"
	PhaseCompleted = "completed"
)

// BatchWorkflowID derives the workflow ID for a batch.
func BatchWorkflowID(batchID uuid.UUID) string {
	return fmt.Sprintf("batch-enrichment-%s", batchID)
}

// BatchWorkflowClient starts and inspects batch enrichment workflows.
type BatchWorkflowClient struct {
	mu                 sync.RWMutex
	client             client.Client
	taskQueue          string
	healthCheckTimeout time.Duration
	searchTimeout      time.Duration
	closed             bool
}

// NewBatchWorkflowClient creates a new BatchWorkflowClient.
func NewBatchWorkflowClient(c client.Client, taskQueue string) *BatchWorkflowClient {
	return &BatchWorkflowClient{
		client:             c,
		taskQueue:          taskQueue,
		healthCheckTimeout: DefaultHealthCheckTimeout,
	}
}

// NewBatchWorkflowClientWithConfig creates a new BatchWorkflowClient with full configuration.
func NewBatchWorkflowClientWithConfig(c client.Client, cfg ClientConfig) *BatchWorkflowClient {
	healthTimeout := cfg.HealthCheckTimeout
	if healthTimeout == 0 {
		healthTimeout = DefaultHealthCheckTimeout
	}

	return &BatchWorkflowClient{
		client:             c,
		taskQueue:          cfg.TaskQueue,
		healthCheckTimeout: healthTimeout,
		searchTimeout:      cfg.SearchTimeout,
	}
}

// Close closes the underlying Temporal client connection.
func (c *BatchWorkflowClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil && !c.closed {
		c.client.Close()
		c.closed = true
	}
}

func (c *BatchWorkflowClient) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Health checks the connection health to the Temporal server.
func (c *BatchWorkflowClient) Health(ctx context.Context) error {
	if c.isClosed() {
		return &BatchError{Op: "Health", Kind: ErrClientClosed}
	}

	checkCtx, cancel := context.WithTimeout(ctx, c.healthCheckTimeout)
	defer cancel()

	if _, err := c.client.CheckHealth(checkCtx, &client.CheckHealthRequest{}); err != nil {
		return wrapError("Health", err, "", "")
	}
	return nil
}

// StartBatch starts a batch enrichment workflow. The workflow must be
// registered under BatchWorkflowName by the worker.
func (c *BatchWorkflowClient) StartBatch(ctx context.Context, input BatchWorkflowInput) (workflowID, runID string, err error) {
	if c.isClosed() {
		return "", "", &BatchError{Op: "StartBatch", Kind: ErrClientClosed}
	}

	if input.SearchTimeout == 0 {
		input.SearchTimeout = c.searchTimeout
	}

	workflowID = BatchWorkflowID(input.BatchID)
	options := client.StartWorkflowOptions{
		ID:                       workflowID,
		TaskQueue:                c.taskQueue,
		WorkflowExecutionTimeout: DefaultWorkflowExecutionTimeout,
	}

	run, err := c.client.ExecuteWorkflow(ctx, options, BatchWorkflowName, input)
	if err != nil {
		return "", "", wrapError("StartBatch", err, workflowID, "")
	}

	return workflowID, run.GetRunID(), nil
}

// CancelWorkflow cancels a running workflow.
func (c *BatchWorkflowClient) CancelWorkflow(ctx context.Context, workflowID, runID string) error {
	if c.isClosed() {
		return &BatchError{Op: "CancelWorkflow", Kind: ErrClientClosed, WorkflowID: workflowID, RunID: runID}
	}

	if err := c.client.CancelWorkflow(ctx, workflowID, runID); err != nil {
		return wrapError("CancelWorkflow", err, workflowID, runID)
	}
	return nil
}

// GetBatchResult waits for a batch workflow to complete and returns its result.
func (c *BatchWorkflowClient) GetBatchResult(ctx context.Context, workflowID, runID string) (*BatchResult, error) {
	if c.isClosed() {
		return nil, &BatchError{Op: "GetBatchResult", Kind: ErrClientClosed, WorkflowID: workflowID, RunID: runID}
	}

	var result BatchResult
	run := c.client.GetWorkflow(ctx, workflowID, runID)
	if err := run.Get(ctx, &result); err != nil {
		return nil, wrapError("GetBatchResult", err, workflowID, runID)
	}
	return &result, nil
}

// WorkflowDescription contains information about a workflow execution.
type WorkflowDescription struct {
	// WorkflowID is the workflow identifier.
	WorkflowID string `json:"workflow_id"`
	// RunID is the workflow run identifier.
	RunID string `json:"run_id"`
	// Status is the workflow execution status.
	Status string `json:"status"`
	// StartTime is when the workflow started.
	StartTime time.Time `json:"start_time"`
	// CloseTime is when the workflow completed (nil if still running).
	CloseTime *time.Time `json:"close_time,omitempty"`
}

// DescribeWorkflow returns information about a workflow execution.
func (c *BatchWorkflowClient) DescribeWorkflow(ctx context.Context, workflowID, runID string) (*WorkflowDescription, error) {
	if c.isClosed() {
		return nil, &BatchError{Op: "DescribeWorkflow", Kind: ErrClientClosed, WorkflowID: workflowID, RunID: runID}
	}

	resp, err := c.client.DescribeWorkflowExecution(ctx, workflowID, runID)
	if err != nil {
		return nil, wrapError("DescribeWorkflow", err, workflowID, runID)
	}

	info := resp.GetWorkflowExecutionInfo()
	desc := &WorkflowDescription{
		WorkflowID: workflowID,
		RunID:      info.GetExecution().GetRunId(),
		Status:     info.GetStatus().String(),
		StartTime:  info.GetStartTime().AsTime(),
	}
	if info.GetCloseTime() != nil {
		closeTime := info.GetCloseTime().AsTime()
		desc.CloseTime = &closeTime
	}

	return desc, nil
}

// QueryProgress queries a running batch for its progress.
func (c *BatchWorkflowClient) QueryProgress(ctx context.Context, workflowID, runID string) (*BatchProgress, error) {
	if c.isClosed() {
		return nil, &BatchError{Op: "QueryProgress", Kind: ErrClientClosed, WorkflowID: workflowID, RunID: runID}
	}

	resp, err := c.client.QueryWorkflow(ctx, workflowID, runID, QueryProgress)
	if err != nil {
		return nil, wrapError("QueryProgress", err, workflowID, runID)
	}

	var progress BatchProgress
	if err := resp.Get(&progress); err != nil {
		return nil, &BatchError{
			Op:         "QueryProgress",
			Kind:       ErrQueryFailed,
			WorkflowID: workflowID,
			RunID:      runID,
			Err:        fmt.Errorf("decode query result: %w", err),
		}
	}
	return &progress, nil
}

