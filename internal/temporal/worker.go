package temporal

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
)

// Worker defaults applied to zero-valued WorkerConfig fields.
const (
	DefaultMaxConcurrentActivities    = 20
	DefaultMaxConcurrentWorkflowTasks = 10
	DefaultActivityTaskPollers        = 4
	DefaultWorkflowTaskPollers        = 2
)

// WorkerConfig contains configuration for the Temporal worker.
type WorkerConfig struct {
	// TaskQueue is the name of the task queue to poll.
	TaskQueue string

	// MaxConcurrentActivityExecutionSize bounds concurrent activity executions.
	// Each enrichment activity fans out to four sources, so keep this modest.
	MaxConcurrentActivityExecutionSize int

	// MaxConcurrentWorkflowTaskExecutionSize bounds concurrent workflow tasks.
	MaxConcurrentWorkflowTaskExecutionSize int

	// MaxConcurrentActivityTaskPollers is the number of activity task pollers.
	MaxConcurrentActivityTaskPollers int

	// MaxConcurrentWorkflowTaskPollers is the number of workflow task pollers.
	MaxConcurrentWorkflowTaskPollers int
}

// DefaultWorkerConfig returns a WorkerConfig with default values.
func DefaultWorkerConfig(taskQueue string) WorkerConfig {
	return WorkerConfig{
		TaskQueue:                              taskQueue,
		MaxConcurrentActivityExecutionSize:     DefaultMaxConcurrentActivities,
		MaxConcurrentWorkflowTaskExecutionSize: DefaultMaxConcurrentWorkflowTasks,
		MaxConcurrentActivityTaskPollers:       DefaultActivityTaskPollers,
		MaxConcurrentWorkflowTaskPollers:       DefaultWorkflowTaskPollers,
	}
}

func workerOptionsFromConfig(config WorkerConfig) worker.Options {
	options := worker.Options{
		MaxConcurrentActivityExecutionSize:     config.MaxConcurrentActivityExecutionSize,
		MaxConcurrentWorkflowTaskExecutionSize: config.MaxConcurrentWorkflowTaskExecutionSize,
		MaxConcurrentActivityTaskPollers:       config.MaxConcurrentActivityTaskPollers,
		MaxConcurrentWorkflowTaskPollers:       config.MaxConcurrentWorkflowTaskPollers,
	}

	if options.MaxConcurrentActivityExecutionSize == 0 {
		options.MaxConcurrentActivityExecutionSize = DefaultMaxConcurrentActivities
	}
	if options.MaxConcurrentWorkflowTaskExecutionSize == 0 {
		options.MaxConcurrentWorkflowTaskExecutionSize = DefaultMaxConcurrentWorkflowTasks
	}
	if options.MaxConcurrentActivityTaskPollers == 0 {
		options.MaxConcurrentActivityTaskPollers = DefaultActivityTaskPollers
	}
	if options.MaxConcurrentWorkflowTaskPollers == 0 {
		options.MaxConcurrentWorkflowTaskPollers = DefaultWorkflowTaskPollers
	}

	return options
}

// WorkerManager manages the lifecycle of a Temporal worker.
type WorkerManager struct {
	worker    worker.Worker
	taskQueue string
	workflows []string
}

// NewWorkerManager creates a new WorkerManager with the given configuration.
func NewWorkerManager(c client.Client, config WorkerConfig) (*WorkerManager, error) {
	if config.TaskQueue == "" {
		return nil, fmt.Errorf("task queue is required")
	}

	return &WorkerManager{
		worker:    worker.New(c, config.TaskQueue, workerOptionsFromConfig(config)),
		taskQueue: config.TaskQueue,
	}, nil
}

// RegisterWorkflow registers a workflow function under an explicit name, so
// clients can start it by name without importing the workflow package.
func (m *WorkerManager) RegisterWorkflow(name string, fn any) {
	m.workflows = append(m.workflows, name)
	m.worker.RegisterWorkflowWithOptions(fn, workflow.RegisterOptions{Name: name})
}

// RegisterActivity registers an activity function or a struct whose exported
// methods are activities.
func (m *WorkerManager) RegisterActivity(activity any) {
	m.worker.RegisterActivity(activity)
}

// Workflows returns the registered workflow names.
func (m *WorkerManager) Workflows() []string {
	return m.workflows
}

// TaskQueue returns the configured task queue name.
func (m *WorkerManager) TaskQueue() string {
	return m.taskQueue
}

// Start runs the worker and blocks until the context is cancelled or the
// worker fails.
func (m *WorkerManager) Start(ctx context.Context) error {
	return StartWorker(ctx, m.worker)
}

// Stop stops the worker gracefully.
func (m *WorkerManager) Stop() {
	m.worker.Stop()
}

// StartWorker runs w and blocks until the context is cancelled or w fails.
func StartWorker(ctx context.Context, w worker.Worker) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.Run(worker.InterruptCh())
	}()

	select {
	case <-ctx.Done():
		w.Stop()
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}
