package temporal

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/api/serviceerror"

	"github.com/helixir/paper-enrichment-service/internal/domain"
)

var (
	// ErrWorkflowNotFound indicates the batch workflow does not exist.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrWorkflowAlreadyStarted indicates a batch with the same ID is already running.
	ErrWorkflowAlreadyStarted = errors.New("workflow already started")

	// ErrQueryFailed indicates the progress query failed or could not be decoded.
	ErrQueryFailed = errors.New("query failed")

	// ErrClientClosed indicates the client has been closed.
	ErrClientClosed = errors.New("client closed")

	// ErrUnavailable indicates the Temporal frontend could not be reached in time.
	ErrUnavailable = errors.New("temporal unavailable")
)

// BatchError describes a failed call against a batch workflow. It matches its Kind
// and the domain error the Kind corresponds to, so HTTP and CLI callers can map it
// without importing this package.
type BatchError struct {
	Op         string
	Kind       error
	WorkflowID string
	RunID      string
	Err        error
}

func (e *BatchError) Error() string {
	msg := e.Op
	if e.WorkflowID != "" {
		msg += " " + e.WorkflowID
		if e.RunID != "" {
			msg += "/" + e.RunID
		}
	}
	msg = fmt.Sprintf("%s: %s", msg, e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// Is matches the Kind and its domain counterpart.
func (e *BatchError) Is(target error) bool {
	if errors.Is(e.Kind, target) {
		return true
	}
	if d := domainKind(e.Kind); d != nil {
		return errors.Is(d, target)
	}
	return false
}

func domainKind(kind error) error {
	switch kind {
	case ErrWorkflowNotFound:
		return domain.ErrNotFound
	case ErrWorkflowAlreadyStarted:
		return domain.ErrAlreadyExists
	case ErrUnavailable, ErrClientClosed:
		return domain.ErrServiceUnavailable
	default:
		return nil
	}
}

// classify maps SDK and service errors onto a Kind.
func classify(err error) error {
	var (
		notFound       *serviceerror.NotFound
		alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
		queryFailed    *serviceerror.QueryFailed
	)
	switch {
	case errors.As(err, &notFound):
		return ErrWorkflowNotFound
	case errors.As(err, &alreadyStarted):
		return ErrWorkflowAlreadyStarted
	case errors.As(err, &queryFailed):
		return ErrQueryFailed
	case errors.Is(err, context.Canceled):
		return domain.ErrCancelled
	default:
		return ErrUnavailable
	}
}

func wrapError(op string, err error, workflowID, runID string) error {
	if err == nil {
		return nil
	}
	return &BatchError{
		Op:         op,
		Kind:       classify(err),
		WorkflowID: workflowID,
		RunID:      runID,
		Err:        err,
	}
}

// IsWorkflowNotFound reports whether err refers to a missing batch workflow.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}
