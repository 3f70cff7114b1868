package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/helixir/paper-enrichment-service/internal/temporal"
)

const (
	// sseQueryInterval is how often the workflow is queried for progress.
	sseQueryInterval = 2 * time.Second
	// sseMaxDuration is the maximum time an SSE stream may remain open.
	sseMaxDuration = 2 * time.Hour
)

// SSE event types.
const (
	sseEventStarted   = "stream_started"
	sseEventProgress  = "progress_update"
	sseEventCompleted = "completed"
	sseEventError     = "error"
	sseEventTimeout   = "timeout"
)

// sseEvent represents an event sent via SSE.
type sseEvent struct {
	EventType  string                  `json:"event_type"`
	WorkflowID string                  `json:"workflow_id"`
	Progress   *temporal.BatchProgress `json:"progress,omitempty"`
	Message    string                  `json:"message,omitempty"`
	Timestamp  time.Time               `json:"timestamp"`
}

// streamBatchProgress handles GET /api/v1/batches/{workflowID}/progress (SSE).
func (s *Server) streamBatchProgress(w http.ResponseWriter, r *http.Request) {
	if !s.requireBatches(w) {
		return
	}
	workflowID := chi.URLParam(r, "workflowID")

	progress, err := s.batches.QueryProgress(r.Context(), workflowID, "")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}
	// The server write timeout would otherwise cut long streams.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	if progress.Phase == temporal.PhaseCompleted {
		sendSSEEvent(w, flusher, sseEvent{
			EventType:  sseEventCompleted,
			WorkflowID: workflowID,
			Progress:   progress,
			Message:    "batch already completed",
			Timestamp:  time.Now(),
		})
		return
	}

	sendSSEEvent(w, flusher, sseEvent{
		EventType:  sseEventStarted,
		WorkflowID: workflowID,
		Progress:   progress,
		Message:    "progress stream started",
		Timestamp:  time.Now(),
	})

	s.pollProgress(r.Context(), w, flusher, workflowID, progress)
}

// pollProgress queries the workflow until it completes, the client disconnects or
// the stream exceeds its maximum duration. Unchanged progress is not re-sent.
func (s *Server) pollProgress(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, workflowID string, last *temporal.BatchProgress) {
	deadlineTimer := time.NewTimer(s.sseMaxDuration)
	defer deadlineTimer.Stop()
	ticker := time.NewTicker(s.sseInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-deadlineTimer.C:
			sendSSEEvent(w, flusher, sseEvent{
				EventType:  sseEventTimeout,
				WorkflowID: workflowID,
				Message:    "stream max duration exceeded",
				Timestamp:  time.Now(),
			})
			return

		case <-ticker.C:
			current, err := s.batches.QueryProgress(ctx, workflowID, "")
			if err != nil {
				if temporal.IsWorkflowNotFound(err) {
					sendSSEEvent(w, flusher, sseEvent{
						EventType:  sseEventError,
						WorkflowID: workflowID,
						Message:    "batch not found",
						Timestamp:  time.Now(),
					})
					return
				}
				s.logger.Error().Err(err).Str("workflow_id", workflowID).Msg("failed to query batch progress")
				continue
			}

			if current.Phase == temporal.PhaseCompleted {
				sendSSEEvent(w, flusher, sseEvent{
					EventType:  sseEventCompleted,
					WorkflowID: workflowID,
					Progress:   current,
					Message:    "batch completed",
					Timestamp:  time.Now(),
				})
				return
			}

			if *current == *last {
				continue
			}
			last = current
			sendSSEEvent(w, flusher, sseEvent{
				EventType:  sseEventProgress,
				WorkflowID: workflowID,
				Progress:   current,
				Message:    "phase: " + current.Phase,
				Timestamp:  time.Now(),
			})
		}
	}
}

// sendSSEEvent writes a single SSE event to the response writer.
func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event sseEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.EventType, data)
	flusher.Flush()
}
