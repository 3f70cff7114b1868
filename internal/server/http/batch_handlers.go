package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/helixir/paper-enrichment-service/internal/domain"
	"github.com/helixir/paper-enrichment-service/internal/observability"
	"github.com/helixir/paper-enrichment-service/internal/temporal"
)

// defaultBatchSearchCount is used when a query batch omits count.
const defaultBatchSearchCount = 10

// startBatchRequest is the body of POST /batches.
type startBatchRequest struct {
	DOIs          []string `json:"dois" validate:"max=500,dive,required"`
	Query         string   `json:"query"`
	Count         int      `json:"count" validate:"omitempty,min=1,max=50"`
	MaxConcurrent int      `json:"max_concurrent" validate:"omitempty,min=1,max=20"`
	RequestedBy   string   `json:"requested_by"`
}

// startBatchResponse is returned when a batch workflow is started.
type startBatchResponse struct {
	BatchID    string `json:"batch_id"`
	WorkflowID string `json:"workflow_id"`
	RunID      string `json:"run_id"`
}

// batchStatusResponse combines the workflow description with live progress and,
// once the workflow closed, its result.
type batchStatusResponse struct {
	*temporal.WorkflowDescription
	Progress *temporal.BatchProgress `json:"progress,omitempty"`
	Result   *temporal.BatchResult   `json:"result,omitempty"`
	Error    string                  `json:"error,omitempty"`
}

// requireBatches writes 503 when no workflow client is configured.
func (s *Server) requireBatches(w http.ResponseWriter) bool {
	if s.batches == nil {
		writeError(w, http.StatusServiceUnavailable, "batch enrichment is disabled")
		return false
	}
	return true
}

// startBatch handles POST /api/v1/batches.
func (s *Server) startBatch(w http.ResponseWriter, r *http.Request) {
	if !s.requireBatches(w) {
		return
	}

	var req startBatchRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	if len(req.DOIs) == 0 && req.Query == "" {
		s.writeDomainError(w, r, domain.NewValidationError("dois", "either dois or query is required"))
		return
	}
	if req.Query != "" && req.Count == 0 {
		req.Count = defaultBatchSearchCount
	}

	input := temporal.BatchWorkflowInput{
		BatchID:       uuid.New(),
		DOIs:          req.DOIs,
		Query:         req.Query,
		Count:         req.Count,
		MaxConcurrent: req.MaxConcurrent,
		RequestedBy:   req.RequestedBy,
	}

	workflowID, runID, err := s.batches.StartBatch(r.Context(), input)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	logger := observability.LoggerFromContext(r.Context(), s.logger)
	logger.Info().
		Str("workflow_id", workflowID).
		Int("dois", len(req.DOIs)).
		Str("query", req.Query).
		Msg("batch started")

	writeJSON(w, http.StatusAccepted, startBatchResponse{
		BatchID:    input.BatchID.String(),
		WorkflowID: workflowID,
		RunID:      runID,
	})
}

// getBatch handles GET /api/v1/batches/{workflowID}.
func (s *Server) getBatch(w http.ResponseWriter, r *http.Request) {
	if !s.requireBatches(w) {
		return
	}
	workflowID := chi.URLParam(r, "workflowID")

	desc, err := s.batches.DescribeWorkflow(r.Context(), workflowID, "")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	resp := batchStatusResponse{WorkflowDescription: desc}
	if desc.CloseTime != nil {
		result, err := s.batches.GetBatchResult(r.Context(), workflowID, desc.RunID)
		if err != nil {
			resp.Error = err.Error()
		} else {
			resp.Result = result
		}
	}

	progress, err := s.batches.QueryProgress(r.Context(), workflowID, desc.RunID)
	if err == nil {
		resp.Progress = progress
	} else {
		logger := observability.LoggerFromContext(r.Context(), s.logger)
		logger.Debug().Err(err).Str("workflow_id", workflowID).Msg("progress query failed")
	}

	writeJSON(w, http.StatusOK, resp)
}

// cancelBatch handles DELETE /api/v1/batches/{workflowID}.
func (s *Server) cancelBatch(w http.ResponseWriter, r *http.Request) {
	if !s.requireBatches(w) {
		return
	}
	workflowID := chi.URLParam(r, "workflowID")

	if err := s.batches.CancelWorkflow(r.Context(), workflowID, ""); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"workflow_id": workflowID,
		"status":      "cancel_requested",
	})
}
