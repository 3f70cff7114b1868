package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/helixir/paper-enrichment-service/internal/domain"
	"github.com/helixir/paper-enrichment-service/internal/enrichment"
	"github.com/helixir/paper-enrichment-service/internal/observability"
	"github.com/helixir/paper-enrichment-service/internal/temporal"
)

// maxRequestBodySize limits the size of request bodies to prevent abuse (1MB).
const maxRequestBodySize = 1 << 20

// enrichRequest is the body of POST /papers/enrich and /papers/refresh.
type enrichRequest struct {
	DOI string `json:"doi" validate:"required"`
}

// searchRequest is the body of POST /papers/search.
type searchRequest struct {
	Query       string `json:"query" validate:"required"`
	Count       int    `json:"count" validate:"min=1,max=50"`
	WithReports bool   `json:"with_reports"`
}

// searchResponse extends a query result with optional per-paper reports.
type searchResponse struct {
	*enrichment.QueryResult
	Reports map[string]string `json:"reports,omitempty"`
}

// citeCheckRequest is the body of POST /papers/citecheck.
type citeCheckRequest struct {
	DOI   string `json:"doi" validate:"required"`
	Query string `json:"query" validate:"required"`
}

// enrichPaper handles POST /api/v1/papers/enrich.
func (s *Server) enrichPaper(w http.ResponseWriter, r *http.Request) {
	var req enrichRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	ctx := observability.WithDOI(r.Context(), req.DOI)
	paper, err := s.papers.EnrichByDOI(ctx, req.DOI)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, paper)
}

// lookupPaper handles GET /api/v1/papers?doi=.
func (s *Server) lookupPaper(w http.ResponseWriter, r *http.Request) {
	doi := strings.TrimSpace(r.URL.Query().Get("doi"))
	if doi == "" {
		writeError(w, http.StatusBadRequest, "doi query parameter is required")
		return
	}

	paper, err := s.papers.Lookup(r.Context(), doi)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, paper)
}

// refreshPaper handles POST /api/v1/papers/refresh.
func (s *Server) refreshPaper(w http.ResponseWriter, r *http.Request) {
	var req enrichRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	ctx := observability.WithDOI(r.Context(), req.DOI)
	paper, err := s.papers.RefreshMetrics(ctx, req.DOI)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, paper)
}

// searchPapers handles POST /api/v1/papers/search.
func (s *Server) searchPapers(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	result, err := s.papers.EnrichByQuery(r.Context(), req.Query, req.Count)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	resp := searchResponse{QueryResult: result}
	if req.WithReports {
		resp.Reports = s.papers.GenerateReports(r.Context(), result.Query, result.Papers)
	}
	writeJSON(w, http.StatusOK, resp)
}

// citeCheck handles POST /api/v1/papers/citecheck.
func (s *Server) citeCheck(w http.ResponseWriter, r *http.Request) {
	var req citeCheckRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	ctx := observability.WithDOI(r.Context(), req.DOI)
	result, err := s.papers.CiteCheck(ctx, req.Query, req.DOI)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// decodeAndValidate reads a JSON body into v and runs struct validation. It writes
// a 400 response and returns false on failure.
func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, v any) bool {
	body := io.LimitReader(r.Body, maxRequestBodySize)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationMessage renders the first failed field of a validator error.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}
	fe := verrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// writeDomainError maps domain and workflow errors to HTTP status codes.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *domain.ValidationError

	switch {
	case errors.Is(err, temporal.ErrWorkflowNotFound):
		writeError(w, http.StatusNotFound, "batch not found")
	case errors.Is(err, temporal.ErrWorkflowAlreadyStarted):
		writeError(w, http.StatusConflict, "batch already started")
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, validationErr.Error())
	case errors.Is(err, domain.ErrInvalidDOI):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNoMetadataFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "already exists")
	case errors.Is(err, domain.ErrSourceUnavailable):
		// Retries exhausted on 429 still carry ErrRateLimited.
		writeError(w, http.StatusBadGateway, "metadata source unavailable")
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate limited")
	case errors.Is(err, domain.ErrServiceUnavailable):
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
	case errors.Is(err, domain.ErrCancelled):
		writeError(w, http.StatusConflict, "cancelled")
	default:
		logger := observability.LoggerFromContext(r.Context(), s.logger)
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
