// Package papersources provides the shared plumbing used by every metadata source client.
//
// Each source (Semantic Scholar, OpenAlex, Crossref, Unpaywall) lives in its own
// subpackage and talks HTTP through an HTTPClient, which applies a token-bucket rate
// limit and the RetryEngine to every request. Source clients never return ordinary
// failures to their callers: a request that cannot be satisfied is reported as absent
// (nil, false), logged, and counted.
//
// Example usage:
//
//	client := crossref.New(crossref.Config{ContactEmail: "ops@example.org"})
//	work, ok := client.FetchByDOI(ctx, "10.1038/nature12373")
//	if !ok {
//		// absent: not found, rate limited past the budget, or unreachable
//	}
package papersources

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/helixir/paper-enrichment-service/internal/domain"
)

// MaxResponseBytes caps how much of a response body is read.
const MaxResponseBytes = 10 << 20

// Observer receives per-source request telemetry. observability.Metrics implements it.
type Observer interface {
	// ObserveSourceRequest records one HTTP attempt and its outcome.
	ObserveSourceRequest(source, outcome string, duration time.Duration)

	// ObserveSourceRetry records that an attempt is about to be retried.
	ObserveSourceRetry(source, reason string)

	// ObserveSourceAbsent records a fetch that ended without data.
	ObserveSourceAbsent(source, reason string)
}

// NopObserver discards all telemetry.
type NopObserver struct{}

func (NopObserver) ObserveSourceRequest(string, string, time.Duration) {}
func (NopObserver) ObserveSourceRetry(string, string)                  {}
func (NopObserver) ObserveSourceAbsent(string, string)                 {}

// AbsentReason maps a fetch error to the reason label used in logs and metrics.
func AbsentReason(err error) FailureReason {
	var apiErr *domain.ExternalAPIError
	switch {
	case err == nil:
		return ReasonNotFound
	case errors.Is(err, domain.ErrCancelled):
		return ReasonCancelled
	case errors.Is(err, domain.ErrSourceUnavailable):
		return ReasonExhausted
	case errors.Is(err, domain.ErrNotFound):
		return ReasonNotFound
	case errors.As(err, &apiErr) && apiErr.StatusCode >= 400:
		return ReasonClientError
	default:
		return ReasonDecode
	}
}

// EscapeDOIPath escapes each segment of a DOI for use in a URL path, keeping the slashes
// that separate prefix and suffix.
func EscapeDOIPath(doi string) string {
	segments := strings.Split(doi, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}
