package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultNamespace prefixes every metric exposed by the service.
const DefaultNamespace = "paper_enrichment"

// Metrics contains all Prometheus metrics for the paper enrichment service.
// Collectors are registered with the default registry through promauto.
type Metrics struct {
	// SourceRequests counts HTTP attempts against metadata sources, labeled by source and outcome.
	SourceRequests *prometheus.CounterVec

	// SourceRequestDuration observes the duration of each source attempt.
	SourceRequestDuration *prometheus.HistogramVec

	// SourceRetries counts retried attempts, labeled by source and failure reason.
	SourceRetries *prometheus.CounterVec

	// SourceAbsent counts fetches that produced no data, labeled by source and reason.
	SourceAbsent *prometheus.CounterVec

	// Enrichments counts DOI enrichments by outcome.
	Enrichments *prometheus.CounterVec

	// EnrichmentDuration observes the duration of a single DOI enrichment.
	EnrichmentDuration prometheus.Histogram

	// CacheLookups counts store lookups, labeled hit or miss.
	CacheLookups *prometheus.CounterVec

	// SearchPagesFetched counts search pages retrieved from the graph source.
	SearchPagesFetched prometheus.Counter

	// BadgesAssigned counts assigned badges by name.
	BadgesAssigned *prometheus.CounterVec

	// ReportsGenerated counts report requests by status (generated, cached, failed).
	ReportsGenerated *prometheus.CounterVec

	// EventsPublished counts paper.enriched events by status.
	EventsPublished *prometheus.CounterVec

	// LLMRequests counts completion calls by provider and model.
	LLMRequests *prometheus.CounterVec

	// LLMRequestsFailed counts failed completion calls by provider, model and error type.
	LLMRequestsFailed *prometheus.CounterVec

	// LLMRequestDuration observes completion latency.
	LLMRequestDuration *prometheus.HistogramVec

	// LLMTokensUsed counts tokens by provider, model and direction.
	LLMTokensUsed *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		// Sources
		SourceRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_total",
			Help:      "Total number of HTTP attempts against metadata sources",
		}, []string{"source", "outcome"}),
		SourceRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_request_duration_seconds",
			Help:      "Duration of metadata source attempts in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}, []string{"source"}),
		SourceRetries: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_retries_total",
			Help:      "Total number of retried source attempts",
		}, []string{"source", "reason"}),
		SourceAbsent: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_absent_total",
			Help:      "Total number of source fetches that produced no data",
		}, []string{"source", "reason"}),

		// Enrichment
		Enrichments: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichments_total",
			Help:      "Total number of DOI enrichments by outcome",
		}, []string{"outcome"}),
		EnrichmentDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "enrichment_duration_seconds",
			Help:      "Duration of a single DOI enrichment in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 60},
		}),
		CacheLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Total number of paper store lookups by result",
		}, []string{"result"}),
		SearchPagesFetched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_pages_fetched_total",
			Help:      "Total number of search pages fetched",
		}),
		BadgesAssigned: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "badges_assigned_total",
			Help:      "Total number of badges assigned by badge",
		}, []string{"badge"}),

		// Reports and events
		ReportsGenerated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_generated_total",
			Help:      "Total number of report requests by status",
		}, []string{"status"}),
		EventsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Total number of paper events published by status",
		}, []string{"status"}),

		// LLM
		LLMRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of LLM completion requests",
		}, []string{"provider", "model"}),
		LLMRequestsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_failed_total",
			Help:      "Total number of failed LLM completion requests",
		}, []string{"provider", "model", "error_type"}),
		LLMRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "Duration of LLM completion requests in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}, []string{"provider", "model"}),
		LLMTokensUsed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_used_total",
			Help:      "Total number of tokens used by LLM requests",
		}, []string{"provider", "model", "type"}),
	}
}

// ObserveSourceRequest records one HTTP attempt against a source.
func (m *Metrics) ObserveSourceRequest(source, outcome string, duration time.Duration) {
	m.SourceRequests.WithLabelValues(source, outcome).Inc()
	m.SourceRequestDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// ObserveSourceRetry records a retried attempt.
func (m *Metrics) ObserveSourceRetry(source, reason string) {
	m.SourceRetries.WithLabelValues(source, reason).Inc()
}

// ObserveSourceAbsent records a fetch that ended without data.
func (m *Metrics) ObserveSourceAbsent(source, reason string) {
	m.SourceAbsent.WithLabelValues(source, reason).Inc()
}

// RecordEnrichment records the outcome and duration of a DOI enrichment.
func (m *Metrics) RecordEnrichment(outcome string, duration time.Duration) {
	m.Enrichments.WithLabelValues(outcome).Inc()
	m.EnrichmentDuration.Observe(duration.Seconds())
}

// RecordCacheLookup records a store lookup result.
func (m *Metrics) RecordCacheLookup(result string) {
	m.CacheLookups.WithLabelValues(result).Inc()
}

// RecordSearchPage records one fetched search page.
func (m *Metrics) RecordSearchPage() {
	m.SearchPagesFetched.Inc()
}

// RecordBadges records each assigned badge.
func (m *Metrics) RecordBadges(badges []string) {
	for _, b := range badges {
		m.BadgesAssigned.WithLabelValues(b).Inc()
	}
}

// RecordReport records a report request by status.
func (m *Metrics) RecordReport(status string) {
	m.ReportsGenerated.WithLabelValues(status).Inc()
}

// RecordEventPublished records a paper event publish attempt.
func (m *Metrics) RecordEventPublished(status string) {
	m.EventsPublished.WithLabelValues(status).Inc()
}

// RecordLLMRequest records a successful completion call.
func (m *Metrics) RecordLLMRequest(provider, model string, duration time.Duration, inputTokens, outputTokens int) {
	m.LLMRequests.WithLabelValues(provider, model).Inc()
	m.LLMRequestDuration.WithLabelValues(provider, model).Observe(duration.Seconds())
	m.LLMTokensUsed.WithLabelValues(provider, model, "input").Add(float64(inputTokens))
	m.LLMTokensUsed.WithLabelValues(provider, model, "output").Add(float64(outputTokens))
}

// RecordLLMRequestFailed records a failed completion call.
func (m *Metrics) RecordLLMRequestFailed(provider, model, errorType string) {
	m.LLMRequestsFailed.WithLabelValues(provider, model, errorType).Inc()
}
