// Package normalize merges per-source records for one DOI into a canonical paper.
//
// Every field is resolved through a fixed priority chain across the four sources and
// falls back to a zero value or a documented default, so the result is always fully
// populated and safe to hand to the badge engine.
package normalize

import (
	"github.com/helixir/paper-enrichment-service/internal/domain"
	"github.com/helixir/paper-enrichment-service/internal/papersources/crossref"
	"github.com/helixir/paper-enrichment-service/internal/papersources/openalex"
	"github.com/helixir/paper-enrichment-service/internal/papersources/semanticscholar"
	"github.com/helixir/paper-enrichment-service/internal/papersources/unpaywall"
)

// Bundle aggregates the source results for one DOI. A nil member means that source was Absent.
type Bundle struct {
	DOI      string
	Graph    *semanticscholar.Paper
	Metrics  *openalex.Work
	Registry *crossref.Work
	Access   *unpaywall.Record
}

// Empty reports whether every source was Absent.
func (b Bundle) Empty() bool {
	return b.Graph == nil && b.Metrics == nil && b.Registry == nil && b.Access == nil
}

// Sources lists the sources that contributed, in fan-out order.
func (b Bundle) Sources() []domain.SourceType {
	sources := make([]domain.SourceType, 0, len(domain.AllSourceTypes))
	if b.Graph != nil {
		sources = append(sources, domain.SourceTypeSemanticScholar)
	}
	if b.Metrics != nil {
		sources = append(sources, domain.SourceTypeOpenAlex)
	}
	if b.Registry != nil {
		sources = append(sources, domain.SourceTypeCrossref)
	}
	if b.Access != nil {
		sources = append(sources, domain.SourceTypeUnpaywall)
	}
	return sources
}
