package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// SourceType identifies one of the external metadata sources.
type SourceType string

const (
	// SourceTypeSemanticScholar is the search/graph source.
	SourceTypeSemanticScholar SourceType = "semantic_scholar"
	// SourceTypeOpenAlex is the citation-metrics source.
	SourceTypeOpenAlex SourceType = "openalex"
	// SourceTypeCrossref is the publisher-registry source.
	SourceTypeCrossref SourceType = "crossref"
	// SourceTypeUnpaywall is the open-access resolver.
	SourceTypeUnpaywall SourceType = "unpaywall"
)

// AllSourceTypes lists every metadata source in fan-out order.
var AllSourceTypes = []SourceType{
	SourceTypeSemanticScholar,
	SourceTypeOpenAlex,
	SourceTypeCrossref,
	SourceTypeUnpaywall,
}

// Defaults applied when no source supplies a value.
const (
	UntitledPaper    = "Untitled"
	UnknownJournal   = "Unknown"
	UnknownPublisher = "Unknown"
	DefaultLanguage  = "en"
	DefaultWorkType  = "article"
)

// Topic is a research topic classification attached to a paper.
type Topic struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Score    float64 `json:"score"`
	Field    string  `json:"field,omitempty"`
	Subfield string  `json:"subfield,omitempty"`
}

// Funder is a grant or funding body attached to a paper.
type Funder struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	AwardID string `json:"award_id,omitempty"`
}

// AuthorInstitution records the affiliations of one author.
type AuthorInstitution struct {
	Author       string   `json:"author"`
	Institutions []string `json:"institutions,omitempty"`
	Countries    []string `json:"countries,omitempty"`
}

// YearCount is the number of citations received in a calendar year.
type YearCount struct {
	Year  int `json:"year"`
	Count int `json:"count"`
}

// PaperMetrics holds the refreshable citation and collaboration metrics of a paper.
type PaperMetrics struct {
	FWCI               float64     `json:"fwci"`
	CitationPercentile float64     `json:"citation_percentile"`
	IsTop1Percent      bool        `json:"is_top_1_percent"`
	IsTop10Percent     bool        `json:"is_top_10_percent"`
	AuthorCount        int         `json:"author_count"`
	InstitutionCount   int         `json:"institution_count"`
	CountryCount       int         `json:"country_count"`
	IsRetracted        bool        `json:"is_retracted"`
	HasFulltext        bool        `json:"has_fulltext"`
	CitationsByYear    []YearCount `json:"citations_by_year,omitempty"`
}

// Paper is the canonical, merged record for a scholarly work.
type Paper struct {
	ID                       uuid.UUID           `json:"id"`
	DOI                      string              `json:"doi"`
	Title                    string              `json:"title"`
	Authors                  []string            `json:"authors"`
	PublicationDate          time.Time           `json:"publication_date"`
	PublicationDateEstimated bool                `json:"publication_date_estimated"`
	Journal                  string              `json:"journal"`
	Publisher                string              `json:"publisher"`
	Volume                   string              `json:"volume,omitempty"`
	Issue                    string              `json:"issue,omitempty"`
	Pages                    string              `json:"pages,omitempty"`
	ISSN                     []string            `json:"issn,omitempty"`
	VenueType                string              `json:"venue_type,omitempty"`
	VenueRank                string              `json:"venue_rank,omitempty"`
	Abstract                 string              `json:"abstract,omitempty"`
	Keywords                 []string            `json:"keywords,omitempty"`
	Language                 string              `json:"language"`
	Type                     string              `json:"type"`
	License                  string              `json:"license,omitempty"`
	CitationCount            int                 `json:"citation_count"`
	IsOpenAccess             bool                `json:"is_open_access"`
	IsPreprint               bool                `json:"is_preprint"`
	PDFLink                  string              `json:"pdf_link,omitempty"`
	SourceLink               string              `json:"source_link,omitempty"`
	SemanticScholarID        string              `json:"semantic_scholar_id,omitempty"`
	Metrics                  PaperMetrics        `json:"metrics"`
	Topics                   []Topic             `json:"topics,omitempty"`
	Funders                  []Funder            `json:"funders,omitempty"`
	AuthorInstitutions       []AuthorInstitution `json:"author_institutions,omitempty"`
	RelatedWorks             []string            `json:"related_works,omitempty"`
	ReferencedWorks          []string            `json:"referenced_works,omitempty"`
	Badges                   []string            `json:"badges"`
	Sources                  []SourceType        `json:"sources"`
	CreatedAt                time.Time           `json:"created_at"`
	UpdatedAt                time.Time           `json:"updated_at"`
}

// TitleKey returns the case-folded title used for identity matching when a DOI is absent.
func (p *Paper) TitleKey() string {
	return TitleKey(p.Title)
}

// TitleKey folds a title into its identity-matching form.
func TitleKey(title string) string {
	return strings.ToLower(strings.Join(strings.Fields(title), " "))
}

// HasIdentity returns true if the paper can be stored: it needs a DOI or a title.
func (p *Paper) HasIdentity() bool {
	return p.DOI != "" || p.TitleKey() != ""
}

// PublicationDateString formats the publication date as YYYY-MM-DD, or "" when unset.
func (p *Paper) PublicationDateString() string {
	if p.PublicationDate.IsZero() {
		return ""
	}
	return p.PublicationDate.Format(time.DateOnly)
}
