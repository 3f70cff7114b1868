// Package openalex provides the citation-metrics source client for the OpenAlex API.
//
// OpenAlex supplies citation counts, field-weighted citation impact, percentiles,
// authorships with institutions and countries, topics, grants and the abstract as an
// inverted index.
//
// API Documentation: https://docs.openalex.org/
package openalex

// Work is the projection of an OpenAlex work this service consumes. Every field is
// optional upstream; nullable numbers are pointers so absence is distinguishable from zero.
type Work struct {
	ID                           string           `json:"id"`
	DOI                          string           `json:"doi"`
	Title                        string           `json:"title"`
	DisplayName                  string           `json:"display_name"`
	Type                         string           `json:"type"`
	Language                     string           `json:"language"`
	PublicationYear              *int             `json:"publication_year"`
	PublicationDate              string           `json:"publication_date"`
	CitedByCount                 *int             `json:"cited_by_count"`
	FWCI                         *float64         `json:"fwci"`
	CitationNormalizedPercentile *Percentile      `json:"citation_normalized_percentile"`
	InstitutionsDistinctCount    *int             `json:"institutions_distinct_count"`
	CountriesDistinctCount       *int             `json:"countries_distinct_count"`
	IsRetracted                  bool             `json:"is_retracted"`
	HasFulltext                  bool             `json:"has_fulltext"`
	OpenAccess                   *OpenAccess      `json:"open_access"`
	PrimaryLocation              *Location        `json:"primary_location"`
	Authorships                  []Authorship     `json:"authorships"`
	AbstractInvertedIndex        map[string][]int `json:"abstract_inverted_index"`
	Topics                       []Topic          `json:"topics"`
	Grants                       []Grant          `json:"grants"`
	Keywords                     []Keyword        `json:"keywords"`
	CountsByYear                 []YearCount      `json:"counts_by_year"`
	Biblio                       *Biblio          `json:"biblio"`
	RelatedWorks                 []string         `json:"related_works"`
	ReferencedWorks              []string         `json:"referenced_works"`
}

// Percentile is the citation percentile normalized by field and year.
type Percentile struct {
	Value            *float64 `json:"value"`
	IsInTop1Percent  bool     `json:"is_in_top_1_percent"`
	IsInTop10Percent bool     `json:"is_in_top_10_percent"`
}

// OpenAccess contains open access information for a work.
type OpenAccess struct {
	IsOA     bool   `json:"is_oa"`
	OAURL    string `json:"oa_url"`
	OAStatus string `json:"oa_status"`
}

// Authorship represents an author's contribution to a work.
type Authorship struct {
	AuthorPosition string        `json:"author_position"`
	Author         AuthorInfo    `json:"author"`
	Institutions   []Institution `json:"institutions"`
	Countries      []string      `json:"countries"`
}

// AuthorInfo contains basic author information.
type AuthorInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Orcid       string `json:"orcid"`
}

// Institution represents an academic institution.
type Institution struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	CountryCode string `json:"country_code"`
}

// Location represents where a work is hosted.
type Location struct {
	Source         *Source `json:"source"`
	LandingPageURL string  `json:"landing_page_url"`
	PDFURL         string  `json:"pdf_url"`
	License        string  `json:"license"`
	Version        string  `json:"version"`
}

// Source represents a publication venue (journal, repository, conference).
type Source struct {
	ID                   string   `json:"id"`
	DisplayName          string   `json:"display_name"`
	Type                 string   `json:"type"`
	ISSNL                string   `json:"issn_l"`
	ISSN                 []string `json:"issn"`
	HostOrganizationName string   `json:"host_organization_name"`
}

// Topic is an OpenAlex topic classification.
type Topic struct {
	ID          string      `json:"id"`
	DisplayName string      `json:"display_name"`
	Score       float64     `json:"score"`
	Subfield    *TopicLevel `json:"subfield"`
	Field       *TopicLevel `json:"field"`
}

// TopicLevel is one level of the topic hierarchy.
type TopicLevel struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// Grant links a work to a funder.
type Grant struct {
	Funder            string `json:"funder"`
	FunderDisplayName string `json:"funder_display_name"`
	AwardID           string `json:"award_id"`
}

// Keyword is an extracted keyword with relevance score.
type Keyword struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	Score       float64 `json:"score"`
}

// YearCount is the citation count for one year.
type YearCount struct {
	Year         int `json:"year"`
	CitedByCount int `json:"cited_by_count"`
}

// Biblio holds volume, issue and page information.
type Biblio struct {
	Volume    string `json:"volume"`
	Issue     string `json:"issue"`
	FirstPage string `json:"first_page"`
	LastPage  string `json:"last_page"`
}

// HostVenueName returns the display name of the primary location's source.
func (w *Work) HostVenueName() string {
	if w == nil || w.PrimaryLocation == nil || w.PrimaryLocation.Source == nil {
		return ""
	}
	return w.PrimaryLocation.Source.DisplayName
}

// HostSource returns the primary location's source, or nil.
func (w *Work) HostSource() *Source {
	if w == nil || w.PrimaryLocation == nil {
		return nil
	}
	return w.PrimaryLocation.Source
}

// Pages formats the biblio page range.
func (b *Biblio) Pages() string {
	if b == nil || b.FirstPage == "" {
		return ""
	}
	if b.LastPage == "" || b.LastPage == b.FirstPage {
		return b.FirstPage
	}
	return b.FirstPage + "-" + b.LastPage
}
