// Package semanticscholar provides the search/graph source client for the Semantic Scholar
// Graph API. It resolves single papers by DOI and runs paginated keyword search used to
// discover candidate DOIs.
//
// API Documentation: https://api.semanticscholar.org/api-docs/graph
package semanticscholar

// SearchResponse is one page of the paper search endpoint.
type SearchResponse struct {
	// Total is the approximate number of matching papers.
	Total int `json:"total"`

	// Offset is the offset of this page.
	Offset int `json:"offset"`

	// Next is the offset of the following page; nil on the last page.
	Next *int `json:"next"`

	// Data holds the papers on this page.
	Data []Paper `json:"data"`
}

// Paper is the projection of a Semantic Scholar paper this service consumes.
// Every field is optional in the upstream payload.
type Paper struct {
	PaperID         string       `json:"paperId"`
	Title           string       `json:"title"`
	Abstract        *string      `json:"abstract"`
	Venue           string       `json:"venue"`
	Year            *int         `json:"year"`
	PublicationDate *string      `json:"publicationDate"`
	URL             string       `json:"url"`
	CitationCount   *int         `json:"citationCount"`
	IsOpenAccess    *bool        `json:"isOpenAccess"`
	Authors         []Author     `json:"authors"`
	ExternalIDs     *ExternalIDs `json:"externalIds"`
}

// Author is a paper author as returned by the graph API.
type Author struct {
	AuthorID *string `json:"authorId"`
	Name     string  `json:"name"`
}

// ExternalIDs holds identifiers in other systems.
type ExternalIDs struct {
	DOI      string `json:"DOI"`
	ArXiv    string `json:"ArXiv"`
	PubMed   string `json:"PubMed"`
	DBLP     string `json:"DBLP"`
	CorpusID *int   `json:"CorpusId"`
}

// DOI returns the paper's DOI, or "" when it has none.
func (p *Paper) DOI() string {
	if p == nil || p.ExternalIDs == nil {
		return ""
	}
	return p.ExternalIDs.DOI
}

// AbstractText returns the abstract or "".
func (p *Paper) AbstractText() string {
	if p == nil || p.Abstract == nil {
		return ""
	}
	return *p.Abstract
}

// AuthorNames returns author names in order, skipping blanks.
func (p *Paper) AuthorNames() []string {
	if p == nil {
		return nil
	}
	names := make([]string, 0, len(p.Authors))
	for _, a := range p.Authors {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}
	return names
}
