// Package activities provides Temporal activity implementations for batch
// enrichment.
//
// Inputs and outputs cross the Temporal serialization boundary, so all fields
// are exported and JSON-serializable.
package activities

// Application error types. Workflows list them as non-retryable.
const (
	// ErrTypeNoMetadataFound marks a DOI that every source reported absent.
	ErrTypeNoMetadataFound = "NoMetadataFound"
	// ErrTypeInvalidInput marks a malformed DOI or query.
	ErrTypeInvalidInput = "InvalidInput"
)

// SearchCandidatesInput contains the parameters for the candidate search activity.
type SearchCandidatesInput struct {
	// Query is the search query string.
	Query string `json:"query"`
	// Count is the number of distinct DOIs wanted.
	Count int `json:"count"`
}

// SearchCandidatesOutput contains the DOIs found for a query, in ranking order.
type SearchCandidatesOutput struct {
	DOIs         []string `json:"dois"`
	PagesFetched int      `json:"pages_fetched"`
	// Exhausted is true when fewer than Count DOIs were found.
	Exhausted bool `json:"exhausted"`
}

// EnrichDOIInput contains the DOI to enrich.
type EnrichDOIInput struct {
	DOI string `json:"doi"`
}

// EnrichDOIOutput summarises the stored paper. The full record stays in the
// store; only identifying fields cross the workflow boundary.
type EnrichDOIOutput struct {
	PaperID       string   `json:"paper_id"`
	DOI           string   `json:"doi"`
	Title         string   `json:"title"`
	CitationCount int      `json:"citation_count"`
	Badges        []string `json:"badges,omitempty"`
}
