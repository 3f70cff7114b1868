package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReportType distinguishes how a generated report was requested.
type ReportType string

const (
	// ReportTypeSearch is a relevance summary produced for a search result.
	ReportTypeSearch ReportType = "search"
	// ReportTypeCiteCheck is a citation check of one DOI against a claim.
	ReportTypeCiteCheck ReportType = "citeCheck"
)

// PaperReport is generated text about a paper in the context of a query.
// At most one report exists per (paper, query, type).
type PaperReport struct {
	ID        uuid.UUID  `json:"id"`
	PaperID   uuid.UUID  `json:"paper_id"`
	DOI       string     `json:"doi"`
	Query     string     `json:"query"`
	Type      ReportType `json:"type"`
	Report    string     `json:"report"`
	CreatedAt time.Time  `json:"created_at"`
}
