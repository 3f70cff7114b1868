package repository

import (
	"encoding/json"
	"fmt"

	"github.com/helixir/paper-enrichment-service/internal/domain"
)

// paperMetadata is the JSON document holding every paper field without its own column.
type paperMetadata struct {
	PublicationDateEstimated bool                       `json:"publication_date_estimated,omitempty"`
	Volume                   string                     `json:"volume,omitempty"`
	Issue                    string                     `json:"issue,omitempty"`
	Pages                    string                     `json:"pages,omitempty"`
	ISSN                     []string                   `json:"issn,omitempty"`
	VenueType                string                     `json:"venue_type,omitempty"`
	VenueRank                string                     `json:"venue_rank,omitempty"`
	Abstract                 string                     `json:"abstract,omitempty"`
	Keywords                 []string                   `json:"keywords,omitempty"`
	Language                 string                     `json:"language,omitempty"`
	Type                     string                     `json:"type,omitempty"`
	License                  string                     `json:"license,omitempty"`
	PDFLink                  string                     `json:"pdf_link,omitempty"`
	SourceLink               string                     `json:"source_link,omitempty"`
	SemanticScholarID        string                     `json:"semantic_scholar_id,omitempty"`
	Metrics                  domain.PaperMetrics        `json:"metrics"`
	Topics                   []domain.Topic             `json:"topics,omitempty"`
	Funders                  []domain.Funder            `json:"funders,omitempty"`
	AuthorInstitutions       []domain.AuthorInstitution `json:"author_institutions,omitempty"`
	RelatedWorks             []string                   `json:"related_works,omitempty"`
	ReferencedWorks          []string                   `json:"referenced_works,omitempty"`
}

// paperColumns are the JSON-encoded column values of a paper.
type paperColumns struct {
	authors  []byte
	badges   []byte
	sources  []byte
	metadata []byte
}

func encodePaper(p *domain.Paper) (paperColumns, error) {
	var cols paperColumns
	var err error

	authors := p.Authors
	if authors == nil {
		authors = []string{}
	}
	if cols.authors, err = json.Marshal(authors); err != nil {
		return cols, fmt.Errorf("failed to marshal authors: %w", err)
	}

	paperBadges := p.Badges
	if paperBadges == nil {
		paperBadges = []string{}
	}
	if cols.badges, err = json.Marshal(paperBadges); err != nil {
		return cols, fmt.Errorf("failed to marshal badges: %w", err)
	}

	sources := p.Sources
	if sources == nil {
		sources = []domain.SourceType{}
	}
	if cols.sources, err = json.Marshal(sources); err != nil {
		return cols, fmt.Errorf("failed to marshal sources: %w", err)
	}

	meta := paperMetadata{
		PublicationDateEstimated: p.PublicationDateEstimated,
		Volume:                   p.Volume,
		Issue:                    p.Issue,
		Pages:                    p.Pages,
		ISSN:                     p.ISSN,
		VenueType:                p.VenueType,
		VenueRank:                p.VenueRank,
		Abstract:                 p.Abstract,
		Keywords:                 p.Keywords,
		Language:                 p.Language,
		Type:                     p.Type,
		License:                  p.License,
		PDFLink:                  p.PDFLink,
		SourceLink:               p.SourceLink,
		SemanticScholarID:        p.SemanticScholarID,
		Metrics:                  p.Metrics,
		Topics:                   p.Topics,
		Funders:                  p.Funders,
		AuthorInstitutions:       p.AuthorInstitutions,
		RelatedWorks:             p.RelatedWorks,
		ReferencedWorks:          p.ReferencedWorks,
	}
	if cols.metadata, err = json.Marshal(meta); err != nil {
		return cols, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return cols, nil
}

// decodeInto unmarshals the JSON columns onto p.
func (cols paperColumns) decodeInto(p *domain.Paper) error {
	if len(cols.authors) > 0 {
		if err := json.Unmarshal(cols.authors, &p.Authors); err != nil {
			return fmt.Errorf("failed to unmarshal authors: %w", err)
		}
	}
	if len(cols.badges) > 0 {
		if err := json.Unmarshal(cols.badges, &p.Badges); err != nil {
			return fmt.Errorf("failed to unmarshal badges: %w", err)
		}
	}
	if len(cols.sources) > 0 {
		if err := json.Unmarshal(cols.sources, &p.Sources); err != nil {
			return fmt.Errorf("failed to unmarshal sources: %w", err)
		}
	}
	if len(cols.metadata) == 0 {
		return nil
	}

	var meta paperMetadata
	if err := json.Unmarshal(cols.metadata, &meta); err != nil {
		return fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	p.PublicationDateEstimated = meta.PublicationDateEstimated
	p.Volume = meta.Volume
	p.Issue = meta.Issue
	p.Pages = meta.Pages
	p.ISSN = meta.ISSN
	p.VenueType = meta.VenueType
	p.VenueRank = meta.VenueRank
	p.Abstract = meta.Abstract
	p.Keywords = meta.Keywords
	p.Language = meta.Language
	p.Type = meta.Type
	p.License = meta.License
	p.PDFLink = meta.PDFLink
	p.SourceLink = meta.SourceLink
	p.SemanticScholarID = meta.SemanticScholarID
	p.Metrics = meta.Metrics
	p.Topics = meta.Topics
	p.Funders = meta.Funders
	p.AuthorInstitutions = meta.AuthorInstitutions
	p.RelatedWorks = meta.RelatedWorks
	p.ReferencedWorks = meta.ReferencedWorks
	return nil
}

// validateIdentity checks that a paper can be stored.
func validateIdentity(p *domain.Paper) error {
	if p == nil {
		return domain.NewValidationError("paper", "paper cannot be nil")
	}
	if !p.HasIdentity() {
		return domain.NewValidationError("doi", "paper needs a DOI or a title")
	}
	return nil
}

// nullableDOI maps an empty DOI to NULL so the unique index ignores it.
func nullableDOI(doi string) *string {
	if doi == "" {
		return nil
	}
	return &doi
}
