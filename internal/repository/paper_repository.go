package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/helixir/paper-enrichment-service/internal/domain"
)

// PaperRepository stores canonical papers.
type PaperRepository interface {
	// FindByDOI returns the paper with the normalized DOI.
	// Returns domain.ErrNotFound if no matching paper exists.
	FindByDOI(ctx context.Context, doi string) (*domain.Paper, error)

	// FindByTitle returns the oldest paper whose case-folded title matches.
	// Returns domain.ErrNotFound if no matching paper exists.
	FindByTitle(ctx context.Context, title string) (*domain.Paper, error)

	// Create inserts a new paper. If a paper with the same identity exists, the existing
	// row is returned and nothing is written.
	// Returns domain.ErrInvalidInput if the paper has neither DOI nor title.
	Create(ctx context.Context, paper *domain.Paper) (*domain.Paper, error)

	// UpdateMetrics overwrites citation count, open-access flag, badges, sources,
	// metadata and updated_at of an existing paper.
	// Returns domain.ErrNotFound if the paper does not exist.
	UpdateMetrics(ctx context.Context, paper *domain.Paper) (*domain.Paper, error)
}

// ReportRepository caches generated reports, one per (paper, query, type).
type ReportRepository interface {
	// FindReport returns domain.ErrNotFound if no report is cached.
	FindReport(ctx context.Context, paperID uuid.UUID, query string, reportType domain.ReportType) (*domain.PaperReport, error)

	// SaveReport inserts the report or replaces the text of the existing one.
	SaveReport(ctx context.Context, report *domain.PaperReport) (*domain.PaperReport, error)
}
