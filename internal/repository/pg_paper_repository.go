package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/helixir/paper-enrichment-service/internal/domain"
)

// Compile-time interface verification.
var _ PaperRepository = (*PgPaperRepository)(nil)

const paperSelectColumns = `id, doi, title, authors, publication_date, journal, publisher,
			citation_count, is_open_access, is_preprint, badges, sources, metadata,
			created_at, updated_at`

// PgPaperRepository is a PostgreSQL implementation of PaperRepository.
type PgPaperRepository struct {
	db  DBTX
	now func() time.Time
}

// NewPgPaperRepository creates a new PostgreSQL paper repository.
func NewPgPaperRepository(db DBTX) *PgPaperRepository {
	return &PgPaperRepository{db: db, now: time.Now}
}

// FindByDOI retrieves a paper by its normalized DOI.
func (r *PgPaperRepository) FindByDOI(ctx context.Context, doi string) (*domain.Paper, error) {
	doi = domain.NormalizeDOI(doi)
	if doi == "" {
		return nil, domain.NewValidationError("doi", "DOI is required")
	}

	query := `
		SELECT ` + paperSelectColumns + `
		FROM papers
		WHERE doi = $1`

	paper, err := scanPaper(r.db.QueryRow(ctx, query, doi))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("paper", doi)
		}
		return nil, fmt.Errorf("failed to get paper by DOI: %w", err)
	}
	return paper, nil
}

// FindByTitle retrieves the oldest paper with a matching case-folded title.
func (r *PgPaperRepository) FindByTitle(ctx context.Context, title string) (*domain.Paper, error) {
	key := domain.TitleKey(title)
	if key == "" {
		return nil, domain.NewValidationError("title", "title is required")
	}

	query := `
		SELECT ` + paperSelectColumns + `
		FROM papers
		WHERE title_key = $1
		ORDER BY created_at ASC
		LIMIT 1`

	paper, err := scanPaper(r.db.QueryRow(ctx, query, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("paper", key)
		}
		return nil, fmt.Errorf("failed to get paper by title: %w", err)
	}
	return paper, nil
}

// Create inserts a paper unless one with the same DOI (or, without a DOI, the same
// title) already exists, in which case the stored paper is returned.
func (r *PgPaperRepository) Create(ctx context.Context, paper *domain.Paper) (*domain.Paper, error) {
	if err := validateIdentity(paper); err != nil {
		return nil, err
	}
	paper.DOI = domain.NormalizeDOI(paper.DOI)

	if paper.DOI == "" {
		existing, err := r.FindByTitle(ctx, paper.Title)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}

	cols, err := encodePaper(paper)
	if err != nil {
		return nil, err
	}

	now := r.now().UTC()
	if paper.ID == uuid.Nil {
		paper.ID = uuid.New()
	}
	if paper.CreatedAt.IsZero() {
		paper.CreatedAt = now
	}
	if paper.UpdatedAt.IsZero() {
		paper.UpdatedAt = now
	}

	query := `
		INSERT INTO papers (
			id, doi, title, title_key, authors, publication_date, journal, publisher,
			citation_count, is_open_access, is_preprint, badges, sources, metadata,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
		)
		ON CONFLICT (doi) DO NOTHING
		RETURNING id, created_at, updated_at`

	err = r.db.QueryRow(ctx, query,
		paper.ID,
		nullableDOI(paper.DOI),
		paper.Title,
		paper.TitleKey(),
		cols.authors,
		paper.PublicationDate,
		paper.Journal,
		paper.Publisher,
		paper.CitationCount,
		paper.IsOpenAccess,
		paper.IsPreprint,
		cols.badges,
		cols.sources,
		cols.metadata,
		paper.CreatedAt,
		paper.UpdatedAt,
	).Scan(&paper.ID, &paper.CreatedAt, &paper.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		// Lost the race for this DOI; hand back the winner.
		return r.FindByDOI(ctx, paper.DOI)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to insert paper: %w", err)
	}

	return paper, nil
}

// UpdateMetrics overwrites the refreshable fields of an existing paper.
func (r *PgPaperRepository) UpdateMetrics(ctx context.Context, paper *domain.Paper) (*domain.Paper, error) {
	if paper == nil || paper.ID == uuid.Nil {
		return nil, domain.NewValidationError("id", "paper ID is required")
	}

	cols, err := encodePaper(paper)
	if err != nil {
		return nil, err
	}
	if paper.UpdatedAt.IsZero() {
		paper.UpdatedAt = r.now().UTC()
	}

	query := `
		UPDATE papers SET
			citation_count = $2,
			is_open_access = $3,
			badges = $4,
			sources = $5,
			metadata = $6,
			updated_at = $7
		WHERE id = $1
		RETURNING updated_at`

	err = r.db.QueryRow(ctx, query,
		paper.ID,
		paper.CitationCount,
		paper.IsOpenAccess,
		cols.badges,
		cols.sources,
		cols.metadata,
		paper.UpdatedAt,
	).Scan(&paper.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("paper", paper.ID.String())
		}
		return nil, fmt.Errorf("failed to update paper metrics: %w", err)
	}

	return paper, nil
}

// paperScanDest holds the destination pointers for scanning a Paper row.
type paperScanDest struct {
	paper domain.Paper
	doi   *string
	cols  paperColumns
}

// destinations returns the slice of pointers for Scan operations.
func (d *paperScanDest) destinations() []interface{} {
	return []interface{}{
		&d.paper.ID, &d.doi, &d.paper.Title, &d.cols.authors, &d.paper.PublicationDate,
		&d.paper.Journal, &d.paper.Publisher, &d.paper.CitationCount, &d.paper.IsOpenAccess,
		&d.paper.IsPreprint, &d.cols.badges, &d.cols.sources, &d.cols.metadata,
		&d.paper.CreatedAt, &d.paper.UpdatedAt,
	}
}

// finalize performs post-scan processing: unmarshals JSON fields.
func (d *paperScanDest) finalize() (*domain.Paper, error) {
	if d.doi != nil {
		d.paper.DOI = *d.doi
	}
	if err := d.cols.decodeInto(&d.paper); err != nil {
		return nil, err
	}
	return &d.paper, nil
}

// scanPaper scans a single row into a Paper.
func scanPaper(row pgx.Row) (*domain.Paper, error) {
	var dest paperScanDest
	if err := row.Scan(dest.destinations()...); err != nil {
		return nil, err
	}
	return dest.finalize()
}
