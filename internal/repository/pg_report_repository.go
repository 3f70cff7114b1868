package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/helixir/paper-enrichment-service/internal/domain"
)

// Compile-time interface verification.
var _ ReportRepository = (*PgReportRepository)(nil)

// PgReportRepository is a PostgreSQL implementation of ReportRepository.
type PgReportRepository struct {
	db DBTX
}

// NewPgReportRepository creates a new PostgreSQL report repository.
func NewPgReportRepository(db DBTX) *PgReportRepository {
	return &PgReportRepository{db: db}
}

// FindReport retrieves the cached report for a paper and query.
func (r *PgReportRepository) FindReport(ctx context.Context, paperID uuid.UUID, query string, reportType domain.ReportType) (*domain.PaperReport, error) {
	q := `
		SELECT id, paper_id, doi, query, report_type, report, created_at
		FROM paper_reports
		WHERE paper_id = $1 AND query = $2 AND report_type = $3`

	var report domain.PaperReport
	var typ string
	err := r.db.QueryRow(ctx, q, paperID, strings.TrimSpace(query), string(reportType)).Scan(
		&report.ID, &report.PaperID, &report.DOI, &report.Query, &typ, &report.Report, &report.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("report", fmt.Sprintf("%s:%s", paperID, reportType))
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	report.Type = domain.ReportType(typ)
	return &report, nil
}

// SaveReport inserts the report, replacing the text of an existing one for the same key.
func (r *PgReportRepository) SaveReport(ctx context.Context, report *domain.PaperReport) (*domain.PaperReport, error) {
	if report == nil || report.PaperID == uuid.Nil {
		return nil, domain.NewValidationError("paper_id", "paper ID is required")
	}
	report.Query = strings.TrimSpace(report.Query)
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}

	q := `
		INSERT INTO paper_reports (id, paper_id, doi, query, report_type, report, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (paper_id, query, report_type) DO UPDATE SET
			report = EXCLUDED.report
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, q,
		report.ID,
		report.PaperID,
		report.DOI,
		report.Query,
		string(report.Type),
		report.Report,
		report.CreatedAt,
	).Scan(&report.ID, &report.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to save report: %w", err)
	}
	return report, nil
}
