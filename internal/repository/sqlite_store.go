package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/helixir/paper-enrichment-service/internal/domain"

	_ "modernc.org/sqlite"
)

// Compile-time interface verification.
var (
	_ PaperRepository  = (*SQLiteStore)(nil)
	_ ReportRepository = (*SQLiteStore)(nil)
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS papers (
	id               TEXT PRIMARY KEY,
	doi              TEXT UNIQUE,
	title            TEXT NOT NULL,
	title_key        TEXT NOT NULL,
	authors          TEXT NOT NULL DEFAULT '[]',
	publication_date TEXT NOT NULL,
	journal          TEXT NOT NULL,
	publisher        TEXT NOT NULL,
	citation_count   INTEGER NOT NULL DEFAULT 0,
	is_open_access   INTEGER NOT NULL DEFAULT 0,
	is_preprint      INTEGER NOT NULL DEFAULT 0,
	badges           TEXT NOT NULL DEFAULT '[]',
	sources          TEXT NOT NULL DEFAULT '[]',
	metadata         TEXT NOT NULL DEFAULT '{}',
	created_at       TEXT NOT NULL,
	updated_at       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_papers_title_key ON papers (title_key);
CREATE TABLE IF NOT EXISTS paper_reports (
	id          TEXT PRIMARY KEY,
	paper_id    TEXT NOT NULL,
	doi         TEXT NOT NULL,
	query       TEXT NOT NULL,
	report_type TEXT NOT NULL,
	report      TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	UNIQUE (paper_id, query, report_type)
);
`

const sqlitePaperColumns = `id, doi, title, authors, publication_date, journal, publisher,
	citation_count, is_open_access, is_preprint, badges, sources, metadata, created_at, updated_at`

// SQLiteStore is a single-file PaperRepository and ReportRepository for local use.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLiteStore opens (creating if needed) the database at path and its tables.
func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite doesn't support concurrent writes
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// FindByDOI retrieves a paper by its normalized DOI.
func (s *SQLiteStore) FindByDOI(ctx context.Context, doi string) (*domain.Paper, error) {
	doi = domain.NormalizeDOI(doi)
	if doi == "" {
		return nil, domain.NewValidationError("doi", "DOI is required")
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+sqlitePaperColumns+` FROM papers WHERE doi = ?`, doi)
	paper, err := scanSQLitePaper(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFoundError("paper", doi)
	}
	return paper, err
}

// FindByTitle retrieves the oldest paper with a matching case-folded title.
func (s *SQLiteStore) FindByTitle(ctx context.Context, title string) (*domain.Paper, error) {
	key := domain.TitleKey(title)
	if key == "" {
		return nil, domain.NewValidationError("title", "title is required")
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqlitePaperColumns+` FROM papers WHERE title_key = ? ORDER BY created_at ASC LIMIT 1`, key)
	paper, err := scanSQLitePaper(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFoundError("paper", key)
	}
	return paper, err
}

// Create inserts a paper unless one with the same identity exists.
func (s *SQLiteStore) Create(ctx context.Context, paper *domain.Paper) (*domain.Paper, error) {
	if err := validateIdentity(paper); err != nil {
		return nil, err
	}
	paper.DOI = domain.NormalizeDOI(paper.DOI)

	if paper.DOI == "" {
		if existing, err := s.FindByTitle(ctx, paper.Title); err == nil {
			return existing, nil
		}
	}

	cols, err := encodePaper(paper)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if paper.ID == uuid.Nil {
		paper.ID = uuid.New()
	}
	if paper.CreatedAt.IsZero() {
		paper.CreatedAt = now
	}
	if paper.UpdatedAt.IsZero() {
		paper.UpdatedAt = now
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO papers (
			id, doi, title, title_key, authors, publication_date, journal, publisher,
			citation_count, is_open_access, is_preprint, badges, sources, metadata,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (doi) DO NOTHING`,
		paper.ID.String(),
		nullableDOI(paper.DOI),
		paper.Title,
		paper.TitleKey(),
		string(cols.authors),
		paper.PublicationDate.Format(time.DateOnly),
		paper.Journal,
		paper.Publisher,
		paper.CitationCount,
		paper.IsOpenAccess,
		paper.IsPreprint,
		string(cols.badges),
		string(cols.sources),
		string(cols.metadata),
		paper.CreatedAt.Format(time.RFC3339Nano),
		paper.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert paper: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return s.FindByDOI(ctx, paper.DOI)
	}
	return paper, nil
}

// UpdateMetrics overwrites the refreshable fields of an existing paper.
func (s *SQLiteStore) UpdateMetrics(ctx context.Context, paper *domain.Paper) (*domain.Paper, error) {
	if paper == nil || paper.ID == uuid.Nil {
		return nil, domain.NewValidationError("id", "paper ID is required")
	}
	cols, err := encodePaper(paper)
	if err != nil {
		return nil, err
	}
	if paper.UpdatedAt.IsZero() {
		paper.UpdatedAt = s.now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE papers SET citation_count = ?, is_open_access = ?, badges = ?, sources = ?, metadata = ?, updated_at = ?
		WHERE id = ?`,
		paper.CitationCount,
		paper.IsOpenAccess,
		string(cols.badges),
		string(cols.sources),
		string(cols.metadata),
		paper.UpdatedAt.Format(time.RFC3339Nano),
		paper.ID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update paper metrics: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, domain.NewNotFoundError("paper", paper.ID.String())
	}
	return paper, nil
}

// FindReport retrieves the cached report for a paper and query.
func (s *SQLiteStore) FindReport(ctx context.Context, paperID uuid.UUID, query string, reportType domain.ReportType) (*domain.PaperReport, error) {
	var (
		report              domain.PaperReport
		id, pid, typ, ctime string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, paper_id, doi, query, report_type, report, created_at
		FROM paper_reports WHERE paper_id = ? AND query = ? AND report_type = ?`,
		paperID.String(), strings.TrimSpace(query), string(reportType),
	).Scan(&id, &pid, &report.DOI, &report.Query, &typ, &report.Report, &ctime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFoundError("report", fmt.Sprintf("%s:%s", paperID, reportType))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	if report.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid report id %q: %w", id, err)
	}
	if report.PaperID, err = uuid.Parse(pid); err != nil {
		return nil, fmt.Errorf("invalid paper id %q: %w", pid, err)
	}
	report.Type = domain.ReportType(typ)
	report.CreatedAt, _ = time.Parse(time.RFC3339Nano, ctime)
	return &report, nil
}

// SaveReport inserts the report, replacing the text of an existing one for the same key.
func (s *SQLiteStore) SaveReport(ctx context.Context, report *domain.PaperReport) (*domain.PaperReport, error) {
	if report == nil || report.PaperID == uuid.Nil {
		return nil, domain.NewValidationError("paper_id", "paper ID is required")
	}
	report.Query = strings.TrimSpace(report.Query)
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = s.now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO paper_reports (id, paper_id, doi, query, report_type, report, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (paper_id, query, report_type) DO UPDATE SET report = excluded.report`,
		report.ID.String(),
		report.PaperID.String(),
		report.DOI,
		report.Query,
		string(report.Type),
		report.Report,
		report.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to save report: %w", err)
	}
	return s.FindReport(ctx, report.PaperID, report.Query, report.Type)
}

func scanSQLitePaper(row *sql.Row) (*domain.Paper, error) {
	var (
		p                              domain.Paper
		id, pubDate, created, updated  string
		doi                            sql.NullString
		authors, badges, sources, meta string
	)
	err := row.Scan(&id, &doi, &p.Title, &authors, &pubDate, &p.Journal, &p.Publisher,
		&p.CitationCount, &p.IsOpenAccess, &p.IsPreprint, &badges, &sources, &meta, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan paper: %w", err)
	}

	if p.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid paper id %q: %w", id, err)
	}
	p.DOI = doi.String
	if p.PublicationDate, err = time.Parse(time.DateOnly, pubDate); err != nil {
		return nil, fmt.Errorf("invalid publication date %q: %w", pubDate, err)
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	p.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)

	cols := paperColumns{
		authors:  []byte(authors),
		badges:   []byte(badges),
		sources:  []byte(sources),
		metadata: []byte(meta),
	}
	if err := cols.decodeInto(&p); err != nil {
		return nil, err
	}
	return &p, nil
}
