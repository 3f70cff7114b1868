package repository

import (
	"context"
	"fmt"
)

// PostgresSchema creates the tables used by the Postgres repositories. Every statement
// is idempotent.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS papers (
	id               UUID PRIMARY KEY,
	doi              TEXT UNIQUE,
	title            TEXT NOT NULL,
	title_key        TEXT NOT NULL,
	authors          JSONB NOT NULL DEFAULT '[]',
	publication_date DATE NOT NULL,
	journal          TEXT NOT NULL,
	publisher        TEXT NOT NULL,
	citation_count   INTEGER NOT NULL DEFAULT 0,
	is_open_access   BOOLEAN NOT NULL DEFAULT FALSE,
	is_preprint      BOOLEAN NOT NULL DEFAULT FALSE,
	badges           JSONB NOT NULL DEFAULT '[]',
	sources          JSONB NOT NULL DEFAULT '[]',
	metadata         JSONB NOT NULL DEFAULT '{}',
	created_at       TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_papers_title_key ON papers (title_key);

CREATE TABLE IF NOT EXISTS paper_reports (
	id          UUID PRIMARY KEY,
	paper_id    UUID NOT NULL REFERENCES papers (id) ON DELETE CASCADE,
	doi         TEXT NOT NULL,
	query       TEXT NOT NULL,
	report_type TEXT NOT NULL,
	report      TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	UNIQUE (paper_id, query, report_type)
);
`

// EnsurePostgresSchema creates missing tables. It never alters existing ones.
func EnsurePostgresSchema(ctx context.Context, db DBTX) error {
	if _, err := db.Exec(ctx, PostgresSchema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}
