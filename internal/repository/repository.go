// Package repository persists canonical papers and generated reports.
//
// # Overview
//
// Papers are keyed by DOI. Papers without a DOI are identified by their case-folded
// title. The core bibliographic fields live in columns; everything else (metrics,
// topics, funders, links) is stored as one JSON metadata document, so adding a field
// to domain.Paper does not require a schema change.
//
// Two implementations share the same contracts:
//
//   - PgPaperRepository / PgReportRepository: PostgreSQL over pgx, used by the server and worker
//   - SQLiteStore: a single-file cache used by the CLI
//
// # Idempotency
//
// Create never overwrites. When the DOI already exists the stored row is returned
// unchanged, which makes concurrent enrichment of the same DOI safe.
//
// # Error Handling
//
//   - domain.ErrNotFound: no row matches
//   - domain.ErrInvalidInput: the paper has neither DOI nor title
//
// # Transactions
//
// The Postgres repositories accept a DBTX, so a pgx.Tx from database.DB.WithTransaction
// can be passed in place of the pool.
package repository

import (
	"github.com/helixir/paper-enrichment-service/internal/database"
)

// DBTX is the database interface supporting both pool and transaction contexts.
type DBTX = database.DBTX
