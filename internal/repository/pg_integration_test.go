//go:build integration

package repository

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/helixir/paper-enrichment-service/internal/domain"
)

func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("papers"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(ctr) })

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, EnsurePostgresSchema(ctx, pool))
	return pool
}

func TestPgRepositories_Integration(t *testing.T) {
	ctx := context.Background()
	pool := startPostgres(t)
	papers := NewPgPaperRepository(pool)
	reports := NewPgReportRepository(pool)

	paper := newTestPaper()
	created, err := papers.Create(ctx, paper)
	require.NoError(t, err)

	found, err := papers.FindByDOI(ctx, paper.DOI)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, paper.Metrics, found.Metrics)
	assert.Equal(t, paper.PublicationDate, found.PublicationDate.UTC())

	// Concurrent creates of the same DOI all resolve to the stored row.
	var wg sync.WaitGroup
	ids := make([]uuid.UUID, 5)
	for i := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := papers.Create(ctx, newTestPaper())
			if err == nil {
				ids[i] = p.ID
			}
		}()
	}
	wg.Wait()
	for _, id := range ids {
		assert.Equal(t, created.ID, id)
	}

	found.CitationCount = 999
	_, err = papers.UpdateMetrics(ctx, found)
	require.NoError(t, err)
	refreshed, err := papers.FindByDOI(ctx, paper.DOI)
	require.NoError(t, err)
	assert.Equal(t, 999, refreshed.CitationCount)

	_, err = reports.SaveReport(ctx, &domain.PaperReport{PaperID: created.ID, DOI: paper.DOI, Query: "q", Type: domain.ReportTypeSearch, Report: "first"})
	require.NoError(t, err)
	_, err = reports.SaveReport(ctx, &domain.PaperReport{PaperID: created.ID, DOI: paper.DOI, Query: "q", Type: domain.ReportTypeSearch, Report: "second"})
	require.NoError(t, err)
	report, err := reports.FindReport(ctx, created.ID, "q", domain.ReportTypeSearch)
	require.NoError(t, err)
	assert.Equal(t, "second", report.Report)

	_, err = papers.FindByDOI(ctx, "10.1/none")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
