package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-enrichment-service/internal/domain"
	"github.com/helixir/paper-enrichment-service/internal/repository"
)

// setupCLI points the CLI at a fresh SQLite cache seeded with papers and returns the
// cache path. Every source is disabled so no test reaches the network.
func setupCLI(t *testing.T, papers ...*domain.Paper) string {
	t.Helper()

	t.Setenv("PAPERENRICH_CONTACT_EMAIL", "ops@example.org")
	t.Setenv("PAPERENRICH_SOURCES_SEMANTIC_SCHOLAR_ENABLED", "false")
	t.Setenv("PAPERENRICH_SOURCES_OPENALEX_ENABLED", "false")
	t.Setenv("PAPERENRICH_SOURCES_CROSSREF_ENABLED", "false")
	t.Setenv("PAPERENRICH_SOURCES_UNPAYWALL_ENABLED", "false")
	t.Setenv("PAPERENRICH_LLM_PROVIDER", "static")

	path := filepath.Join(t.TempDir(), "cache.db")
	store, err := repository.OpenSQLiteStore(context.Background(), path)
	require.NoError(t, err)
	for _, p := range papers {
		_, err := store.Create(context.Background(), p)
		require.NoError(t, err)
	}
	require.NoError(t, store.Close())

	var buf bytes.Buffer
	stdout = &buf
	t.Cleanup(func() {
		stdout = os.Stdout
		refreshFlag = false
		searchReports = false
		searchCount = 10
		dbPath = ""
	})
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf, ok := stdout.(*bytes.Buffer)
	require.True(t, ok)
	buf.Reset()

	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func cachedPaper() *domain.Paper {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return &domain.Paper{
		ID:              uuid.New(),
		DOI:             "10.1234/cached.paper",
		Title:           "A Cached Paper",
		Authors:         []string{"Ada Lovelace"},
		PublicationDate: time.Date(2015, 3, 1, 0, 0, 0, 0, time.UTC),
		Journal:         "Test Journal",
		Publisher:       "Test Publisher",
		Language:        "en",
		Type:            "article",
		CitationCount:   3,
		IsOpenAccess:    true,
		Badges:          []string{"Open Access"},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func TestDOICommand_CacheHit(t *testing.T) {
	path := setupCLI(t, cachedPaper())

	out, err := runCLI(t, "doi", "https://doi.org/10.1234/CACHED.PAPER", "--db", path)
	require.NoError(t, err)

	var paper domain.Paper
	require.NoError(t, json.Unmarshal([]byte(out), &paper))
	assert.Equal(t, "10.1234/cached.paper", paper.DOI)
	assert.Equal(t, "A Cached Paper", paper.Title)
}

func TestDOICommand_NoSources(t *testing.T) {
	path := setupCLI(t)

	_, err := runCLI(t, "doi", "10.9999/unknown", "--db", path)
	require.Error(t, err)
	assert.Equal(t, ExitNotFound, exitCode(err))
}

func TestDOICommand_InvalidDOI(t *testing.T) {
	path := setupCLI(t)

	_, err := runCLI(t, "doi", "not-a-doi", "--db", path)
	require.Error(t, err)
	assert.Equal(t, ExitInvalidInput, exitCode(err))
}

func TestBadgesCommand(t *testing.T) {
	path := setupCLI(t, cachedPaper())

	out, err := runCLI(t, "badges", "10.1234/cached.paper", "--db", path)
	require.NoError(t, err)

	var got badgesOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, []string{"Open Access"}, got.Stored)
	assert.Contains(t, got.Current, "Open Access")
	assert.Contains(t, got.Current, "Low Citation")
}

func TestBadgesCommand_NotCached(t *testing.T) {
	path := setupCLI(t)

	_, err := runCLI(t, "badges", "10.1234/missing", "--db", path)
	require.Error(t, err)
	assert.Equal(t, ExitNotFound, exitCode(err))
}

func TestCiteCheckCommand_StaticProvider(t *testing.T) {
	path := setupCLI(t, cachedPaper())

	out, err := runCLI(t, "citecheck", "10.1234/cached.paper", "caching", "is", "useful", "--db", path)
	require.NoError(t, err)

	var got struct {
		Paper  domain.Paper `json:"paper"`
		Report string       `json:"report"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "10.1234/cached.paper", got.Paper.DOI)
	assert.Contains(t, got.Report, "caching is useful")
	assert.Contains(t, got.Report, "A Cached Paper")
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitSuccess},
		{domain.NewValidationError("count", "too large"), ExitInvalidInput},
		{fmt.Errorf("parse: %w", domain.ErrInvalidDOI), ExitInvalidInput},
		{domain.NewNoMetadataError("10.1/x"), ExitNotFound},
		{domain.NewNotFoundError("paper", "10.1/x"), ExitNotFound},
		{fmt.Errorf("search: %w", domain.ErrSourceUnavailable), ExitSourceFailure},
		{errors.New("boom"), ExitError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, exitCode(tt.err), "%v", tt.err)
	}
}
