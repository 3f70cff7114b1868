package enrichment

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-enrichment-service/internal/badges"
	"github.com/helixir/paper-enrichment-service/internal/domain"
	"github.com/helixir/paper-enrichment-service/internal/papersources/openalex"
	"github.com/helixir/paper-enrichment-service/internal/papersources/semanticscholar"
	"github.com/helixir/paper-enrichment-service/internal/papersources/sourcetest"
	"github.com/helixir/paper-enrichment-service/internal/papersources/unpaywall"
)

type serviceFixture struct {
	sources   *fakeSources
	store     *memoryStore
	generator *fakeGenerator
	events    *recordingPublisher
	recorder  *countingRecorder
	svc       *Service
}

func newServiceFixture() *serviceFixture {
	f := &serviceFixture{
		sources:   newFakeSources(),
		store:     newMemoryStore(),
		generator: &fakeGenerator{fail: map[string]bool{}},
		events:    &recordingPublisher{},
		recorder:  newCountingRecorder(),
	}
	orch := NewOrchestrator(f.sources.Sources(), OrchestratorConfig{},
		WithClock(clock), WithSleeper(sourcetest.NoSleep), WithRecorder(f.recorder))
	f.svc = NewService(ServiceConfig{
		Orchestrator: orch,
		Papers:       f.store,
		Reports:      f.store,
		Generator:    f.generator,
		Events:       f.events,
		Metrics:      f.recorder,
		Now:          clock,
	})
	return f
}

func (f *serviceFixture) seedGraph(doi, title string) {
	f.sources.graph.papers[doi] = &semanticscholar.Paper{Title: title}
}

func TestService_EnrichByDOI_StoresAndPublishes(t *testing.T) {
	f := newServiceFixture()
	f.seedGraph("10.1/new", "Fresh Paper")

	paper, err := f.svc.EnrichByDOI(context.Background(), " DOI:10.1/NEW ")

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, paper.ID)
	assert.Equal(t, "10.1/new", paper.DOI)
	assert.Equal(t, fixedNow, paper.CreatedAt)
	assert.Equal(t, 1, f.store.creates)
	require.Len(t, f.events.events, 1)
	assert.Equal(t, paper.ID, f.events.events[0].PaperID)
	assert.False(t, f.events.events[0].Refreshed)
	assert.Equal(t, 1, f.recorder.lookups[CacheMiss])
}

func TestService_EnrichByDOI_CacheHitSkipsSources(t *testing.T) {
	f := newServiceFixture()
	stored := &domain.Paper{ID: uuid.New(), DOI: "10.1/cached", Title: "Cached"}
	f.store.papers[stored.DOI] = stored

	paper, err := f.svc.EnrichByDOI(context.Background(), "https://doi.org/10.1/CACHED")

	require.NoError(t, err)
	assert.Equal(t, stored.ID, paper.ID)
	assert.Equal(t, int32(0), f.sources.totalCalls())
	assert.Equal(t, 1, f.recorder.lookups[CacheHit])
	assert.Empty(t, f.events.events)
}

func TestService_EnrichByDOI_NoMetadataWritesNothing(t *testing.T) {
	f := newServiceFixture()

	_, err := f.svc.EnrichByDOI(context.Background(), "10.1/ghost")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNoMetadataFound))
	assert.Equal(t, 0, f.store.creates)
	assert.Empty(t, f.store.papers)
	assert.Empty(t, f.events.events)
}

func TestService_EnrichByDOI_InvalidDOI(t *testing.T) {
	f := newServiceFixture()

	for _, raw := range []string{"", "not a doi", "11.1/x"} {
		_, err := f.svc.EnrichByDOI(context.Background(), raw)
		require.Error(t, err, raw)
		assert.True(t, errors.Is(err, domain.ErrInvalidDOI), raw)
		assert.True(t, errors.Is(err, domain.ErrInvalidInput), raw)
	}
	assert.Equal(t, int32(0), f.sources.totalCalls())
}

func TestService_EnrichByDOI_StoreFailures(t *testing.T) {
	t.Run("lookup", func(t *testing.T) {
		f := newServiceFixture()
		f.store.findErr = errors.New("connection refused")

		_, err := f.svc.EnrichByDOI(context.Background(), "10.1/x")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
		assert.Equal(t, int32(0), f.sources.totalCalls())
	})

	t.Run("create", func(t *testing.T) {
		f := newServiceFixture()
		f.seedGraph("10.1/x", "X")
		f.store.createErr = errors.New("disk full")

		_, err := f.svc.EnrichByDOI(context.Background(), "10.1/x")
		require.Error(t, err)
		assert.Empty(t, f.events.events)
	})
}

func TestService_EnrichByDOI_ConcurrentCallsStoreOnce(t *testing.T) {
	f := newServiceFixture()
	f.seedGraph("10.1/race", "Race")

	var wg sync.WaitGroup
	ids := make([]uuid.UUID, 8)
	for i := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := f.svc.EnrichByDOI(context.Background(), "10.1/race")
			if err == nil {
				ids[i] = p.ID
			}
		}()
	}
	wg.Wait()

	require.Len(t, f.store.papers, 1)
	winner := f.store.papers["10.1/race"].ID
	for _, id := range ids {
		assert.Equal(t, winner, id)
	}
	assert.Len(t, f.events.events, 1)
}

func TestService_EnrichByDOI_PublishFailureIsIgnored(t *testing.T) {
	f := newServiceFixture()
	f.seedGraph("10.1/evt", "Event")
	f.events.err = errors.New("broker down")

	paper, err := f.svc.EnrichByDOI(context.Background(), "10.1/evt")

	require.NoError(t, err)
	assert.Equal(t, "Event", paper.Title)
}

func TestService_EnrichByQuery(t *testing.T) {
	f := newServiceFixture()
	f.sources.graph.searchFn = searchPages("10.6")
	for _, doi := range []string{"10.6/0", "10.6/1", "10.6/3"} {
		f.seedGraph(doi, "Paper "+doi)
	}
	f.store.papers["10.6/2"] = &domain.Paper{ID: uuid.New(), DOI: "10.6/2", Title: "Stored"}

	got, err := f.svc.EnrichByQuery(context.Background(), "  perovskite  ", 5)

	require.NoError(t, err)
	assert.Equal(t, "perovskite", got.Query)
	require.Len(t, got.Papers, 4)
	assert.Equal(t, "Stored", got.Papers[2].Title)
	assert.Equal(t, []string{"10.6/4"}, got.Failed)
	assert.Equal(t, 1, f.recorder.lookups[CacheHit])
}

func TestService_EnrichByQuery_Validation(t *testing.T) {
	f := newServiceFixture()

	tests := []struct {
		query string
		count int
	}{
		{query: "", count: 5},
		{query: "   ", count: 5},
		{query: "ok", count: 0},
		{query: "ok", count: MaxQueryCount + 1},
	}
	for _, tt := range tests {
		_, err := f.svc.EnrichByQuery(context.Background(), tt.query, tt.count)
		assert.True(t, errors.Is(err, domain.ErrInvalidInput), "%q/%d", tt.query, tt.count)
	}
	assert.Equal(t, int32(0), f.sources.graph.searches.Load())
}

func TestService_RefreshMetrics(t *testing.T) {
	f := newServiceFixture()
	doi := "10.1/refresh"
	created := fixedNow.AddDate(-1, 0, 0)
	f.store.papers[doi] = &domain.Paper{
		ID:              uuid.New(),
		DOI:             doi,
		Title:           "Stored Title",
		PublicationDate: time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC),
		CitationCount:   3,
		CreatedAt:       created,
	}
	f.sources.metrics.works[doi] = &openalex.Work{
		DisplayName:  "Other Title",
		CitedByCount: ptr(1200),
		FWCI:         ptr(2.4),
	}

	paper, err := f.svc.RefreshMetrics(context.Background(), doi)

	require.NoError(t, err)
	assert.Equal(t, "Stored Title", paper.Title)
	assert.Equal(t, 1200, paper.CitationCount)
	assert.Equal(t, 2.4, paper.Metrics.FWCI)
	assert.Equal(t, created, paper.CreatedAt)
	assert.Equal(t, fixedNow, paper.UpdatedAt)
	assert.Contains(t, paper.Badges, string(badges.HighlyCited))
	assert.Contains(t, paper.Badges, string(badges.Outdated))
	assert.Equal(t, 1, f.store.updates)
	require.Len(t, f.events.events, 1)
	assert.True(t, f.events.events[0].Refreshed)
}

func TestService_RefreshMetrics_OpenAccess(t *testing.T) {
	tests := []struct {
		name       string
		storedOA   bool
		access     *unpaywall.Record
		expectedOA bool
	}{
		{name: "access source revokes", storedOA: true, access: &unpaywall.Record{IsOA: ptr(false)}, expectedOA: false},
		{name: "access source grants", storedOA: false, access: &unpaywall.Record{IsOA: ptr(true)}, expectedOA: true},
		{name: "access source absent keeps stored flag", storedOA: true, access: nil, expectedOA: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServiceFixture()
			doi := "10.1/oa"
			f.store.papers[doi] = &domain.Paper{
				ID:              uuid.New(),
				DOI:             doi,
				Title:           "Stored Title",
				PublicationDate: time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC),
				IsOpenAccess:    tt.storedOA,
				Sources:         []domain.SourceType{domain.SourceTypeCrossref, domain.SourceTypeUnpaywall},
			}
			f.sources.metrics.works[doi] = &openalex.Work{CitedByCount: ptr(10)}
			if tt.access != nil {
				f.sources.access.records[doi] = tt.access
			}

			paper, err := f.svc.RefreshMetrics(context.Background(), doi)

			require.NoError(t, err)
			assert.Equal(t, tt.expectedOA, paper.IsOpenAccess)
			assert.Equal(t, tt.expectedOA, f.store.papers[doi].IsOpenAccess)
			assert.Equal(t, tt.expectedOA, slices.Contains(paper.Badges, string(badges.OpenAccess)))
			assert.Contains(t, paper.Sources, domain.SourceTypeOpenAlex)
			assert.Contains(t, paper.Sources, domain.SourceTypeCrossref)
		})
	}
}

func TestService_RefreshMetrics_UnknownDOI(t *testing.T) {
	f := newServiceFixture()

	_, err := f.svc.RefreshMetrics(context.Background(), "10.1/unknown")

	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.Equal(t, int32(0), f.sources.totalCalls())
}

func TestService_Lookup(t *testing.T) {
	f := newServiceFixture()
	f.store.papers["10.1/here"] = &domain.Paper{DOI: "10.1/here"}

	p, err := f.svc.Lookup(context.Background(), "doi:10.1/HERE")
	require.NoError(t, err)
	assert.Equal(t, "10.1/here", p.DOI)

	_, err = f.svc.Lookup(context.Background(), "10.1/absent")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.Equal(t, int32(0), f.sources.totalCalls())
}

func TestService_GenerateReports(t *testing.T) {
	f := newServiceFixture()
	papers := []*domain.Paper{
		{ID: uuid.New(), DOI: "10.1/a", Title: "A"},
		{ID: uuid.New(), DOI: "10.1/b", Title: "B"},
	}
	f.generator.fail["10.1/b"] = true

	reports := f.svc.GenerateReports(context.Background(), "q", papers)

	assert.Equal(t, map[string]string{"10.1/a": "search:q:A", "10.1/b": ""}, reports)
	assert.Equal(t, 1, f.recorder.reports[ReportFailed])

	// Second call serves the successful report from the cache.
	_ = f.svc.GenerateReports(context.Background(), "q", papers[:1])
	assert.Equal(t, int32(2), f.generator.calls.Load())
	assert.Equal(t, 1, f.recorder.reports[ReportCached])
}

func TestService_GenerateReports_NoGenerator(t *testing.T) {
	svc := NewService(ServiceConfig{Orchestrator: NewOrchestrator(Sources{}, OrchestratorConfig{}), Papers: newMemoryStore()})

	assert.Empty(t, svc.GenerateReports(context.Background(), "q", []*domain.Paper{{DOI: "10.1/a"}}))

	_, err := svc.CiteCheck(context.Background(), "claim", "10.1/a")
	assert.True(t, errors.Is(err, domain.ErrServiceUnavailable))
}

func TestService_CiteCheck(t *testing.T) {
	f := newServiceFixture()
	f.seedGraph("10.1/cite", "Citable")

	got, err := f.svc.CiteCheck(context.Background(), "water is wet", "10.1/cite")
	require.NoError(t, err)
	assert.Equal(t, "citeCheck:water is wet:Citable", got.Report)
	assert.Equal(t, "10.1/cite", got.Paper.DOI)

	again, err := f.svc.CiteCheck(context.Background(), "water is wet", "10.1/cite")
	require.NoError(t, err)
	assert.Equal(t, got.Report, again.Report)
	assert.Equal(t, int32(1), f.generator.calls.Load())

	_, err = f.svc.CiteCheck(context.Background(), " ", "10.1/cite")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}
