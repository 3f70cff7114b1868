package enrichment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/helixir/paper-enrichment-service/internal/domain"
	"github.com/helixir/paper-enrichment-service/internal/papersources/crossref"
	"github.com/helixir/paper-enrichment-service/internal/papersources/openalex"
	"github.com/helixir/paper-enrichment-service/internal/papersources/semanticscholar"
	"github.com/helixir/paper-enrichment-service/internal/papersources/unpaywall"
)

func ptr[T any](v T) *T { return &v }

// fakeGraph serves DOI lookups from a map and search pages from a function.
type fakeGraph struct {
	papers   map[string]*semanticscholar.Paper
	searchFn func(query string, offset, limit int) ([]semanticscholar.Paper, error)
	fetches  atomic.Int32
	searches atomic.Int32
	hook     func()
}

func (f *fakeGraph) FetchByDOI(_ context.Context, doi string) (*semanticscholar.Paper, bool) {
	f.fetches.Add(1)
	if f.hook != nil {
		f.hook()
	}
	p, ok := f.papers[doi]
	return p, ok
}

func (f *fakeGraph) SearchByQuery(_ context.Context, query string, offset, limit int) ([]semanticscholar.Paper, error) {
	f.searches.Add(1)
	if f.searchFn == nil {
		return nil, nil
	}
	return f.searchFn(query, offset, limit)
}

type fakeMetrics struct {
	works map[string]*openalex.Work
	calls atomic.Int32
	hook  func()
}

func (f *fakeMetrics) FetchByDOI(_ context.Context, doi string) (*openalex.Work, bool) {
	f.calls.Add(1)
	if f.hook != nil {
		f.hook()
	}
	w, ok := f.works[doi]
	return w, ok
}

type fakeRegistry struct {
	works map[string]*crossref.Work
	calls atomic.Int32
	hook  func()
}

func (f *fakeRegistry) FetchByDOI(_ context.Context, doi string) (*crossref.Work, bool) {
	f.calls.Add(1)
	if f.hook != nil {
		f.hook()
	}
	w, ok := f.works[doi]
	return w, ok
}

type fakeAccess struct {
	records map[string]*unpaywall.Record
	calls   atomic.Int32
	hook    func()
}

func (f *fakeAccess) FetchByDOI(_ context.Context, doi string) (*unpaywall.Record, bool) {
	f.calls.Add(1)
	if f.hook != nil {
		f.hook()
	}
	r, ok := f.records[doi]
	return r, ok
}

// searchPages returns full pages of DOI-bearing results for every offset.
func searchPages(prefix string) func(string, int, int) ([]semanticscholar.Paper, error) {
	return func(_ string, offset, limit int) ([]semanticscholar.Paper, error) {
		page := make([]semanticscholar.Paper, 0, limit)
		for i := offset; i < offset+limit; i++ {
			page = append(page, semanticscholar.Paper{
				PaperID:     fmt.Sprintf("s2-%d", i),
				Title:       fmt.Sprintf("Result %d", i),
				ExternalIDs: &semanticscholar.ExternalIDs{DOI: fmt.Sprintf("%s/%d", prefix, i)},
			})
		}
		return page, nil
	}
}

// memoryStore is an in-memory PaperStore and ReportStore.
type memoryStore struct {
	mu        sync.Mutex
	papers    map[string]*domain.Paper
	reports   map[string]*domain.PaperReport
	creates   int
	updates   int
	findErr   error
	createErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		papers:  make(map[string]*domain.Paper),
		reports: make(map[string]*domain.PaperReport),
	}
}

func (m *memoryStore) FindByDOI(_ context.Context, doi string) (*domain.Paper, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	p, ok := m.papers[doi]
	if !ok {
		return nil, domain.NewNotFoundError("paper", doi)
	}
	cp := *p
	return &cp, nil
}

func (m *memoryStore) Create(_ context.Context, paper *domain.Paper) (*domain.Paper, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.creates++
	if existing, ok := m.papers[paper.DOI]; ok {
		cp := *existing
		return &cp, nil
	}
	cp := *paper
	m.papers[paper.DOI] = &cp
	return paper, nil
}

func (m *memoryStore) UpdateMetrics(_ context.Context, paper *domain.Paper) (*domain.Paper, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.papers[paper.DOI]; !ok {
		return nil, domain.NewNotFoundError("paper", paper.DOI)
	}
	m.updates++
	cp := *paper
	m.papers[paper.DOI] = &cp
	return paper, nil
}

func reportKey(r *domain.PaperReport) string {
	return fmt.Sprintf("%s|%s|%s", r.PaperID, r.Query, r.Type)
}

func (m *memoryStore) FindReport(_ context.Context, paperID uuid.UUID, query string, reportType domain.ReportType) (*domain.PaperReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[reportKey(&domain.PaperReport{PaperID: paperID, Query: query, Type: reportType})]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r, nil
}

func (m *memoryStore) SaveReport(_ context.Context, report *domain.PaperReport) (*domain.PaperReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[reportKey(report)] = report
	return report, nil
}

type fakeGenerator struct {
	calls atomic.Int32
	fail  map[string]bool
}

func (g *fakeGenerator) Generate(_ context.Context, reportType domain.ReportType, query string, paper *domain.Paper) (string, error) {
	g.calls.Add(1)
	if g.fail[paper.DOI] {
		return "", errors.New("generator unavailable")
	}
	return fmt.Sprintf("%s:%s:%s", reportType, query, paper.Title), nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.PaperEnrichedEvent
	err    error
}

func (p *recordingPublisher) PublishPaperEnriched(_ context.Context, event domain.PaperEnrichedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

type countingRecorder struct {
	mu       sync.Mutex
	outcomes map[string]int
	lookups  map[string]int
	pages    int
	reports  map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{
		outcomes: make(map[string]int),
		lookups:  make(map[string]int),
		reports:  make(map[string]int),
	}
}

func (r *countingRecorder) RecordEnrichment(outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes[outcome]++
}

func (r *countingRecorder) RecordCacheLookup(result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookups[result]++
}

func (r *countingRecorder) RecordSearchPage() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pages++
}

func (r *countingRecorder) RecordBadges([]string) {}

func (r *countingRecorder) RecordReport(status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports[status]++
}
