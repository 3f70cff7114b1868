package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-enrichment-service/internal/badges"
	"github.com/helixir/paper-enrichment-service/internal/domain"
	"github.com/helixir/paper-enrichment-service/internal/papersources/crossref"
	"github.com/helixir/paper-enrichment-service/internal/papersources/openalex"
	"github.com/helixir/paper-enrichment-service/internal/papersources/semanticscholar"
	"github.com/helixir/paper-enrichment-service/internal/papersources/unpaywall"
)

var now = time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func dateParts(y, m, d int) *crossref.DateParts {
	return &crossref.DateParts{DateParts: [][]*int{{ptr(y), ptr(m), ptr(d)}}}
}

func fullBundle() Bundle {
	return Bundle{
		DOI: "https://doi.org/10.1038/S41586-020-2649-2",
		Graph: &semanticscholar.Paper{
			PaperID:  "abc123",
			Title:    "Graph Title",
			Abstract: ptr("graph abstract"),
			Venue:    "Nature",
			Authors:  []semanticscholar.Author{{Name: "G One"}},
		},
		Metrics: &openalex.Work{
			ID:           "https://openalex.org/W1",
			DisplayName:  "Metrics Title",
			Type:         "article",
			Language:     "en",
			CitedByCount: ptr(1500),
			FWCI:         ptr(3.2),
			CitationNormalizedPercentile: &openalex.Percentile{
				Value:            ptr(0.995),
				IsInTop1Percent:  true,
				IsInTop10Percent: true,
			},
			InstitutionsDistinctCount: ptr(4),
			CountriesDistinctCount:    ptr(3),
			HasFulltext:               true,
			PrimaryLocation: &openalex.Location{Source: &openalex.Source{
				DisplayName:          "Nature (Host)",
				Type:                 "journal",
				ISSN:                 []string{"0028-0836"},
				HostOrganizationName: "Springer Nature",
			}},
			Authorships: []openalex.Authorship{
				{Author: openalex.AuthorInfo{DisplayName: "Ada Lovelace"}, Institutions: []openalex.Institution{{DisplayName: "UCL", CountryCode: "GB"}}, Countries: []string{"GB"}},
				{Author: openalex.AuthorInfo{DisplayName: "Alan Turing"}},
			},
			AbstractInvertedIndex: map[string][]int{"metrics": {0}, "abstract": {1}},
			Topics: []openalex.Topic{{
				ID:          "T1",
				DisplayName: "Array programming",
				Score:       0.9,
				Field:       &openalex.TopicLevel{DisplayName: "Computer Science"},
			}},
			Grants:       []openalex.Grant{{Funder: "F1", FunderDisplayName: "NSF", AwardID: "123"}},
			Keywords:     []openalex.Keyword{{DisplayName: "numpy"}},
			CountsByYear: []openalex.YearCount{{Year: 2022, CitedByCount: 5}, {Year: 2021, CitedByCount: 3}},
			Biblio:       &openalex.Biblio{Volume: "585", Issue: "7825", FirstPage: "357", LastPage: "362"},
			RelatedWorks: []string{"W1", "W2", "W3", "W4", "W5", "W6", "W7", "W8", "W9", "W10", "W11", "W12"},
		},
		Registry: &crossref.Work{
			Title:          []string{"Array programming with NumPy"},
			ContainerTitle: []string{"Nature"},
			Author:         []crossref.Author{{Given: "Charles R.", Family: "Harris"}, {Given: "K. Jarrod", Family: "Millman"}},
			Published:      dateParts(2020, 9, 16),
			Created:        dateParts(2020, 9, 1),
			Type:           "journal-article",
			Publisher:      "Springer Science and Business Media LLC",
			URL:            "http://dx.doi.org/10.1038/s41586-020-2649-2",
			Volume:         "585",
			Page:           "357-362",
			License:        []crossref.License{{URL: "https://creativecommons.org/licenses/by/4.0"}},
		},
		Access: &unpaywall.Record{
			IsOA: ptr(true),
			BestOALocation: &unpaywall.Location{
				URLForPDF: "https://www.nature.com/articles/s41586-020-2649-2.pdf",
				License:   "cc-by",
			},
		},
	}
}

func TestNormalize_PriorityChains(t *testing.T) {
	p := Normalize(fullBundle(), now)

	assert.Equal(t, "10.1038/s41586-020-2649-2", p.DOI)
	assert.Equal(t, "Array programming with NumPy", p.Title)
	assert.Equal(t, []string{"Charles R. Harris", "K. Jarrod Millman"}, p.Authors)
	assert.Equal(t, "Nature", p.Journal)
	assert.Equal(t, badges.VenueRankHigh, p.VenueRank)
	assert.Equal(t, "Springer Nature", p.Publisher)
	assert.Equal(t, time.Date(2020, 9, 16, 0, 0, 0, 0, time.UTC), p.PublicationDate)
	assert.False(t, p.PublicationDateEstimated)
	assert.Equal(t, "metrics abstract", p.Abstract)
	assert.Equal(t, 1500, p.CitationCount)
	assert.True(t, p.IsOpenAccess)
	assert.False(t, p.IsPreprint)
	assert.Equal(t, "article", p.Type)
	assert.Equal(t, "https://www.nature.com/articles/s41586-020-2649-2.pdf", p.PDFLink)
	assert.Equal(t, "http://dx.doi.org/10.1038/s41586-020-2649-2", p.SourceLink)
	assert.Equal(t, "https://creativecommons.org/licenses/by/4.0", p.License)
	assert.Equal(t, "585", p.Volume)
	assert.Equal(t, "7825", p.Issue)
	assert.Equal(t, "357-362", p.Pages)
	assert.Equal(t, []string{"0028-0836"}, p.ISSN)
	assert.Equal(t, "journal", p.VenueType)
	assert.Equal(t, "abc123", p.SemanticScholarID)
	assert.Equal(t, domain.AllSourceTypes, p.Sources)

	assert.Equal(t, 3.2, p.Metrics.FWCI)
	assert.Equal(t, 0.995, p.Metrics.CitationPercentile)
	assert.True(t, p.Metrics.IsTop1Percent)
	assert.Equal(t, 2, p.Metrics.AuthorCount)
	assert.Equal(t, 4, p.Metrics.InstitutionCount)
	assert.Equal(t, 3, p.Metrics.CountryCount)
	assert.True(t, p.Metrics.HasFulltext)
	assert.Equal(t, []domain.YearCount{{Year: 2021, Count: 3}, {Year: 2022, Count: 5}}, p.Metrics.CitationsByYear)

	require.Len(t, p.Topics, 1)
	assert.Equal(t, "Computer Science", p.Topics[0].Field)
	assert.Equal(t, []domain.Funder{{ID: "F1", Name: "NSF", AwardID: "123"}}, p.Funders)
	assert.Equal(t, []string{"numpy"}, p.Keywords)
	assert.Equal(t, []domain.AuthorInstitution{{Author: "Ada Lovelace", Institutions: []string{"UCL"}, Countries: []string{"GB"}}}, p.AuthorInstitutions)
	assert.Len(t, p.RelatedWorks, MaxLinkedWorks)
	assert.Nil(t, p.ReferencedWorks)
}

func TestNormalize_SingleSourceDefaults(t *testing.T) {
	full := fullBundle()
	bundles := map[string]Bundle{
		"graph only":    {DOI: "10.1/x", Graph: full.Graph},
		"metrics only":  {DOI: "10.1/x", Metrics: full.Metrics},
		"registry only": {DOI: "10.1/x", Registry: full.Registry},
		"access only":   {DOI: "10.1/x", Access: full.Access},
	}

	for name, b := range bundles {
		t.Run(name, func(t *testing.T) {
			p := Normalize(b, now)

			require.NotNil(t, p)
			assert.NotEmpty(t, p.Title)
			assert.NotEmpty(t, p.Journal)
			assert.NotEmpty(t, p.Publisher)
			assert.NotEmpty(t, p.Language)
			assert.NotEmpty(t, p.Type)
			assert.NotNil(t, p.Authors)
			assert.False(t, p.PublicationDate.IsZero())
			assert.GreaterOrEqual(t, p.CitationCount, 0)
			assert.Len(t, p.Sources, 1)

			set := badges.Compute(badges.FieldsFromPaper(p), now)
			assert.False(t, set.Has(badges.InvalidDate))
		})
	}

	access := Normalize(bundles["access only"], now)
	assert.Equal(t, domain.UntitledPaper, access.Title)
	assert.Equal(t, domain.UnknownJournal, access.Journal)
	assert.Equal(t, 0, access.CitationCount)
	assert.Empty(t, access.Authors)
	assert.True(t, access.PublicationDateEstimated)
	assert.Equal(t, "cc-by", access.License)

	graph := Normalize(bundles["graph only"], now)
	assert.Equal(t, "Graph Title", graph.Title)
	assert.Equal(t, "graph abstract", graph.Abstract)
	assert.Equal(t, []string{"G One"}, graph.Authors)
	assert.Equal(t, domain.DefaultWorkType, graph.Type)
	assert.Equal(t, domain.DefaultLanguage, graph.Language)
	assert.Equal(t, 1, graph.Metrics.AuthorCount)

	metrics := Normalize(bundles["metrics only"], now)
	assert.Equal(t, "Metrics Title", metrics.Title)
	assert.Equal(t, "Nature (Host)", metrics.Journal)
	assert.Equal(t, []string{"Ada Lovelace", "Alan Turing"}, metrics.Authors)
	assert.Equal(t, "https://openalex.org/W1", metrics.SourceLink)
	assert.Equal(t, "357-362", metrics.Pages)
}

// Graph and Access answer; Registry and Metrics are Absent.
func TestNormalize_GraphAndAccessScenario(t *testing.T) {
	b := Bundle{
		DOI:    "10.1/example",
		Graph:  &semanticscholar.Paper{PaperID: "s2", Title: "Example", Venue: "Some Venue", Year: ptr(2019), CitationCount: ptr(42)},
		Access: &unpaywall.Record{IsOA: ptr(true)},
	}

	p := Normalize(b, now)

	assert.Equal(t, "Unknown", p.Journal)
	assert.Equal(t, 0, p.CitationCount)
	assert.True(t, p.IsOpenAccess)
	assert.True(t, p.PublicationDateEstimated)
	assert.Equal(t, []domain.SourceType{domain.SourceTypeSemanticScholar, domain.SourceTypeUnpaywall}, p.Sources)

	set := badges.Compute(badges.FieldsFromPaper(p), now)
	for _, tier := range []badges.Badge{badges.HighlyCited, badges.WellCited, badges.LowCitation, badges.NoCitations} {
		assert.False(t, set.Has(tier), "unexpected %q", tier)
	}
	assert.True(t, set.Has(badges.Recent) != set.Has(badges.Outdated))
	assert.True(t, set.Has(badges.OpenAccess))

	b.Access = &unpaywall.Record{IsOA: ptr(false)}
	assert.False(t, Normalize(b, now).IsOpenAccess)
}

func TestNormalize_TitleAndJournalFallbacks(t *testing.T) {
	b := Bundle{
		Graph:    &semanticscholar.Paper{Title: "Graph Title"},
		Registry: &crossref.Work{Title: []string{"  "}, ShortContainerTitle: []string{"Nat."}},
	}

	p := Normalize(b, now)
	assert.Equal(t, "Graph Title", p.Title)
	assert.Equal(t, "Nat.", p.Journal)
}

func TestNormalize_DateFallbacks(t *testing.T) {
	tests := []struct {
		name      string
		registry  *crossref.Work
		expected  time.Time
		estimated bool
	}{
		{
			name:     "published",
			registry: &crossref.Work{Published: dateParts(2018, 4, 2), Created: dateParts(2017, 1, 1)},
			expected: time.Date(2018, 4, 2, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "year only",
			registry: &crossref.Work{Published: &crossref.DateParts{DateParts: [][]*int{{ptr(2015)}}}},
			expected: time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "invalid published falls to created",
			registry: &crossref.Work{Published: dateParts(2018, 13, 2), Created: dateParts(2017, 5, 6)},
			expected: time.Date(2017, 5, 6, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "nothing resolvable",
			registry:  &crossref.Work{Published: &crossref.DateParts{DateParts: [][]*int{{nil}}}},
			expected:  time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
			estimated: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Normalize(Bundle{Registry: tt.registry}, now)
			assert.Equal(t, tt.expected, p.PublicationDate)
			assert.Equal(t, tt.estimated, p.PublicationDateEstimated)
		})
	}
}

func TestNormalize_Preprint(t *testing.T) {
	assert.True(t, Normalize(Bundle{Registry: &crossref.Work{Type: "posted-content"}}, now).IsPreprint)
	assert.True(t, Normalize(Bundle{Metrics: &openalex.Work{Type: "posted_content"}}, now).IsPreprint)
	assert.False(t, Normalize(Bundle{Registry: &crossref.Work{Type: "journal-article"}}, now).IsPreprint)
}

func TestNormalize_CountriesFromAuthorships(t *testing.T) {
	m := &openalex.Work{Authorships: []openalex.Authorship{
		{Countries: []string{"US", "gb"}},
		{Institutions: []openalex.Institution{{CountryCode: "GB"}, {CountryCode: "DE"}}},
	}}

	p := Normalize(Bundle{Metrics: m}, now)
	assert.Equal(t, 3, p.Metrics.CountryCount)
}

func TestBundle_EmptyAndSources(t *testing.T) {
	assert.True(t, Bundle{DOI: "10.1/x"}.Empty())
	assert.Empty(t, Bundle{}.Sources())

	b := Bundle{Registry: &crossref.Work{}}
	assert.False(t, b.Empty())
	assert.Equal(t, []domain.SourceType{domain.SourceTypeCrossref}, b.Sources())
}
