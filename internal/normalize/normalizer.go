package normalize

import (
	"sort"
	"strings"
	"time"

	"github.com/helixir/paper-enrichment-service/internal/badges"
	"github.com/helixir/paper-enrichment-service/internal/domain"
	"github.com/helixir/paper-enrichment-service/internal/papersources/crossref"
	"github.com/helixir/paper-enrichment-service/internal/papersources/openalex"
)

// MaxLinkedWorks bounds the related and referenced work lists.
const MaxLinkedWorks = 10

// Normalize merges b into a canonical paper. It is pure: now is only used as the
// publication date of last resort. Identity, badges and timestamps are left to the caller.
func Normalize(b Bundle, now time.Time) *domain.Paper {
	g, m, r, a := b.Graph, b.Metrics, b.Registry, b.Access

	p := &domain.Paper{
		DOI:          domain.NormalizeDOI(b.DOI),
		Title:        resolveTitle(b),
		Authors:      resolveAuthors(b),
		Journal:      resolveJournal(b),
		Publisher:    resolvePublisher(b),
		Abstract:     resolveAbstract(b),
		Language:     domain.DefaultLanguage,
		Type:         resolveType(b),
		IsOpenAccess: a.OpenAccess(),
		IsPreprint:   isPreprint(b),
		PDFLink:      a.PDFURL(),
		Sources:      b.Sources(),
	}

	p.PublicationDate, p.PublicationDateEstimated = resolveDate(b, now)
	p.VenueRank = badges.VenueRank(p.Journal)

	if g != nil {
		p.SemanticScholarID = g.PaperID
	}

	if r != nil {
		p.Volume = r.Volume
		p.Issue = r.Issue
		p.Pages = r.Page
		p.ISSN = r.ISSN
		p.License = r.LicenseURL()
		p.SourceLink = r.URL
	}

	if m != nil {
		if m.CitedByCount != nil {
			p.CitationCount = *m.CitedByCount
		}
		if m.Language != "" {
			p.Language = m.Language
		}
		if m.Biblio != nil {
			p.Volume = firstNonEmpty(p.Volume, m.Biblio.Volume)
			p.Issue = firstNonEmpty(p.Issue, m.Biblio.Issue)
			p.Pages = firstNonEmpty(p.Pages, m.Biblio.Pages())
		}
		if src := m.HostSource(); src != nil {
			p.VenueType = src.Type
			if len(p.ISSN) == 0 {
				p.ISSN = src.ISSN
			}
		}
		p.SourceLink = firstNonEmpty(p.SourceLink, m.ID)
		p.Metrics = resolveMetrics(m)
		p.Topics = topics(m.Topics)
		p.Funders = funders(m.Grants)
		p.Keywords = keywords(m.Keywords)
		p.AuthorInstitutions = authorInstitutions(m.Authorships)
		p.RelatedWorks = limit(m.RelatedWorks, MaxLinkedWorks)
		p.ReferencedWorks = limit(m.ReferencedWorks, MaxLinkedWorks)
	}

	p.License = firstNonEmpty(p.License, a.License())
	if p.Metrics.AuthorCount == 0 {
		p.Metrics.AuthorCount = len(p.Authors)
	}

	return p
}

func resolveTitle(b Bundle) string {
	var registry, graph, metrics string
	if b.Registry != nil {
		registry = crossref.First(b.Registry.Title)
	}
	if b.Graph != nil {
		graph = b.Graph.Title
	}
	if b.Metrics != nil {
		metrics = firstNonEmpty(b.Metrics.DisplayName, b.Metrics.Title)
	}
	return firstNonEmpty(registry, graph, metrics, domain.UntitledPaper)
}

func resolveJournal(b Bundle) string {
	var container, short string
	if b.Registry != nil {
		container = crossref.First(b.Registry.ContainerTitle)
		short = crossref.First(b.Registry.ShortContainerTitle)
	}
	return firstNonEmpty(container, short, b.Metrics.HostVenueName(), domain.UnknownJournal)
}

func resolvePublisher(b Bundle) string {
	var host, registry, access string
	if src := b.Metrics.HostSource(); src != nil {
		host = src.HostOrganizationName
	}
	if b.Registry != nil {
		registry = b.Registry.Publisher
	}
	if b.Access != nil {
		access = b.Access.Publisher
	}
	return firstNonEmpty(host, registry, access, domain.UnknownPublisher)
}

func resolveType(b Bundle) string {
	var metrics, registry string
	if b.Metrics != nil {
		metrics = b.Metrics.Type
	}
	if b.Registry != nil {
		registry = b.Registry.Type
	}
	return firstNonEmpty(metrics, registry, domain.DefaultWorkType)
}

func resolveAuthors(b Bundle) []string {
	if b.Registry != nil {
		names := make([]string, 0, len(b.Registry.Author))
		for _, author := range b.Registry.Author {
			if name := author.FullName(); name != "" {
				names = append(names, name)
			}
		}
		if len(names) > 0 {
			return names
		}
	}
	if b.Metrics != nil {
		names := make([]string, 0, len(b.Metrics.Authorships))
		for _, as := range b.Metrics.Authorships {
			if name := strings.TrimSpace(as.Author.DisplayName); name != "" {
				names = append(names, name)
			}
		}
		if len(names) > 0 {
			return names
		}
	}
	if names := b.Graph.AuthorNames(); len(names) > 0 {
		return names
	}
	return []string{}
}

// resolveDate walks registry published, then registry created, then now. The second
// return value is true when now was used.
func resolveDate(b Bundle, now time.Time) (time.Time, bool) {
	if b.Registry != nil {
		for _, parts := range []*crossref.DateParts{b.Registry.Published, b.Registry.Created} {
			if t, ok := parts.Time(); ok {
				return t, false
			}
		}
	}
	y, mo, d := now.UTC().Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC), true
}

func resolveAbstract(b Bundle) string {
	var inverted string
	if b.Metrics != nil {
		inverted = ReconstructAbstract(b.Metrics.AbstractInvertedIndex)
	}
	return firstNonEmpty(inverted, b.Registry.PlainAbstract(), b.Graph.AbstractText())
}

var preprintTypes = map[string]bool{
	"posted-content": true,
	"posted_content": true,
	"preprint":       true,
}

func isPreprint(b Bundle) bool {
	if b.Registry != nil && preprintTypes[strings.ToLower(b.Registry.Type)] {
		return true
	}
	return b.Metrics != nil && preprintTypes[strings.ToLower(b.Metrics.Type)]
}

func resolveMetrics(m *openalex.Work) domain.PaperMetrics {
	metrics := domain.PaperMetrics{
		AuthorCount: len(m.Authorships),
		IsRetracted: m.IsRetracted,
		HasFulltext: m.HasFulltext,
	}
	if m.FWCI != nil {
		metrics.FWCI = *m.FWCI
	}
	if pct := m.CitationNormalizedPercentile; pct != nil {
		if pct.Value != nil {
			metrics.CitationPercentile = *pct.Value
		}
		metrics.IsTop1Percent = pct.IsInTop1Percent
		metrics.IsTop10Percent = pct.IsInTop10Percent
	}
	if m.InstitutionsDistinctCount != nil {
		metrics.InstitutionCount = *m.InstitutionsDistinctCount
	}
	if m.CountriesDistinctCount != nil {
		metrics.CountryCount = *m.CountriesDistinctCount
	} else {
		metrics.CountryCount = len(distinctCountries(m.Authorships))
	}
	for _, yc := range m.CountsByYear {
		metrics.CitationsByYear = append(metrics.CitationsByYear, domain.YearCount{Year: yc.Year, Count: yc.CitedByCount})
	}
	sort.Slice(metrics.CitationsByYear, func(i, j int) bool {
		return metrics.CitationsByYear[i].Year < metrics.CitationsByYear[j].Year
	})
	return metrics
}

func distinctCountries(authorships []openalex.Authorship) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(code string) {
		code = strings.ToUpper(strings.TrimSpace(code))
		if code == "" {
			return
		}
		if _, ok := seen[code]; !ok {
			seen[code] = struct{}{}
			out = append(out, code)
		}
	}
	for _, as := range authorships {
		for _, c := range as.Countries {
			add(c)
		}
		for _, inst := range as.Institutions {
			add(inst.CountryCode)
		}
	}
	return out
}

func topics(in []openalex.Topic) []domain.Topic {
	if len(in) == 0 {
		return nil
	}
	out := make([]domain.Topic, 0, len(in))
	for _, t := range in {
		topic := domain.Topic{ID: t.ID, Name: t.DisplayName, Score: t.Score}
		if t.Field != nil {
			topic.Field = t.Field.DisplayName
		}
		if t.Subfield != nil {
			topic.Subfield = t.Subfield.DisplayName
		}
		out = append(out, topic)
	}
	return out
}

func funders(grants []openalex.Grant) []domain.Funder {
	if len(grants) == 0 {
		return nil
	}
	out := make([]domain.Funder, 0, len(grants))
	for _, g := range grants {
		if g.Funder == "" && g.FunderDisplayName == "" {
			continue
		}
		out = append(out, domain.Funder{ID: g.Funder, Name: g.FunderDisplayName, AwardID: g.AwardID})
	}
	return out
}

func keywords(in []openalex.Keyword) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, k := range in {
		if k.DisplayName != "" {
			out = append(out, k.DisplayName)
		}
	}
	return out
}

func authorInstitutions(authorships []openalex.Authorship) []domain.AuthorInstitution {
	var out []domain.AuthorInstitution
	for _, as := range authorships {
		name := strings.TrimSpace(as.Author.DisplayName)
		if name == "" || (len(as.Institutions) == 0 && len(as.Countries) == 0) {
			continue
		}
		ai := domain.AuthorInstitution{Author: name, Countries: as.Countries}
		for _, inst := range as.Institutions {
			if inst.DisplayName != "" {
				ai.Institutions = append(ai.Institutions, inst.DisplayName)
			}
		}
		out = append(out, ai)
	}
	return out
}

func limit(values []string, n int) []string {
	if len(values) == 0 {
		return nil
	}
	if len(values) > n {
		values = values[:n]
	}
	return append([]string(nil), values...)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
