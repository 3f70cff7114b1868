// Package badges derives qualitative tags from a paper's normalized fields.
//
// Compute is a pure function of (Fields, now). Each rule inspects the fields
// independently and contributes at most one badge; the results are collected into a
// Set, so rule order never changes the outcome. The citation tier is the only rule
// with internally exclusive outcomes ("Highly Cited", "Well Cited", "Low Citation",
// "No Citations"), checked from the highest tier down.
//
// A missing or unparsable publication date short-circuits evaluation: the result is
// exactly {"Invalid Date"}.
package badges

import (
	"sort"
	"strings"
	"time"

	"github.com/helixir/paper-enrichment-service/internal/domain"
)

// Badge is a short qualitative tag.
type Badge string

// Badges produced by the engine.
const (
	InvalidDate Badge = "Invalid Date"

	HighlyCited Badge = "Highly Cited"
	WellCited   Badge = "Well Cited"
	LowCitation Badge = "Low Citation"
	NoCitations Badge = "No Citations"

	Recent   Badge = "Recent"
	Outdated Badge = "Outdated"

	OpenAccess Badge = "Open Access"
	Preprint   Badge = "Preprint"

	HighImpactJournal   Badge = "High Impact Journal"
	MediumImpactJournal Badge = "Medium Impact Journal"

	Top1Percent        Badge = "Top 1% Most Cited"
	Top10Percent       Badge = "Top 10% Most Cited"
	HighImpact         Badge = "High Impact"
	AboveAverageImpact Badge = "Above Average Impact"
	LowImpact          Badge = "Low Impact"

	InternationalCollaboration Badge = "International Collaboration"
	LargeCollaboration         Badge = "Large Collaboration"
	MultiAuthor                Badge = "Multi-Author"
	SingleAuthor               Badge = "Single Author"

	Retracted         Badge = "Retracted"
	FullTextAvailable Badge = "Full Text Available"
	FundedResearch    Badge = "Funded Research"
	NonEnglish        Badge = "Non-English"
	ReviewArticle     Badge = "Review Article"
	BookChapter       Badge = "Book Chapter"
	Dataset           Badge = "Dataset"
	ConferencePaper   Badge = "Conference Paper"
	Dissertation      Badge = "Dissertation"
	Editorial         Badge = "Editorial"
	Letter            Badge = "Letter"
	Erratum           Badge = "Erratum"
)

// Thresholds used by the rules.
const (
	HighlyCitedMin = 1000
	WellCitedMin   = 100
	LowCitationMax = 10

	RecentMaxAge   = 2
	OutdatedMinAge = 10

	HighImpactFWCI   = 2.0
	AboveAverageFWCI = 1.5
	LowImpactFWCI    = 0.5

	LargeCollabMin   = 10
	MultiAuthorMin   = 5
	InternationalMin = 3
)

// Fields is the badge-relevant projection of a paper. Zero values mean "absent".
type Fields struct {
	// PublicationDate is YYYY-MM-DD, YYYY-MM, YYYY or RFC3339.
	PublicationDate string

	CitationCount  int
	IsOpenAccess   bool
	IsPreprint     bool
	Venue          string
	FWCI           float64
	IsTop1Percent  bool
	IsTop10Percent bool
	AuthorCount    int
	CountryCount   int
	IsRetracted    bool
	HasFulltext    bool
	FunderCount    int
	Language       string
	Type           string
}

// FieldsFromPaper projects a canonical paper onto Fields.
func FieldsFromPaper(p *domain.Paper) Fields {
	return Fields{
		PublicationDate: p.PublicationDateString(),
		CitationCount:   p.CitationCount,
		IsOpenAccess:    p.IsOpenAccess,
		IsPreprint:      p.IsPreprint,
		Venue:           p.Journal,
		FWCI:            p.Metrics.FWCI,
		IsTop1Percent:   p.Metrics.IsTop1Percent,
		IsTop10Percent:  p.Metrics.IsTop10Percent,
		AuthorCount:     p.Metrics.AuthorCount,
		CountryCount:    p.Metrics.CountryCount,
		IsRetracted:     p.Metrics.IsRetracted,
		HasFulltext:     p.Metrics.HasFulltext,
		FunderCount:     len(p.Funders),
		Language:        p.Language,
		Type:            p.Type,
	}
}

// Set is an unordered collection of badges without duplicates.
type Set map[Badge]struct{}

// Add inserts badges, ignoring empty ones.
func (s Set) Add(badges ...Badge) {
	for _, b := range badges {
		if b != "" {
			s[b] = struct{}{}
		}
	}
}

// Has reports whether b is in the set.
func (s Set) Has(b Badge) bool {
	_, ok := s[b]
	return ok
}

// Sorted returns the badges as a lexically sorted string slice.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for b := range s {
		out = append(out, string(b))
	}
	sort.Strings(out)
	return out
}

// facts are the derived inputs shared by all rules.
type facts struct {
	Fields
	age int
}

// rule contributes at most one badge.
type rule func(f facts) Badge

func defaultRules() []rule {
	return []rule{
		citationTier,
		recency,
		openAccess,
		preprint,
		venuePrestige,
		impactPercentile,
		collaboration,
		retracted,
		fullText,
		funded,
		nonEnglish,
		workType,
	}
}

// Compute derives the badge set for fields as of now.
func Compute(f Fields, now time.Time) Set {
	return evaluate(f, now, defaultRules())
}

func evaluate(f Fields, now time.Time, rules []rule) Set {
	published, ok := ParseDate(f.PublicationDate)
	if !ok {
		return Set{InvalidDate: {}}
	}

	fx := facts{Fields: f, age: now.Year() - published.Year()}
	set := make(Set, len(rules))
	for _, r := range rules {
		set.Add(r(fx))
	}
	return set
}

var dateLayouts = []string{time.DateOnly, time.RFC3339, "2006-01", "2006"}

// ParseDate parses the accepted publication date forms.
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func citationTier(f facts) Badge {
	switch c := f.CitationCount; {
	case c >= HighlyCitedMin:
		return HighlyCited
	case c >= WellCitedMin:
		return WellCited
	case c > 0 && c <= LowCitationMax && f.age >= 2:
		return LowCitation
	case c == 0 && f.age >= 1:
		return NoCitations
	default:
		return ""
	}
}

func recency(f facts) Badge {
	switch {
	case f.age <= RecentMaxAge:
		return Recent
	case f.age >= OutdatedMinAge:
		return Outdated
	default:
		return ""
	}
}

func openAccess(f facts) Badge {
	if f.IsOpenAccess {
		return OpenAccess
	}
	return ""
}

var preprintVenueMarkers = []string{"arxiv", "biorxiv", "preprint"}

func preprint(f facts) Badge {
	if f.IsPreprint {
		return Preprint
	}
	venue := strings.ToLower(f.Venue)
	for _, marker := range preprintVenueMarkers {
		if strings.Contains(venue, marker) {
			return Preprint
		}
	}
	return ""
}

func venuePrestige(f facts) Badge {
	return venueTier(f.Venue)
}

// impactPercentile prefers the explicit percentile flags. An FWCI of exactly zero is
// treated as unknown, so papers without metrics are not labelled "Low Impact".
func impactPercentile(f facts) Badge {
	switch {
	case f.IsTop1Percent:
		return Top1Percent
	case f.IsTop10Percent:
		return Top10Percent
	case f.FWCI >= HighImpactFWCI:
		return HighImpact
	case f.FWCI >= AboveAverageFWCI:
		return AboveAverageImpact
	case f.FWCI > 0 && f.FWCI <= LowImpactFWCI:
		return LowImpact
	default:
		return ""
	}
}

func collaboration(f facts) Badge {
	switch {
	case f.CountryCount >= InternationalMin:
		return InternationalCollaboration
	case f.AuthorCount >= LargeCollabMin:
		return LargeCollaboration
	case f.AuthorCount >= MultiAuthorMin:
		return MultiAuthor
	case f.AuthorCount == 1:
		return SingleAuthor
	default:
		return ""
	}
}

func retracted(f facts) Badge {
	if f.IsRetracted {
		return Retracted
	}
	return ""
}

func fullText(f facts) Badge {
	if f.HasFulltext {
		return FullTextAvailable
	}
	return ""
}

func funded(f facts) Badge {
	if f.FunderCount > 0 {
		return FundedResearch
	}
	return ""
}

func nonEnglish(f facts) Badge {
	lang := strings.ToLower(strings.TrimSpace(f.Language))
	if lang != "" && lang != "en" && !strings.HasPrefix(lang, "en-") {
		return NonEnglish
	}
	return ""
}

var typeBadges = map[string]Badge{
	"review":              ReviewArticle,
	"book-chapter":        BookChapter,
	"dataset":             Dataset,
	"proceedings-article": ConferencePaper,
	"dissertation":        Dissertation,
	"editorial":           Editorial,
	"letter":              Letter,
	"erratum":             Erratum,
}

func workType(f facts) Badge {
	return typeBadges[strings.ToLower(strings.TrimSpace(f.Type))]
}
