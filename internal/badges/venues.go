package badges

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Venue ranks stored on the paper record.
const (
	VenueRankHigh     = "high-impact"
	VenueRankMedium   = "medium-impact"
	VenueRankStandard = "standard"
)

// venueEntry is a name matched against the start of a lowercased venue with any leading
// "the " removed. An exact entry matches only the whole name. Otherwise the name
// also matches as a leading phrase followed by a word boundary, which covers
// journal families such as "Nature Medicine" or "The Lancet Oncology".
type venueEntry struct {
	name  string
	exact bool
}

var highImpactVenues = []venueEntry{
	{name: "nature"},
	{name: "science", exact: true},
	{name: "science advances", exact: true},
	{name: "science translational medicine", exact: true},
	{name: "science immunology", exact: true},
	{name: "science robotics", exact: true},
	{name: "cell", exact: true},
	{name: "cancer cell", exact: true},
	{name: "molecular cell", exact: true},
	{name: "cell metabolism", exact: true},
	{name: "cell stem cell", exact: true},
	{name: "lancet"},
	{name: "new england journal of medicine", exact: true},
	{name: "jama"},
	{name: "proceedings of the national academy of sciences"},
	{name: "pnas", exact: true},
	{name: "bmj", exact: true},
	{name: "british medical journal", exact: true},
	{name: "annals of internal medicine", exact: true},
	{name: "physical review letters", exact: true},
	{name: "journal of the american chemical society", exact: true},
	{name: "angewandte chemie"},
	{name: "advances in neural information processing systems"},
	{name: "neurips"},
	{name: "international conference on machine learning"},
	{name: "icml"},
	{name: "ieee transactions on pattern analysis and machine intelligence", exact: true},
}

// mediumImpactVenues are checked only when no high-impact entry matched.
var mediumImpactVenues = []venueEntry{
	{name: "plos"},
	{name: "scientific reports", exact: true},
	{name: "cell reports", exact: true},
	{name: "frontiers in"},
	{name: "bmc"},
	{name: "bmj open", exact: true},
	{name: "ieee transactions on"},
	{name: "ieee access", exact: true},
	{name: "acm transactions on"},
	{name: "communications of the acm", exact: true},
	{name: "physical review"},
	{name: "journal of chemical physics", exact: true},
	{name: "journal of biological chemistry", exact: true},
	{name: "journal of neuroscience", exact: true},
	{name: "journal of clinical investigation", exact: true},
	{name: "nucleic acids research", exact: true},
	{name: "bioinformatics", exact: true},
	{name: "elife", exact: true},
	{name: "heliyon", exact: true},
	{name: "peerj"},
}

// VenueRank classifies a venue name. The first matching list wins.
func VenueRank(venue string) string {
	switch venueTier(venue) {
	case HighImpactJournal:
		return VenueRankHigh
	case MediumImpactJournal:
		return VenueRankMedium
	default:
		return VenueRankStandard
	}
}

func venueTier(venue string) Badge {
	name := strings.Join(strings.Fields(strings.ToLower(venue)), " ")
	name = strings.TrimRightFunc(name, unicode.IsPunct)
	name = strings.TrimPrefix(name, "the ")
	if name == "" {
		return ""
	}
	if matchesAny(name, highImpactVenues) {
		return HighImpactJournal
	}
	if matchesAny(name, mediumImpactVenues) {
		return MediumImpactJournal
	}
	return ""
}

func matchesAny(name string, venues []venueEntry) bool {
	for _, v := range venues {
		if v.matches(name) {
			return true
		}
	}
	return false
}

func (v venueEntry) matches(name string) bool {
	if name == v.name {
		return true
	}
	if v.exact || !strings.HasPrefix(name, v.name) {
		return false
	}
	next, _ := utf8.DecodeRuneInString(name[len(v.name):])
	return !unicode.IsLetter(next) && !unicode.IsDigit(next)
}
