package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// resolverPrefixes mark a DOI pasted as a URL. Only those are percent-decoded.
var resolverPrefixes = []string{
	"https://doi.org/",
	"http://doi.org/",
	"https://dx.doi.org/",
	"http://dx.doi.org/",
	"doi.org/",
	"dx.doi.org/",
}

const schemePrefix = "doi:"

// NormalizeDOI trims whitespace, removes resolver URL and "doi:" prefixes, and
// lowercases the result. Percent-escapes are decoded once, and only when the DOI
// arrived as a resolver URL, so NormalizeDOI(NormalizeDOI(x)) == NormalizeDOI(x).
// It does not validate the DOI.
func NormalizeDOI(raw string) string {
	doi, fromURL := stripDOIPrefixes(raw)
	if fromURL {
		if unescaped, err := url.PathUnescape(doi); err == nil {
			doi, _ = stripDOIPrefixes(unescaped)
		}
	}
	return strings.ToLower(doi)
}

// stripDOIPrefixes removes stacked prefixes and reports whether any was a resolver URL.
func stripDOIPrefixes(raw string) (string, bool) {
	doi := strings.TrimSpace(raw)
	fromURL := false
	for {
		lower := strings.ToLower(doi)
		if strings.HasPrefix(lower, schemePrefix) {
			doi = strings.TrimSpace(doi[len(schemePrefix):])
			continue
		}
		n := resolverPrefixLen(lower)
		if n == 0 {
			return doi, fromURL
		}
		doi = strings.TrimSpace(doi[n:])
		fromURL = true
	}
}

func resolverPrefixLen(lower string) int {
	for _, prefix := range resolverPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return len(prefix)
		}
	}
	return 0
}

// ParseDOI normalizes raw and checks that it has the "10.<registrant>/<suffix>" shape.
func ParseDOI(raw string) (string, error) {
	doi := NormalizeDOI(raw)
	if doi == "" {
		return "", fmt.Errorf("%w: %w", ErrInvalidDOI, NewValidationError("doi", "must not be empty"))
	}
	registrant, suffix, ok := strings.Cut(doi, "/")
	if !ok || !strings.HasPrefix(registrant, "10.") || len(registrant) < 4 || strings.TrimSpace(suffix) == "" {
		return "", fmt.Errorf("%w: %w", ErrInvalidDOI, NewValidationError("doi", "not a DOI: "+raw))
	}
	if strings.ContainsAny(doi, " \t\n") {
		return "", fmt.Errorf("%w: %w", ErrInvalidDOI, NewValidationError("doi", "contains whitespace"))
	}
	return doi, nil
}
