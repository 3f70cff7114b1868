// Package crossref provides the publisher-registry source client for the Crossref REST API.
//
// Crossref is the authority for bibliographic fields deposited by publishers: title,
// container (journal) title, authors, publication dates, type, volume, issue and pages.
//
// API Documentation: https://api.crossref.org/swagger-ui/index.html
package crossref

import (
	"regexp"
	"strings"
	"time"
)

// response is the envelope around every Crossref single-work reply.
type response struct {
	Status      string `json:"status"`
	MessageType string `json:"message-type"`
	Message     Work   `json:"message"`
}

// Work is the projection of a Crossref work this service consumes.
type Work struct {
	DOI                 string     `json:"DOI"`
	Title               []string   `json:"title"`
	ContainerTitle      []string   `json:"container-title"`
	ShortContainerTitle []string   `json:"short-container-title"`
	Author              []Author   `json:"author"`
	Published           *DateParts `json:"published"`
	PublishedPrint      *DateParts `json:"published-print"`
	PublishedOnline     *DateParts `json:"published-online"`
	Created             *DateParts `json:"created"`
	Type                string     `json:"type"`
	Publisher           string     `json:"publisher"`
	URL                 string     `json:"URL"`
	Abstract            string     `json:"abstract"`
	Volume              string     `json:"volume"`
	Issue               string     `json:"issue"`
	Page                string     `json:"page"`
	ISSN                []string   `json:"ISSN"`
	License             []License  `json:"license"`
	Language            string     `json:"language"`
	ReferencedByCount   *int       `json:"is-referenced-by-count"`
	Subject             []string   `json:"subject"`
}

// Author is a contributor as deposited by the publisher.
type Author struct {
	Given    string `json:"given"`
	Family   string `json:"family"`
	Name     string `json:"name"`
	ORCID    string `json:"ORCID"`
	Sequence string `json:"sequence"`
}

// License is a license reference attached to a work.
type License struct {
	URL            string `json:"URL"`
	ContentVersion string `json:"content-version"`
}

// DateParts is Crossref's partial date encoding: [[year, month, day]] with month and
// day optional and any element possibly null.
type DateParts struct {
	DateParts [][]*int `json:"date-parts"`
}

// FullName joins given and family names, falling back to the organisational name.
func (a Author) FullName() string {
	name := strings.TrimSpace(strings.TrimSpace(a.Given) + " " + strings.TrimSpace(a.Family))
	if name == "" {
		name = strings.TrimSpace(a.Name)
	}
	return name
}

// Time resolves the first date part. Missing month or day default to 1. It returns
// false when no valid year is present or the month/day are out of range.
func (d *DateParts) Time() (time.Time, bool) {
	if d == nil || len(d.DateParts) == 0 {
		return time.Time{}, false
	}
	parts := d.DateParts[0]
	if len(parts) == 0 || parts[0] == nil || *parts[0] <= 0 {
		return time.Time{}, false
	}

	year, month, day := *parts[0], 1, 1
	if len(parts) > 1 && parts[1] != nil {
		month = *parts[1]
	}
	if len(parts) > 2 && parts[2] != nil {
		day = *parts[2]
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// First returns the first element of a Crossref string list, trimmed.
func First(values []string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

var jatsTag = regexp.MustCompile(`<[^>]+>`)

// PlainAbstract strips JATS markup from the deposited abstract and collapses whitespace.
func (w *Work) PlainAbstract() string {
	if w == nil || w.Abstract == "" {
		return ""
	}
	text := jatsTag.ReplaceAllString(w.Abstract, " ")
	text = strings.Join(strings.Fields(text), " ")
	return strings.TrimPrefix(text, "Abstract ")
}

// LicenseURL returns the first license URL.
func (w *Work) LicenseURL() string {
	if w == nil {
		return ""
	}
	for _, l := range w.License {
		if l.URL != "" {
			return l.URL
		}
	}
	return ""
}
