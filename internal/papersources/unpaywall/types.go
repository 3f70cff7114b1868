// Package unpaywall provides the open-access resolver client for the Unpaywall API.
//
// Unpaywall reports whether a DOI has a legal open-access copy and where the best one
// lives. Every request must carry a contact email.
//
// API Documentation: https://unpaywall.org/products/api
package unpaywall

// Record is the projection of an Unpaywall DOI object this service consumes.
type Record struct {
	DOI            string    `json:"doi"`
	IsOA           *bool     `json:"is_oa"`
	OAStatus       string    `json:"oa_status"`
	Genre          string    `json:"genre"`
	JournalName    string    `json:"journal_name"`
	Publisher      string    `json:"publisher"`
	BestOALocation *Location `json:"best_oa_location"`
}

// Location is one place an open-access copy can be found.
type Location struct {
	URL               string `json:"url"`
	URLForPDF         string `json:"url_for_pdf"`
	URLForLandingPage string `json:"url_for_landing_page"`
	License           string `json:"license"`
	Version           string `json:"version"`
	HostType          string `json:"host_type"`
}

// OpenAccess reports the is_oa flag, false when absent.
func (r *Record) OpenAccess() bool {
	return r != nil && r.IsOA != nil && *r.IsOA
}

// PDFURL returns the best location's PDF link, or "".
func (r *Record) PDFURL() string {
	if r == nil || r.BestOALocation == nil {
		return ""
	}
	return r.BestOALocation.URLForPDF
}

// License returns the best location's license, or "".
func (r *Record) License() string {
	if r == nil || r.BestOALocation == nil {
		return ""
	}
	return r.BestOALocation.License
}
