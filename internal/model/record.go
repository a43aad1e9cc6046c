package model

import "strings"

// Record represents one listing entry extracted from the crawled site.
//
// Exactly one of Link and Location is populated, depending on the Mode
// the record was extracted with. Records have no identity beyond their
// position in the crawl output; the order of discovery is preserved.
type Record struct {
	// Title is the trimmed label of the listing entry. Never empty.
	Title string `json:"title"`

	// Link is the absolute URL of the entry. Set in LinkMode only.
	Link string `json:"link,omitempty"`

	// Location is the venue of the entry. Set in AlternatingMode only.
	Location string `json:"location,omitempty"`
}

// NewRecord returns a record with a trimmed title.
// ok is false when the trimmed title is empty; such records must be discarded.
func NewRecord(title string) (Record, bool) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Record{}, false
	}
	return Record{Title: title}, true
}

// Valid reports whether the record satisfies the record invariants:
// a non-empty title and exactly one of a link and a location.
func (r Record) Valid() bool {
	if strings.TrimSpace(r.Title) == "" {
		return false
	}
	return (r.Link == "") != (r.Location == "")
}

// PageResult contains the records extracted from a single fetched page.
// It is transient and consumed immediately by the crawl driver.
type PageResult struct {
	// URL is the page the result was extracted from.
	URL string

	// Records are the records in DOM order.
	Records []Record

	// NextPageLink is the absolute URL of the next page.
	// Empty when the page has no "more results" control.
	NextPageLink string
}

// HasNextPage reports whether the page links to a further page.
func (p *PageResult) HasNextPage() bool {
	return p != nil && p.NextPageLink != ""
}

// Match is a title/link pair recovered from the records file.
// It is only produced when both fields are recovered for the same entry.
type Match struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}

// TimestampLayout is the layout of the capture timestamp written before
// a persisted batch.
const TimestampLayout = "2006-01-02T15:04:05"
