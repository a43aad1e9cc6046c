package crawler

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"

	"github.com/nao1215/ticketwatch/internal/model"
)

// Default selectors and sentinel for the iabilet.ro mobile listing pages.
const (
	// DefaultEntrySelector selects the anchors of every listing entry.
	DefaultEntrySelector = ".event-item .text a"

	// DefaultNextPageSelector selects the "more results" control.
	DefaultNextPageSelector = ".btn-more"

	// DefaultSentinel is the call-to-action label that decorates every entry.
	DefaultSentinel = "ia bilet"
)

// Parser extracts listing records and the next-page link from one page.
// It performs no I/O besides reading the content handed to Parse.
type Parser struct {
	// entrySelector is the CSS selector of the listing entry anchors.
	entrySelector string

	// nextPageSelector is the CSS selector of the "more results" control.
	nextPageSelector string

	// sentinel is the label that never becomes a record (case-insensitive).
	sentinel string

	// mode selects link or alternating extraction.
	mode model.Mode
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithEntrySelector sets the CSS selector of listing entry anchors.
func WithEntrySelector(selector string) ParserOption {
	return func(p *Parser) {
		if selector != "" {
			p.entrySelector = selector
		}
	}
}

// WithNextPageSelector sets the CSS selector of the "more results" control.
func WithNextPageSelector(selector string) ParserOption {
	return func(p *Parser) {
		if selector != "" {
			p.nextPageSelector = selector
		}
	}
}

// WithSentinel sets the label that is filtered from every page.
// An empty sentinel disables filtering.
func WithSentinel(sentinel string) ParserOption {
	return func(p *Parser) {
		p.sentinel = strings.TrimSpace(sentinel)
	}
}

// WithMode sets the extraction mode.
func WithMode(mode model.Mode) ParserOption {
	return func(p *Parser) {
		p.mode = mode
	}
}

// NewParser creates a Parser. Without options it uses the iabilet.ro
// selectors, the "ia bilet" sentinel and LinkMode.
func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{
		entrySelector:    DefaultEntrySelector,
		nextPageSelector: DefaultNextPageSelector,
		sentinel:         DefaultSentinel,
		mode:             model.LinkMode,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Mode returns the extraction mode of the parser.
func (p *Parser) Mode() model.Mode {
	return p.mode
}

// entry is a listing anchor that survived sentinel filtering.
type entry struct {
	label string
	href  string
}

// Parse extracts the records and the next-page link from HTML content.
// pageURL is the URL the content was served from; relative links are
// resolved against it.
//
// A page without any entry container yields an empty result and no
// next-page link. Only an invalid pageURL or unreadable content is an error.
func (p *Parser) Parse(content io.Reader, pageURL string) (*model.PageResult, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page URL %q: %w", pageURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page %s: %w", pageURL, err)
	}

	result := &model.PageResult{
		URL:     base.String(),
		Records: make([]model.Record, 0),
	}

	entries := p.collectEntries(doc, base)
	switch p.mode {
	case model.AlternatingMode:
		result.Records = pairEntries(entries)
	default:
		result.Records = linkEntries(entries)
	}

	result.NextPageLink = p.findNextPage(doc, base)

	return result, nil
}

// collectEntries returns the entry anchors in DOM order, without sentinels
// and without blank labels.
func (p *Parser) collectEntries(doc *goquery.Document, base *url.URL) []entry {
	entries := make([]entry, 0)
	fold := cases.Fold()
	sentinel := fold.String(p.sentinel)

	doc.Find(p.entrySelector).Each(func(_ int, s *goquery.Selection) {
		label := strings.TrimSpace(s.Text())
		if label == "" {
			return
		}
		if sentinel != "" && fold.String(label) == sentinel {
			return
		}
		href, _ := s.Attr("href")
		entries = append(entries, entry{
			label: label,
			href:  resolveURL(base, href),
		})
	})

	return entries
}

// linkEntries turns every entry into a title+link record. Entries without
// a usable href are dropped.
func linkEntries(entries []entry) []model.Record {
	records := make([]model.Record, 0, len(entries))
	for _, e := range entries {
		if e.href == "" {
			continue
		}
		record, ok := model.NewRecord(e.label)
		if !ok {
			continue
		}
		record.Link = e.href
		records = append(records, record)
	}
	return records
}

// pairEntries pairs entries as (title, location). A trailing unpaired
// entry is dropped, so len(result) == len(entries)/2.
func pairEntries(entries []entry) []model.Record {
	records := make([]model.Record, 0, len(entries)/2)
	for i := 0; i+1 < len(entries); i += 2 {
		record, ok := model.NewRecord(entries[i].label)
		if !ok {
			continue
		}
		record.Location = entries[i+1].label
		records = append(records, record)
	}
	return records
}

// findNextPage returns the absolute URL of the first "more results"
// control with a usable href, or "".
func (p *Parser) findNextPage(doc *goquery.Document, base *url.URL) string {
	var next string
	doc.Find(p.nextPageSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, ok := s.Attr("href")
		if !ok {
			return true
		}
		next = resolveURL(base, href)
		return next == ""
	})
	return next
}

// resolveURL resolves href against base. Non-navigational hrefs
// (javascript:, mailto:, tel:, data:, bare fragments) resolve to "".
func resolveURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}

	lower := strings.ToLower(href)
	for _, scheme := range []string{"javascript:", "mailto:", "tel:", "data:"} {
		if strings.HasPrefix(lower, scheme) {
			return ""
		}
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}

	return base.ResolveReference(u).String()
}
