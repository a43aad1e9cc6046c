package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/nao1215/ticketwatch/internal/model"
)

// State is a stage of a crawl.
type State int

const (
	// Idle is the state before and between crawls.
	Idle State = iota
	// FetchingPage is the state while a page is being fetched.
	FetchingPage
	// ExtractingRecords is the state while a fetched page is parsed.
	ExtractingRecords
	// FollowingNextPage is the state while waiting to fetch the next page.
	FollowingNextPage
	// Finalizing is the state while the records are handed to the sink.
	Finalizing
	// Done is the state after the crawl finished or failed.
	Done
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case FetchingPage:
		return "fetching_page"
	case ExtractingRecords:
		return "extracting_records"
	case FollowingNextPage:
		return "following_next_page"
	case Finalizing:
		return "finalizing"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// RecordSink persists the records of a finished crawl.
// timestampLabel is written before the records; an empty label omits it.
type RecordSink interface {
	Persist(records []model.Record, timestampLabel string) error
}

// Result is the outcome of one crawl.
type Result struct {
	// StartURL is the URL the crawl started from.
	StartURL string `json:"start_url"`

	// Mode is the extraction mode used.
	Mode model.Mode `json:"mode"`

	// Pages is the number of pages fetched.
	Pages int `json:"pages"`

	// Visited lists the fetched URLs in fetch order.
	Visited []string `json:"visited"`

	// Records holds every record in page-then-DOM order.
	Records []model.Record `json:"records"`

	// StartedAt is when the crawl started.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the last page was processed.
	FinishedAt time.Time `json:"finished_at"`

	// Truncated is true when the crawl stopped at the page limit while a
	// next page was still available.
	Truncated bool `json:"truncated"`
}

// Spider walks the "next page" chain of a listing starting from one URL
// and accumulates the records of every page.
//
// Pages are fetched strictly one after another. A Spider runs one crawl
// at a time; State can be observed from other goroutines.
type Spider struct {
	// fetcher retrieves pages.
	fetcher Fetcher

	// parser extracts records and the next link from each page.
	parser *Parser

	// sink persists the records once the chain is exhausted. Optional.
	sink RecordSink

	// maxPages limits the total number of pages to crawl.
	maxPages int

	// delay is the time to wait between requests.
	delay time.Duration

	// now returns the current time.
	now func() time.Time

	// logger receives state transitions at debug level.
	logger *slog.Logger

	// crawling serializes Crawl calls.
	crawling sync.Mutex

	// mutex protects state.
	mutex sync.Mutex

	// state is the current crawl state.
	state State
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithParser sets the page parser.
func WithParser(p *Parser) SpiderOption {
	return func(s *Spider) {
		if p != nil {
			s.parser = p
		}
	}
}

// WithSink sets the sink that receives the records of a successful crawl.
func WithSink(sink RecordSink) SpiderOption {
	return func(s *Spider) {
		s.sink = sink
	}
}

// WithMaxPages sets the maximum number of pages to crawl.
func WithMaxPages(maxPages int) SpiderOption {
	return func(s *Spider) {
		if maxPages > 0 {
			s.maxPages = maxPages
		}
	}
}

// WithDelay sets the delay between requests.
func WithDelay(d time.Duration) SpiderOption {
	return func(s *Spider) {
		if d >= 0 {
			s.delay = d
		}
	}
}

// WithClock sets the time source used for timestamps.
func WithClock(now func() time.Time) SpiderOption {
	return func(s *Spider) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSpider creates a new Spider that fetches pages with fetcher.
func NewSpider(fetcher Fetcher, opts ...SpiderOption) *Spider {
	s := &Spider{
		fetcher:  fetcher,
		parser:   NewParser(),
		maxPages: 50,
		delay:    1 * time.Second,
		now:      time.Now,
		logger:   slog.Default(),
		state:    Idle,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// State returns the current crawl state.
func (s *Spider) State() State {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.state
}

// setState records a state transition.
func (s *Spider) setState(next State) {
	s.mutex.Lock()
	prev := s.state
	s.state = next
	s.mutex.Unlock()

	s.logger.Debug("crawl state changed", "from", prev.String(), "to", next.String())
}

// Crawl fetches startURL and every page reachable through the "next page"
// chain, then hands all records to the sink.
//
// The chain ends when a page has no next link, when the next link was
// already visited, or when the page limit is reached (Result.Truncated).
// A fetch failure aborts the crawl with an error matching ErrFetch and
// nothing is handed to the sink.
func (s *Spider) Crawl(ctx context.Context, startURL string) (*Result, error) {
	if !s.crawling.TryLock() {
		return nil, ErrCrawlInProgress
	}
	defer s.crawling.Unlock()

	start, err := url.Parse(startURL)
	if err != nil || (start.Scheme != "http" && start.Scheme != "https") || start.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStartURL, startURL)
	}

	s.setState(Idle)

	result := &Result{
		StartURL:  start.String(),
		Mode:      s.parser.Mode(),
		Visited:   make([]string, 0),
		Records:   make([]model.Record, 0),
		StartedAt: s.now(),
	}
	visited := make(map[string]bool)
	current := start.String()

	for {
		s.setState(FetchingPage)
		resp, err := s.fetcher.Fetch(ctx, current)
		if err != nil {
			s.setState(Done)
			return nil, s.fetchFailure(current, err)
		}

		visited[normalizeURL(current)] = true
		visited[normalizeURL(resp.URL)] = true
		result.Visited = append(result.Visited, current)
		result.Pages++

		s.setState(ExtractingRecords)
		page, err := s.parser.Parse(bytes.NewReader(resp.Body), resp.URL)
		if err != nil {
			s.logger.Warn("page could not be parsed, treating it as empty", "url", resp.URL, "error", err)
			page = &model.PageResult{URL: resp.URL}
		}
		result.Records = append(result.Records, page.Records...)
		s.logger.Debug("page extracted", "url", resp.URL, "records", len(page.Records), "next", page.NextPageLink)

		if !page.HasNextPage() {
			break
		}
		if visited[normalizeURL(page.NextPageLink)] {
			s.logger.Debug("next page already visited, ending crawl", "url", page.NextPageLink)
			break
		}
		if result.Pages >= s.maxPages {
			s.logger.Warn("page limit reached, ending crawl", "max_pages", s.maxPages, "next", page.NextPageLink)
			result.Truncated = true
			break
		}

		s.setState(FollowingNextPage)
		if err := s.wait(ctx); err != nil {
			s.setState(Done)
			return nil, s.fetchFailure(page.NextPageLink, err)
		}
		current = page.NextPageLink
	}

	s.setState(Finalizing)
	result.FinishedAt = s.now()

	if s.sink != nil {
		label := result.FinishedAt.Format(model.TimestampLayout)
		if err := s.sink.Persist(result.Records, label); err != nil {
			s.setState(Done)
			return nil, fmt.Errorf("failed to persist records: %w", err)
		}
	}

	s.setState(Done)
	return result, nil
}

// wait blocks for the politeness delay or until ctx is done.
func (s *Spider) wait(ctx context.Context) error {
	if s.delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// fetchFailure wraps err so that it names pageURL and matches ErrFetch.
func (s *Spider) fetchFailure(pageURL string, err error) error {
	s.logger.Warn("crawl aborted, nothing persisted", "url", pageURL, "error", err)
	var fe *FetchError
	if errors.As(err, &fe) {
		return err
	}
	return &FetchError{URL: pageURL, Err: err}
}

// normalizeURL normalizes a URL for deduplication: the fragment is dropped,
// scheme and host are lower-cased and an empty path becomes "/".
func normalizeURL(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return pageURL
	}

	u.Fragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" {
		u.Path = "/"
	}

	return u.String()
}
