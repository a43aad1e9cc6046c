package crawler

import (
	"errors"
	"fmt"
)

var (
	// ErrFetch is matched by every error that aborted a crawl because a
	// page could not be fetched. Use errors.Is(err, ErrFetch).
	ErrFetch = errors.New("fetch failed")

	// ErrInvalidStartURL is returned when the start URL is not an absolute
	// http or https URL.
	ErrInvalidStartURL = errors.New("invalid start URL: expected absolute http(s) URL")

	// ErrInvalidProxyAddress is returned when the proxy address format is invalid.
	// Expected format is "host:port".
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

	// ErrCrawlInProgress is returned when Crawl is called on a Spider that
	// is already crawling.
	ErrCrawlInProgress = errors.New("crawl already in progress")
)

// FetchError describes a failed page fetch: either a transport failure or
// a non-2xx response.
type FetchError struct {
	// URL is the page that could not be fetched.
	URL string

	// StatusCode is the HTTP status, or 0 when no response was received.
	StatusCode int

	// Err is the underlying transport error, if any.
	Err error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying transport error.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrFetch.
func (e *FetchError) Is(target error) bool {
	return target == ErrFetch
}

// permanent reports whether retrying the fetch cannot succeed.
// Client errors (4xx) are permanent; transport failures and 5xx are not.
func (e *FetchError) permanent() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}
