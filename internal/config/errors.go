package config

import "errors"

// Configuration validation errors returned by Config.Validate and
// Config.ValidateMail.
var (
	// ErrNoStartURL is returned when no listing URL is configured.
	ErrNoStartURL = errors.New("no start URL specified")

	// ErrNoRecordsFile is returned when the records file path is empty.
	ErrNoRecordsFile = errors.New("no records file specified")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidMaxPages is returned when the page limit is not positive.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be positive")

	// ErrInvalidCrawlDelay is returned when the crawl delay is negative.
	// Use 0 for no delay between requests.
	ErrInvalidCrawlDelay = errors.New("invalid crawl delay: must be non-negative")

	// ErrInvalidAttempts is returned when the number of tries per page is not positive.
	ErrInvalidAttempts = errors.New("invalid retries: at least one attempt is required")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidConcurrency is returned when the watch concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrMissingMailCredentials is returned when MAILGUN_API_KEY or
	// MAILGUN_DOMAIN is not set.
	ErrMissingMailCredentials = errors.New("missing mail credentials: set MAILGUN_API_KEY and MAILGUN_DOMAIN")

	// ErrNoRecipient is returned when no notification recipient is configured.
	ErrNoRecipient = errors.New("no recipient: use --to, TICKETWATCH_TO or notify.to in the config file")
)
