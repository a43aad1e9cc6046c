package notify

import "errors"

var (
	// ErrNoMatches is returned by Compose when there is nothing to report.
	ErrNoMatches = errors.New("no matches to notify about")

	// ErrTransport wraps every failure reported by a mail transport.
	ErrTransport = errors.New("mail transport failed")

	// ErrNoRecipient is returned when a notification has no recipient.
	ErrNoRecipient = errors.New("notification recipient is not set")

	// ErrEmptyQuery is returned when the search term is empty.
	ErrEmptyQuery = errors.New("search term is empty")

	// ErrMissingCredentials is returned when the Mailgun domain or API key is missing.
	ErrMissingCredentials = errors.New("mailgun API key or domain not provided")

	// ErrUnknownRegion is returned for a Mailgun region that is neither
	// "us", "eu" nor an API base URL.
	ErrUnknownRegion = errors.New("unknown mailgun region")
)
