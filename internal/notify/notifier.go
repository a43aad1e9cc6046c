package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nao1215/ticketwatch/internal/model"
	"github.com/nao1215/ticketwatch/internal/scanner"
)

// Outcome reports what CheckAndNotify did for one search term.
type Outcome struct {
	// Query is the search term.
	Query string `json:"query"`

	// Source is the records file that was scanned.
	Source string `json:"source"`

	// Matches are the matches found, in scan order.
	Matches []model.Match `json:"matches"`

	// Message is the composed notification. Nil when nothing matched.
	Message *Message `json:"message,omitempty"`

	// Sent is true when the transport accepted the message.
	Sent bool `json:"sent"`

	// MessageID is the transport's identifier for the sent message.
	MessageID string `json:"message_id,omitempty"`
}

// Found reports whether any match was found.
func (o *Outcome) Found() bool {
	return o != nil && len(o.Matches) > 0
}

// Notifier scans the records file for a term and mails the matches.
type Notifier struct {
	source    string
	transport Transport
	from      string
	to        string
	dryRun    bool
	logger    *slog.Logger
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithSender sets the From address. Empty leaves it to the transport.
func WithSender(from string) Option {
	return func(n *Notifier) {
		n.from = from
	}
}

// WithDryRun composes messages without sending them.
func WithDryRun(dryRun bool) Option {
	return func(n *Notifier) {
		n.dryRun = dryRun
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Notifier) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// NewNotifier creates a Notifier that scans source and mails to via
// transport. transport may be nil in dry-run mode.
func NewNotifier(source string, transport Transport, to string, opts ...Option) *Notifier {
	n := &Notifier{
		source:    source,
		transport: transport,
		to:        to,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(n)
	}

	return n
}

// CheckAndNotify scans the records file for query and, when anything
// matches, sends one message listing every match.
//
// Finding nothing is not an error: the returned outcome has no matches
// and nothing is sent. A missing records file matches
// scanner.ErrSourceNotFound; a failed send matches ErrTransport.
func (n *Notifier) CheckAndNotify(ctx context.Context, query string) (*Outcome, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	matches, err := scanner.ScanFile(n.source, query)
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{
		Query:   query,
		Source:  n.source,
		Matches: matches,
	}

	if !outcome.Found() {
		n.logger.Info("no matching events", "query", query, "source", n.source)
		return outcome, nil
	}

	msg, err := Compose(query, n.source, matches)
	if err != nil {
		return nil, err
	}
	outcome.Message = &msg

	if n.dryRun {
		n.logger.Info("dry run, message not sent", "query", query, "matches", len(matches))
		return outcome, nil
	}

	if n.to == "" {
		return outcome, ErrNoRecipient
	}
	if n.transport == nil {
		return outcome, fmt.Errorf("%w: no transport configured", ErrTransport)
	}

	id, err := n.transport.Send(ctx, Envelope{
		From:    n.from,
		To:      n.to,
		Subject: msg.Subject,
		Text:    msg.Text,
		HTML:    msg.HTML,
	})
	if err != nil {
		return outcome, err
	}

	outcome.Sent = true
	outcome.MessageID = id
	n.logger.Info("notification sent", "query", query, "matches", len(matches), "to", n.to, "id", id)

	return outcome, nil
}
