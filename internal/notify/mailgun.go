package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mailgun/mailgun-go/v4"
)

// DefaultAPIBase is the Mailgun US region API base.
const DefaultAPIBase = mailgun.APIBaseUS

// APIBaseForRegion returns the API base of a Mailgun region, "us" or
// "eu". An empty region is the US region. An absolute http(s) URL, such
// as https://api.eu.mailgun.net/v3, is used as the API base itself.
func APIBaseForRegion(region string) (string, error) {
	region = strings.TrimSpace(region)
	if u, err := url.Parse(region); err == nil && u.Host != "" && (u.Scheme == "http" || u.Scheme == "https") {
		return strings.TrimRight(region, "/"), nil
	}

	switch strings.ToLower(region) {
	case "", "us":
		return mailgun.APIBaseUS, nil
	case "eu":
		return mailgun.APIBaseEU, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRegion, region)
	}
}

// defaultSendTimeout bounds a single send.
const defaultSendTimeout = 10 * time.Second

// Envelope is a message ready to be handed to a transport.
type Envelope struct {
	From    string
	To      string
	Subject string
	Text    string
	HTML    string
}

// Transport delivers an envelope and returns the provider's message ID.
type Transport interface {
	Send(ctx context.Context, env Envelope) (string, error)
}

// MailgunTransport sends mail through the Mailgun HTTP API.
type MailgunTransport struct {
	mg      *mailgun.MailgunImpl
	domain  string
	timeout time.Duration
}

// MailgunOption configures a MailgunTransport.
type MailgunOption func(*MailgunTransport)

// WithAPIBase sets the API base URL, e.g. https://api.eu.mailgun.net/v3.
func WithAPIBase(base string) MailgunOption {
	return func(t *MailgunTransport) {
		if base != "" {
			t.mg.SetAPIBase(strings.TrimRight(base, "/"))
		}
	}
}

// WithHTTPClient sets the HTTP client used to reach Mailgun.
func WithHTTPClient(client *http.Client) MailgunOption {
	return func(t *MailgunTransport) {
		if client != nil {
			t.mg.SetClient(client)
		}
	}
}

// WithSendTimeout sets the timeout of a single send.
func WithSendTimeout(d time.Duration) MailgunOption {
	return func(t *MailgunTransport) {
		if d > 0 {
			t.timeout = d
		}
	}
}

// NewMailgunTransport creates a transport for domain authenticated by apiKey.
func NewMailgunTransport(domain, apiKey string, opts ...MailgunOption) (*MailgunTransport, error) {
	if strings.TrimSpace(domain) == "" || strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingCredentials
	}

	t := &MailgunTransport{
		mg:      mailgun.NewMailgun(domain, apiKey),
		domain:  domain,
		timeout: defaultSendTimeout,
	}
	t.mg.SetAPIBase(DefaultAPIBase)
	t.mg.SetClient(&http.Client{Timeout: defaultSendTimeout})

	for _, opt := range opts {
		opt(t)
	}

	return t, nil
}

// Sender returns the default sender address, notifier@<domain>.
func (t *MailgunTransport) Sender() string {
	return "notifier@" + t.domain
}

// Send delivers env. An empty From uses Sender. The message is sent once;
// failures are not retried.
func (t *MailgunTransport) Send(ctx context.Context, env Envelope) (string, error) {
	from := env.From
	if from == "" {
		from = t.Sender()
	}

	m := t.mg.NewMessage(from, env.Subject, env.Text, env.To)
	if env.HTML != "" {
		m.SetHtml(env.HTML)
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	_, id, err := t.mg.Send(ctx, m)
	if err != nil {
		return "", fmt.Errorf("%w: mailgun: %w", ErrTransport, err)
	}

	return id, nil
}
