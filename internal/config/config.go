package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/ticketwatch/internal/crawler"
	"github.com/nao1215/ticketwatch/internal/model"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "ticketwatch"

	// DefaultStartURL is the first page of the theatre listing.
	DefaultStartURL = "https://m.iabilet.ro/bilete-teatru/"

	// DefaultTimeout bounds a single HTTP request. Each retry gets its own
	// timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxPages caps a crawl whose "next page" links never run out.
	DefaultMaxPages = 50

	// DefaultCrawlDelay is the pause between two page fetches.
	DefaultCrawlDelay = 1 * time.Second

	// DefaultAttempts is the number of tries per page before the crawl fails.
	DefaultAttempts = 3

	// DefaultMaxBodySize limits how much of a listing page is read.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

	// DefaultRecordsFile is the name of the records file inside the data directory.
	DefaultRecordsFile = "play_titles.json"

	// DefaultDBFile is the name of the crawl history database.
	DefaultDBFile = "ticketwatch.db"

	// DefaultWatchConcurrency is the number of search terms checked at once by watch.
	DefaultWatchConcurrency = 4

	// DefaultEnvFile holds Mailgun credentials when they are not exported.
	DefaultEnvFile = ".env"
)

// Mail holds the Mailgun settings used by notify and watch.
type Mail struct {
	// APIKey is the Mailgun private API key.
	APIKey string

	// Domain is the Mailgun sending domain. The sender defaults to
	// notifier@<Domain>.
	Domain string

	// Region is the Mailgun region, "us" (default) or "eu", or an API base URL.
	Region string

	// APIBase overrides the Mailgun API base URL and takes precedence over Region.
	APIBase string

	// To is the notification recipient.
	To string

	// From overrides the sender address.
	From string
}

// Config holds all configuration options for ticketwatch.
// It is populated from CLI flags, the .ticketwatch file and the
// environment, and passed to the commands explicitly.
type Config struct {
	// StartURL is the first listing page of a crawl.
	StartURL string

	// Mode selects link or alternating extraction.
	Mode model.Mode

	// Persistence selects overwrite or append for the records file.
	Persistence model.Persistence

	// RecordsFile is the path of the records file written by crawl and
	// read by notify, watch and records.
	RecordsFile string

	// Timeout is the timeout of a single HTTP request.
	Timeout time.Duration

	// MaxPages caps the number of pages of one crawl.
	MaxPages int

	// CrawlDelay is the pause between two page fetches.
	CrawlDelay time.Duration

	// Attempts is the number of tries per page.
	Attempts int

	// UserAgent is sent with every listing request.
	UserAgent string

	// ProxyAddress routes fetches through a SOCKS5 proxy ("host:port") when set.
	ProxyAddress string

	// MaxBodySize is the maximum number of bytes read per page.
	MaxBodySize int64

	// Verbose enables debug logging.
	Verbose bool

	// LogJSON switches log output to JSON.
	LogJSON bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, .ticketwatch is searched in the current directory and
	// then in the user's home directory.
	ConfigFilePath string

	// SiteConfigs holds the contents of the configuration file.
	SiteConfigs *File

	// JSONReport prints output as JSON. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport prints output as Markdown. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile writes the report to a file instead of stdout.
	ReportFile string

	// DBDir is the directory of the crawl history database.
	DBDir string

	// SaveToDB records every successful crawl in the history database.
	SaveToDB bool

	// Mail holds the notification settings.
	Mail Mail

	// WatchConcurrency is the number of terms checked concurrently by watch.
	WatchConcurrency int
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		StartURL:         DefaultStartURL,
		Mode:             model.LinkMode,
		Persistence:      model.Overwrite,
		RecordsFile:      DefaultRecordsPath(),
		Timeout:          DefaultTimeout,
		MaxPages:         DefaultMaxPages,
		CrawlDelay:       DefaultCrawlDelay,
		Attempts:         DefaultAttempts,
		UserAgent:        crawler.DefaultUserAgent,
		MaxBodySize:      DefaultMaxBodySize,
		DBDir:            XDGDataDir(),
		SaveToDB:         true,
		WatchConcurrency: DefaultWatchConcurrency,
	}
}

// XDGDataDir returns the XDG data directory for ticketwatch.
// On Linux: ~/.local/share/ticketwatch
// On macOS: ~/Library/Application Support/ticketwatch
// On Windows: %LOCALAPPDATA%\ticketwatch
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for ticketwatch.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// DefaultRecordsPath returns the records file inside the data directory.
func DefaultRecordsPath() string {
	return filepath.Join(XDGDataDir(), DefaultRecordsFile)
}

// Validate checks the crawl and output settings.
// It returns the first problem found as a sentinel error.
func (c *Config) Validate() error {
	if c.StartURL == "" {
		return ErrNoStartURL
	}

	if c.RecordsFile == "" {
		return ErrNoRecordsFile
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.MaxPages <= 0 {
		return ErrInvalidMaxPages
	}

	if c.CrawlDelay < 0 {
		return ErrInvalidCrawlDelay
	}

	if c.Attempts <= 0 {
		return ErrInvalidAttempts
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	if c.WatchConcurrency <= 0 {
		return ErrInvalidConcurrency
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	return nil
}

// ValidateMail checks that a notification can actually be sent.
// Dry runs skip this check.
func (c *Config) ValidateMail() error {
	if c.Mail.APIKey == "" || c.Mail.Domain == "" {
		return ErrMissingMailCredentials
	}
	if c.Mail.To == "" {
		return ErrNoRecipient
	}
	return nil
}
