package config

import (
	"net/url"
	"strings"
)

// SiteConfig holds site-specific crawl settings for a listing host.
// Zero values mean "not set"; GetSiteConfig fills them from the defaults.
type SiteConfig struct {
	// EntrySelector is the CSS selector of listing entries.
	EntrySelector string `yaml:"entrySelector,omitempty"`

	// NextPageSelector is the CSS selector of the "next page" link.
	NextPageSelector string `yaml:"nextPageSelector,omitempty"`

	// Sentinel is an entry label that is never a title (matched
	// case-insensitively). Use "-" to disable the default sentinel.
	Sentinel string `yaml:"sentinel,omitempty"`

	// Mode is "link" or "alternating".
	Mode string `yaml:"mode,omitempty"`

	// Persistence is "overwrite" or "append".
	Persistence string `yaml:"persistence,omitempty"`

	// MaxPages overrides the global page limit for this site.
	MaxPages int `yaml:"maxPages,omitempty"`

	// UserAgent overrides the User-Agent for this site.
	UserAgent string `yaml:"userAgent,omitempty"`
}

// NoSentinel disables sentinel filtering when used as SiteConfig.Sentinel.
const NoSentinel = "-"

// Notify holds the notification section of the configuration file.
type Notify struct {
	// To is the notification recipient.
	To string `yaml:"to,omitempty"`

	// From overrides the sender address.
	From string `yaml:"from,omitempty"`

	// Region is the Mailgun region, "us" or "eu", or an API base URL.
	Region string `yaml:"region,omitempty"`
}

// File represents the structure of the .ticketwatch configuration file.
type File struct {
	// Sites maps listing hosts (e.g. "m.iabilet.ro") to their configuration.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults applies to every site unless overridden in Sites.
	Defaults SiteConfig `yaml:"defaults,omitempty"`

	// Watch lists the search terms checked by the watch command.
	Watch []string `yaml:"watch,omitempty"`

	// Notify holds the notification settings.
	Notify Notify `yaml:"notify,omitempty"`
}

// GetSiteConfig returns the configuration for a listing URL or host.
// It merges the site-specific configuration with defaults.
func (cf *File) GetSiteConfig(target string) SiteConfig {
	result := cf.Defaults

	siteConfig, ok := cf.Sites[siteKey(target)]
	if !ok {
		return result
	}

	if siteConfig.EntrySelector != "" {
		result.EntrySelector = siteConfig.EntrySelector
	}
	if siteConfig.NextPageSelector != "" {
		result.NextPageSelector = siteConfig.NextPageSelector
	}
	if siteConfig.Sentinel != "" {
		result.Sentinel = siteConfig.Sentinel
	}
	if siteConfig.Mode != "" {
		result.Mode = siteConfig.Mode
	}
	if siteConfig.Persistence != "" {
		result.Persistence = siteConfig.Persistence
	}
	if siteConfig.MaxPages != 0 {
		result.MaxPages = siteConfig.MaxPages
	}
	if siteConfig.UserAgent != "" {
		result.UserAgent = siteConfig.UserAgent
	}

	return result
}

// WatchTerms returns the configured search terms, trimmed, without
// blanks and duplicates (compared case-insensitively).
func (cf *File) WatchTerms() []string {
	seen := make(map[string]bool, len(cf.Watch))
	terms := make([]string, 0, len(cf.Watch))
	for _, term := range cf.Watch {
		term = strings.TrimSpace(term)
		key := strings.ToLower(term)
		if term == "" || seen[key] {
			continue
		}
		seen[key] = true
		terms = append(terms, term)
	}
	return terms
}

// siteKey reduces a URL to its host. Plain hosts are returned as is.
func siteKey(target string) string {
	target = strings.TrimSpace(target)
	if strings.Contains(target, "://") {
		if u, err := url.Parse(target); err == nil && u.Host != "" {
			return strings.ToLower(u.Host)
		}
	}
	return strings.ToLower(strings.TrimSuffix(target, "/"))
}
