// Package config provides configuration structures and utilities for ticketwatch.
//
// Settings come from three places, in order of precedence:
//   - command line flags
//   - the environment, optionally seeded from a .env file (Mailgun credentials
//     and the recipient)
//   - the .ticketwatch YAML file (per-site crawl settings, watched terms and
//     the notify section)
//
// Data files live in the XDG data directory (~/.local/share/ticketwatch on
// Linux): the records file play_titles.json and the crawl history database.
package config
