package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigFile is the name of the configuration file looked up in
	// the working and home directories.
	DefaultConfigFile = ".ticketwatch"

	// XDGConfigFile is the name of the configuration file inside XDGConfigDir.
	XDGConfigFile = "config.yaml"
)

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// LoadConfigFile reads the YAML configuration file at path.
//
// The file has four optional sections: defaults (selectors, sentinel,
// mode, persistence and page limit of every listing), sites (the same
// settings per listing host), watch (the search terms checked by the
// watch command) and notify (recipient, sender and Mailgun region).
// Mailgun credentials never live in this file.
//
// A missing file yields ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("invalid configuration file %s: %w", path, err)
	}

	if cf.Sites == nil {
		cf.Sites = make(map[string]SiteConfig)
	}

	return &cf, nil
}

// EmptyFile returns a configuration file with no settings.
func EmptyFile() *File {
	return &File{Sites: make(map[string]SiteConfig)}
}

// XDGConfigPath returns the configuration file inside XDGConfigDir.
func XDGConfigPath() string {
	return filepath.Join(XDGConfigDir(), XDGConfigFile)
}

// FindConfigFile returns the configuration file to load, or "" when there
// is none. An explicit configPath is used only if it exists. Otherwise
// the locations of SearchPaths are tried in order.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	for _, candidate := range SearchPaths() {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return ""
}

// SearchPaths lists where FindConfigFile looks without an explicit path:
// .ticketwatch in the working directory, .ticketwatch in the home
// directory, then config.yaml in the XDG config directory.
func SearchPaths() []string {
	paths := make([]string, 0, 3)

	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, DefaultConfigFile))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, DefaultConfigFile))
	}

	return append(paths, XDGConfigPath())
}
