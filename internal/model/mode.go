package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownMode is returned when a mode or persistence name is not recognised.
var ErrUnknownMode = errors.New("unknown mode")

// Mode selects how listing entries become records.
type Mode string

const (
	// LinkMode turns every surviving entry into a record with a title and link.
	LinkMode Mode = "link"

	// AlternatingMode pairs consecutive entries: the first is the title,
	// the second is reinterpreted as that record's location.
	AlternatingMode Mode = "alternating"
)

// String returns the mode name.
func (m Mode) String() string {
	return string(m)
}

// ParseMode converts a mode name (case-insensitive) to a Mode.
// An empty name yields LinkMode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(LinkMode):
		return LinkMode, nil
	case string(AlternatingMode):
		return AlternatingMode, nil
	default:
		return "", fmt.Errorf("%w: %q (expected %q or %q)", ErrUnknownMode, s, LinkMode, AlternatingMode)
	}
}

// Persistence selects how a crawl result is written to the records file.
type Persistence string

const (
	// Overwrite replaces the records file wholesale on every crawl.
	Overwrite Persistence = "overwrite"

	// Append adds every crawl output to the end of the records file.
	// This is the legacy behaviour; see the store package for the file layout.
	Append Persistence = "append"
)

// String returns the persistence name.
func (p Persistence) String() string {
	return string(p)
}

// ParsePersistence converts a persistence name (case-insensitive) to a Persistence.
// An empty name yields Overwrite.
func ParsePersistence(s string) (Persistence, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(Overwrite):
		return Overwrite, nil
	case string(Append):
		return Append, nil
	default:
		return "", fmt.Errorf("%w: persistence %q (expected %q or %q)", ErrUnknownMode, s, Overwrite, Append)
	}
}
