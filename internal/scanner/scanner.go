package scanner

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"

	"github.com/nao1215/ticketwatch/internal/model"
)

// ErrSourceNotFound is returned by ScanFile when the records file does not exist.
var ErrSourceNotFound = errors.New("records file not found")

// Field markers recognised on a line.
const (
	titleField = `"title":`
	linkField  = `"link":`
)

// maxLineSize is the longest line the scanner accepts.
const maxLineSize = 1024 * 1024

// Scan reads r line by line and returns the (title, link) pairs whose
// title line contains query, compared case-insensitively.
//
// The scan keeps two slots. A matching title line fills the title slot,
// replacing any unpaired title. A link line fills the link slot while a
// title is pending. When both are filled a match is emitted and the slots
// are cleared. A matching title line with an empty value discards the
// pending pair; a link line with an empty value is skipped.
//
// Pairing is positional: a title whose link line comes after the next
// matching title line is lost.
func Scan(r io.Reader, query string) ([]model.Match, error) {
	fold := cases.Fold()
	needle := fold.String(query)

	matches := make([]model.Match, 0)
	var pendingTitle, pendingLink string

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())

		switch {
		case strings.Contains(line, titleField) && strings.Contains(fold.String(line), needle):
			pendingTitle, pendingLink = fieldValue(line), ""
		case strings.Contains(line, linkField) && pendingTitle != "":
			if link := fieldValue(line); link != "" {
				pendingLink = link
			}
		}

		if pendingTitle != "" && pendingLink != "" {
			matches = append(matches, model.Match{Title: pendingTitle, Link: pendingLink})
			pendingTitle, pendingLink = "", ""
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}

	return matches, nil
}

// ScanFile scans the records file at path.
func ScanFile(path, query string) ([]model.Match, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, path)
		}
		return nil, fmt.Errorf("failed to open records file: %w", err)
	}
	defer f.Close()

	return Scan(f, query)
}

// fieldValue returns the value after the first ':' of line. A JSON string
// literal is unescaped; anything else has surrounding spaces, '"' and ','
// removed.
func fieldValue(line string) string {
	_, value, found := strings.Cut(line, ":")
	if !found {
		return ""
	}
	value = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(value), ","))

	if strings.HasPrefix(value, `"`) {
		var s string
		if err := json.Unmarshal([]byte(value), &s); err == nil {
			return s
		}
	}

	return strings.Trim(value, `",`)
}
