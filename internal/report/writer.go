package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/ticketwatch/internal/crawler"
	"github.com/nao1215/ticketwatch/internal/database"
	"github.com/nao1215/ticketwatch/internal/model"
	"github.com/nao1215/ticketwatch/internal/notify"
	"github.com/nao1215/ticketwatch/internal/store"
)

// Writer defines the interface for report output.
// Every method returns the number of bytes written.
type Writer interface {
	// WriteCrawl outputs the summary of a finished crawl.
	WriteCrawl(summary *CrawlSummary) (int, error)

	// WriteBatches outputs the contents of a records file.
	WriteBatches(source string, batches []store.Batch) (int, error)

	// WriteOutcome outputs the result of a single notify run.
	WriteOutcome(outcome *notify.Outcome) (int, error)

	// WriteWatch outputs the results of a watch run, one per term.
	WriteWatch(results []WatchResult) (int, error)

	// WriteRuns outputs crawl history entries.
	WriteRuns(runs []database.Run) (int, error)
}

// CrawlSummary describes a crawl after its records were persisted.
type CrawlSummary struct {
	// Result is the crawl result.
	Result *crawler.Result `json:"result"`

	// Persistence is how the records file was written.
	Persistence model.Persistence `json:"persistence"`

	// OutputPath is the records file.
	OutputPath string `json:"output_path"`

	// RunID is the history entry of the crawl, 0 when history is disabled.
	RunID int64 `json:"run_id,omitempty"`
}

// WatchResult is the outcome of one watched term.
type WatchResult struct {
	// Term is the search term.
	Term string `json:"term"`

	// Outcome is nil when the check failed before scanning.
	Outcome *notify.Outcome `json:"outcome,omitempty"`

	// Err is the failure of the term, if any.
	Err error `json:"-"`

	// Error is Err as text, for JSON output.
	Error string `json:"error,omitempty"`
}

// Format selects a Writer implementation.
type Format int

const (
	// FormatText is human-readable plain text.
	FormatText Format = iota
	// FormatJSON is indented JSON.
	FormatJSON
	// FormatMarkdown is GitHub Flavored Markdown.
	FormatMarkdown
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatText:
		return "text"
	case FormatJSON:
		return "json"
	case FormatMarkdown:
		return "markdown"
	default:
		return "unknown"
	}
}

// SelectFormat maps the --json and --markdown flags to a Format.
func SelectFormat(jsonOutput, markdownOutput bool) Format {
	switch {
	case jsonOutput:
		return FormatJSON
	case markdownOutput:
		return FormatMarkdown
	default:
		return FormatText
	}
}

// NewWriter returns the Writer for format.
func NewWriter(output io.Writer, format Format) Writer {
	switch format {
	case FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint())
	case FormatMarkdown:
		return NewMarkdownWriter(output)
	default:
		return NewSimpleWriter(output)
	}
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

const timeLayout = "2006-01-02 15:04:05 MST"

// crawlStatus describes how a crawl ended.
func crawlStatus(result *crawler.Result) string {
	if result.Truncated {
		return fmt.Sprintf("Stopped at page limit (%d pages)", result.Pages)
	}
	return "Complete"
}

// recordTarget returns the link or location of a record, or "-".
func recordTarget(r model.Record) string {
	switch {
	case r.Link != "":
		return r.Link
	case r.Location != "":
		return r.Location
	default:
		return "-"
	}
}

// batchLabel returns a display label for a batch.
func batchLabel(index int, b store.Batch) string {
	if t, ok := b.Time(); ok {
		return fmt.Sprintf("Batch %d (%s)", index+1, t.Format("2006-01-02 15:04:05"))
	}
	if b.Timestamp != "" {
		return fmt.Sprintf("Batch %d (%s)", index+1, b.Timestamp)
	}
	return fmt.Sprintf("Batch %d", index+1)
}

// watchError returns the error text of a watch result.
func watchError(r WatchResult) string {
	if r.Err != nil {
		return r.Err.Error()
	}
	return r.Error
}

// truncateString truncates a string to maxLen runes with ellipsis.
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// rule returns a horizontal rule of width 70.
func rule(ch string) string {
	return strings.Repeat(ch, 70) + "\n"
}
