package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/ticketwatch/internal/database"
	"github.com/nao1215/ticketwatch/internal/notify"
	"github.com/nao1215/ticketwatch/internal/store"
)

// JSONWriter outputs reports in JSON format for scripts and other tools.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// WriteCrawl outputs the crawl summary.
func (w *JSONWriter) WriteCrawl(summary *CrawlSummary) (int, error) {
	return w.writeJSON(summary)
}

// batchesReport is the JSON shape of WriteBatches.
type batchesReport struct {
	Source  string        `json:"source"`
	Batches []store.Batch `json:"batches"`
}

// WriteBatches outputs the records file contents.
func (w *JSONWriter) WriteBatches(source string, batches []store.Batch) (int, error) {
	if batches == nil {
		batches = []store.Batch{}
	}
	return w.writeJSON(batchesReport{Source: source, Batches: batches})
}

// WriteOutcome outputs a notify result.
func (w *JSONWriter) WriteOutcome(outcome *notify.Outcome) (int, error) {
	return w.writeJSON(outcome)
}

// WriteWatch outputs a watch run. Errors are rendered into the error field.
func (w *JSONWriter) WriteWatch(results []WatchResult) (int, error) {
	out := make([]WatchResult, len(results))
	for i, r := range results {
		r.Error = watchError(r)
		out[i] = r
	}
	return w.writeJSON(out)
}

// WriteRuns outputs crawl history entries.
func (w *JSONWriter) WriteRuns(runs []database.Run) (int, error) {
	type runJSON struct {
		ID          int64  `json:"id"`
		StartURL    string `json:"start_url"`
		Mode        string `json:"mode"`
		Persistence string `json:"persistence"`
		Pages       int    `json:"pages"`
		Records     int    `json:"records"`
		Truncated   bool   `json:"truncated"`
		StartedAt   string `json:"started_at"`
		FinishedAt  string `json:"finished_at"`
		OutputPath  string `json:"output_path,omitempty"`
	}

	out := make([]runJSON, len(runs))
	for i, run := range runs {
		out[i] = runJSON{
			ID:          run.ID,
			StartURL:    run.StartURL,
			Mode:        run.Mode.String(),
			Persistence: run.Persistence.String(),
			Pages:       run.Pages,
			Records:     run.RecordCount,
			Truncated:   run.Truncated,
			StartedAt:   run.StartedAt.Format("2006-01-02T15:04:05Z07:00"),
			FinishedAt:  run.FinishedAt.Format("2006-01-02T15:04:05Z07:00"),
			OutputPath:  run.OutputPath,
		}
	}
	return w.writeJSON(out)
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	data = append(data, '\n')

	return w.output.Write(data)
}
