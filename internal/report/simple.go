package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/ticketwatch/internal/database"
	"github.com/nao1215/ticketwatch/internal/notify"
	"github.com/nao1215/ticketwatch/internal/store"
)

// SimpleWriter outputs human-readable text reports for terminal display.
type SimpleWriter struct {
	baseWriter

	// verbose lists every record of a crawl instead of a count only.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// WriteCrawl outputs the crawl summary.
func (w *SimpleWriter) WriteCrawl(summary *CrawlSummary) (int, error) {
	var sb strings.Builder
	result := summary.Result

	w.writeTitle(&sb, "CRAWL SUMMARY")

	fmt.Fprintf(&sb, "Start URL:    %s\n", result.StartURL)
	fmt.Fprintf(&sb, "Mode:         %s\n", result.Mode)
	fmt.Fprintf(&sb, "Pages:        %d\n", result.Pages)
	fmt.Fprintf(&sb, "Records:      %d\n", len(result.Records))
	fmt.Fprintf(&sb, "Finished:     %s\n", result.FinishedAt.Format(timeLayout))
	fmt.Fprintf(&sb, "Status:       %s\n", crawlStatus(result))
	fmt.Fprintf(&sb, "Saved to:     %s (%s)\n", summary.OutputPath, summary.Persistence)
	if summary.RunID > 0 {
		fmt.Fprintf(&sb, "History ID:   %d\n", summary.RunID)
	}
	sb.WriteString("\n")

	if w.verbose && len(result.Records) > 0 {
		sb.WriteString(rule("-"))
		sb.WriteString("RECORDS\n")
		sb.WriteString(rule("-"))
		sb.WriteString("\n")
		for _, r := range result.Records {
			fmt.Fprintf(&sb, "  * %s\n    %s\n", r.Title, recordTarget(r))
		}
		sb.WriteString("\n")
	}

	w.writeFooter(&sb)
	return w.output.Write([]byte(sb.String()))
}

// WriteBatches outputs every batch of a records file.
func (w *SimpleWriter) WriteBatches(source string, batches []store.Batch) (int, error) {
	var sb strings.Builder

	w.writeTitle(&sb, "STORED RECORDS")
	fmt.Fprintf(&sb, "File:    %s\n", source)
	fmt.Fprintf(&sb, "Batches: %d\n\n", len(batches))

	for i, b := range batches {
		sb.WriteString(rule("-"))
		fmt.Fprintf(&sb, "%s: %d record(s)\n", batchLabel(i, b), len(b.Records))
		sb.WriteString(rule("-"))
		for _, r := range b.Records {
			fmt.Fprintf(&sb, "  * %s\n    %s\n", r.Title, recordTarget(r))
		}
		sb.WriteString("\n")
	}

	w.writeFooter(&sb)
	return w.output.Write([]byte(sb.String()))
}

// WriteOutcome outputs a notify result.
func (w *SimpleWriter) WriteOutcome(outcome *notify.Outcome) (int, error) {
	var sb strings.Builder
	w.writeOutcome(&sb, outcome)
	return w.output.Write([]byte(sb.String()))
}

// WriteWatch outputs a watch run.
func (w *SimpleWriter) WriteWatch(results []WatchResult) (int, error) {
	var sb strings.Builder

	w.writeTitle(&sb, "WATCH RESULTS")
	for _, r := range results {
		if msg := watchError(r); msg != "" || r.Outcome == nil {
			fmt.Fprintf(&sb, "[!] %s: %s\n\n", r.Term, msg)
			continue
		}
		w.writeOutcome(&sb, r.Outcome)
	}

	w.writeFooter(&sb)
	return w.output.Write([]byte(sb.String()))
}

// WriteRuns outputs crawl history entries as aligned columns.
func (w *SimpleWriter) WriteRuns(runs []database.Run) (int, error) {
	var sb strings.Builder

	w.writeTitle(&sb, "CRAWL HISTORY")
	if len(runs) == 0 {
		sb.WriteString("  No crawls recorded\n\n")
		w.writeFooter(&sb)
		return w.output.Write([]byte(sb.String()))
	}

	fmt.Fprintf(&sb, "%-6s %-23s %-11s %-9s %5s %7s\n", "ID", "FINISHED", "MODE", "STORE", "PAGES", "RECORDS")
	for _, run := range runs {
		pages := fmt.Sprintf("%d", run.Pages)
		if run.Truncated {
			pages += "+"
		}
		fmt.Fprintf(&sb, "%-6d %-23s %-11s %-9s %5s %7d\n",
			run.ID,
			run.FinishedAt.Local().Format(timeLayout),
			run.Mode,
			run.Persistence,
			pages,
			run.RecordCount,
		)
	}
	sb.WriteString("\n")

	w.writeFooter(&sb)
	return w.output.Write([]byte(sb.String()))
}

// writeOutcome writes the matches of one term.
func (w *SimpleWriter) writeOutcome(sb *strings.Builder, outcome *notify.Outcome) {
	if !outcome.Found() {
		fmt.Fprintf(sb, "[-] %s: no matching events in %s\n\n", outcome.Query, outcome.Source)
		return
	}

	fmt.Fprintf(sb, "[+] %s: %d matching event(s) in %s\n", outcome.Query, len(outcome.Matches), outcome.Source)
	for _, m := range outcome.Matches {
		fmt.Fprintf(sb, "  * %s\n    %s\n", m.Title, m.Link)
	}

	switch {
	case outcome.Sent:
		fmt.Fprintf(sb, "  Notification sent (id %s)\n", outcome.MessageID)
	case outcome.Message != nil:
		fmt.Fprintf(sb, "  Dry run, not sent. Subject: %s\n", outcome.Message.Subject)
	}
	sb.WriteString("\n")
}

// writeTitle writes a boxed section title.
func (w *SimpleWriter) writeTitle(sb *strings.Builder, title string) {
	sb.WriteString("\n")
	sb.WriteString(rule("="))
	fmt.Fprintf(sb, "%s\n", title)
	sb.WriteString(rule("="))
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(rule("="))
	sb.WriteString("Report generated by ticketwatch\n")
	sb.WriteString("https://github.com/nao1215/ticketwatch\n")
	sb.WriteString(rule("="))
}
