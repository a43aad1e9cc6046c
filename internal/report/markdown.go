package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/ticketwatch/internal/database"
	"github.com/nao1215/ticketwatch/internal/model"
	"github.com/nao1215/ticketwatch/internal/notify"
	"github.com/nao1215/ticketwatch/internal/store"
)

// MarkdownWriter outputs reports in GitHub Flavored Markdown, for sharing
// a listing or pasting it into an issue.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// WriteCrawl outputs the crawl summary followed by the record table.
func (w *MarkdownWriter) WriteCrawl(summary *CrawlSummary) (int, error) {
	md := markdown.NewMarkdown(w.output)
	result := summary.Result

	md.H1("Crawl Summary")
	md.PlainText("")

	rows := [][]string{
		{"Start URL", "`" + result.StartURL + "`"},
		{"Mode", result.Mode.String()},
		{"Pages", strconv.Itoa(result.Pages)},
		{"Records", strconv.Itoa(len(result.Records))},
		{"Finished", result.FinishedAt.Format(timeLayout)},
		{"Saved to", "`" + summary.OutputPath + "` (" + summary.Persistence.String() + ")"},
	}
	if summary.RunID > 0 {
		rows = append(rows, []string{"History ID", strconv.FormatInt(summary.RunID, 10)})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")

	switch {
	case result.Truncated:
		md.Warningf("The crawl stopped at the page limit after %d pages. Later pages were not fetched.", result.Pages)
	case len(result.Records) == 0:
		md.Note("No listing entries were found.")
	default:
		md.Tip(crawlStatus(result))
	}
	md.PlainText("")

	if len(result.Records) > 0 {
		md.H2("Records")
		md.PlainText("")
		w.writeRecordTable(md, result.Records)
	}

	w.writeFooter(md)
	return len(md.String()), md.Build()
}

// WriteBatches outputs every batch of a records file as a table.
func (w *MarkdownWriter) WriteBatches(source string, batches []store.Batch) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Stored Records")
	md.PlainText("")
	md.PlainTextf("File: `%s`", source)
	md.PlainText("")

	if len(batches) == 0 {
		md.Note("The records file contains no batches.")
		md.PlainText("")
		w.writeFooter(md)
		return len(md.String()), md.Build()
	}

	if len(batches) > 1 {
		w.writeBatchChart(md, batches)
	}

	for i, b := range batches {
		md.H2(batchLabel(i, b))
		md.PlainText("")
		if len(b.Records) == 0 {
			md.PlainText("No records.")
			md.PlainText("")
			continue
		}
		w.writeRecordTable(md, b.Records)
	}

	w.writeFooter(md)
	return len(md.String()), md.Build()
}

// WriteOutcome outputs a notify result.
func (w *MarkdownWriter) WriteOutcome(outcome *notify.Outcome) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1(fmt.Sprintf("Events matching '%s'", outcome.Query))
	md.PlainText("")
	w.writeOutcome(md, outcome)

	w.writeFooter(md)
	return len(md.String()), md.Build()
}

// WriteWatch outputs a watch run with one section per term.
func (w *MarkdownWriter) WriteWatch(results []WatchResult) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Watch Results")
	md.PlainText("")

	rows := make([][]string, 0, len(results))
	for _, r := range results {
		status := "no match"
		switch {
		case watchError(r) != "":
			status = "failed"
		case r.Outcome.Found() && r.Outcome.Sent:
			status = "notified"
		case r.Outcome.Found():
			status = "found"
		}
		matches := "0"
		if r.Outcome != nil {
			matches = strconv.Itoa(len(r.Outcome.Matches))
		}
		rows = append(rows, []string{r.Term, matches, status})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Term", "Matches", "Status"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, r := range results {
		md.H2(r.Term)
		md.PlainText("")
		if msg := watchError(r); msg != "" || r.Outcome == nil {
			md.Cautionf("%s", msg)
			md.PlainText("")
			continue
		}
		w.writeOutcome(md, r.Outcome)
	}

	w.writeFooter(md)
	return len(md.String()), md.Build()
}

// WriteRuns outputs crawl history entries as a table.
func (w *MarkdownWriter) WriteRuns(runs []database.Run) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Crawl History")
	md.PlainText("")

	if len(runs) == 0 {
		md.Note("No crawls recorded.")
		md.PlainText("")
		w.writeFooter(md)
		return len(md.String()), md.Build()
	}

	rows := make([][]string, len(runs))
	for i, run := range runs {
		truncated := "no"
		if run.Truncated {
			truncated = "yes"
		}
		rows[i] = []string{
			strconv.FormatInt(run.ID, 10),
			run.FinishedAt.Local().Format(timeLayout),
			run.Mode.String(),
			run.Persistence.String(),
			strconv.Itoa(run.Pages),
			strconv.Itoa(run.RecordCount),
			truncated,
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"ID", "Finished", "Mode", "Persistence", "Pages", "Records", "Page limit hit"},
		Rows:   rows,
	})
	md.PlainText("")

	w.writeFooter(md)
	return len(md.String()), md.Build()
}

// writeOutcome writes the match table of one term.
func (w *MarkdownWriter) writeOutcome(md *markdown.Markdown, outcome *notify.Outcome) {
	if !outcome.Found() {
		md.Note(fmt.Sprintf("No events matching '%s' in `%s`.", outcome.Query, outcome.Source))
		md.PlainText("")
		return
	}

	rows := make([][]string, len(outcome.Matches))
	for i, m := range outcome.Matches {
		rows[i] = []string{m.Title, m.Link}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Title", "Link"},
		Rows:   rows,
	})
	md.PlainText("")

	switch {
	case outcome.Sent:
		md.Tip("Notification sent (id " + outcome.MessageID + ").")
	case outcome.Message != nil:
		md.Importantf("Dry run, not sent. Subject: %s", outcome.Message.Subject)
	}
	md.PlainText("")
}

// writeRecordTable writes records with their link or location.
func (w *MarkdownWriter) writeRecordTable(md *markdown.Markdown, records []model.Record) {
	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = []string{strconv.Itoa(i + 1), truncateString(r.Title, 80), recordTarget(r)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"#", "Title", "Link / Location"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeBatchChart writes a mermaid pie chart of records per batch.
func (w *MarkdownWriter) writeBatchChart(md *markdown.Markdown, batches []store.Batch) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Records per Batch"),
		piechart.WithShowData(true),
	)

	empty := true
	for i, b := range batches {
		if len(b.Records) == 0 {
			continue
		}
		empty = false
		chart.LabelAndIntValue(batchLabel(i, b), uint64(len(b.Records)))
	}
	if empty {
		return
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [ticketwatch](https://github.com/nao1215/ticketwatch)*")
}
