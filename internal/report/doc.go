// Package report renders crawl summaries, stored records, search results
// and the crawl history.
//
// This package contains writers for different output formats:
//   - SimpleWriter: Human-readable text output for terminal display
//   - MarkdownWriter: GitHub Flavored Markdown with tables and alerts
//   - JSONWriter: Structured JSON output for tool integration
//
// Writers implement the Writer interface; NewWriter picks one from the
// --json and --markdown flags.
package report
