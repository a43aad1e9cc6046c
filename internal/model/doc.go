// Package model defines the core data structures shared by ticketwatch.
//
// This package contains the following main types:
//   - Record: One listing entry extracted from a page (title plus link or location)
//   - PageResult: The records and next-page link extracted from a single page
//   - Match: A title/link pair recovered by the record scanner
//   - Mode: How listing entries are turned into records
//   - Persistence: How a crawl result is written to the records file
//
// The models are serializable to JSON for the records file and to the
// history database.
package model
