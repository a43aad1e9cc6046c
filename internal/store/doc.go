// Package store persists crawl results to the records file and reads
// them back.
//
// # File layout
//
// Every crawl writes one batch: an optional metadata line followed by an
// indented JSON array of records, one field per line:
//
//	// Timestamp: 2024-03-01T20:15:00
//	[
//	    {
//	        "title": "Hamlet",
//	        "link": "https://m.iabilet.ro/bilete-hamlet/"
//	    }
//	]
//
// In overwrite mode the file holds exactly one batch. In append mode the
// file is a sequence of independent batches; DecodeBatches reads both.
//
// The layout keeps "title" and "link" on separate lines so that the
// line-oriented scanner in package scanner can read the file without a
// JSON parser.
package store
