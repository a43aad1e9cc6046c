// Package scanner finds records matching a search term in the records file.
//
// The scanner reads the file as plain lines rather than decoding it, so it
// accepts the timestamp preamble, append-mode files holding several
// batches, and entries that are damaged or incomplete.
package scanner
