// Package database provides SQLite-based storage for the crawl history.
//
// Every successful crawl is recorded as a row in crawl_runs together with
// its records in crawl_records, so that past listings can be inspected
// after the records file has been overwritten. The database lives in a
// single file (ticketwatch.db) opened through the CGO-free
// modernc.org/sqlite driver in WAL mode.
package database
