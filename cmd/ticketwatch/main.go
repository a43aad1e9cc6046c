// Package main provides the entry point for the ticketwatch CLI.
//
// ticketwatch crawls the iabilet theatre listing, keeps the event titles
// in a local records file and mails you when an event matching a search
// term shows up.
//
// Usage:
//
//	ticketwatch crawl
//	ticketwatch notify <search term>
//	ticketwatch watch
//
// See --help for all available options.
package main

// main is the entry point for ticketwatch.
func main() {
	Execute()
}
