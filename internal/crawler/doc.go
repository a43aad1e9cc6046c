// Package crawler walks the pages of a paginated listing and extracts
// listing records from them.
//
// # Components
//
//   - Parser: extracts records and the "more results" link from one page
//     using CSS selectors (link mode or alternating title/location mode)
//   - HTTPFetcher: fetches pages with bounded exponential backoff
//   - Spider: the crawl state machine
//     (Idle → FetchingPage → ExtractingRecords → FollowingNextPage | Finalizing → Done)
//
// # Termination
//
// A Spider follows at most one next link per page. It stops when a page has
// no next link, when the next link points at a page it already fetched, or
// when the page limit is reached.
//
// # Failure
//
// Markup that does not match the selectors yields an empty page, not an
// error. A fetch failure aborts the crawl and the records gathered so far
// are discarded.
//
// # Usage
//
//	fetcher := crawler.NewHTTPFetcher(client, crawler.WithUserAgent(ua))
//	spider := crawler.NewSpider(fetcher, crawler.WithSink(recordStore))
//	result, err := spider.Crawl(ctx, "https://m.iabilet.ro/bilete-teatru/")
package crawler
