package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/ticketwatch/internal/config"
	"github.com/nao1215/ticketwatch/internal/crawler"
	"github.com/nao1215/ticketwatch/internal/database"
	"github.com/nao1215/ticketwatch/internal/model"
	"github.com/nao1215/ticketwatch/internal/report"
	"github.com/nao1215/ticketwatch/internal/store"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [start-url]",
		Short: "Crawl the theatre listing and save the event records",
		Long: `Crawl fetches the theatre listing page by page, following the "next page"
link until it runs out, and saves every event title to the records file.

Pages are fetched one after another with a short delay in between. A page
that cannot be fetched aborts the crawl and leaves the records file as it
was. Each successful crawl is also recorded in the history database.

Examples:
  # Crawl the default listing
  ticketwatch crawl

  # Keep appending crawls to the records file instead of replacing it
  ticketwatch crawl --persistence append

  # Read title/location pairs and write the summary as JSON
  ticketwatch crawl --mode alternating --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCrawlCmd,
	}

	cmd.Flags().String("mode", "", "Extraction mode: link or alternating (default: link)")
	cmd.Flags().String("persistence", "", "Records file persistence: overwrite or append (default: overwrite)")
	cmd.Flags().StringP("file", "f", "", "Records file path (default: play_titles.json in the data directory)")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages, "Maximum number of pages to crawl")
	cmd.Flags().Duration("delay", config.DefaultCrawlDelay, "Delay between page requests")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout, "Timeout of a single request")
	cmd.Flags().Int("retries", config.DefaultAttempts, "Attempts per page before the crawl fails")
	cmd.Flags().String("user-agent", "", "User-Agent header sent with every request")
	cmd.Flags().String("proxy", "", "SOCKS5 proxy address (host:port)")
	cmd.Flags().String("db-dir", "", "Directory of the history database (default: data directory)")
	cmd.Flags().Bool("no-history", false, "Do not record the crawl in the history database")
	addReportFlags(cmd)

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if len(args) > 0 {
		cfg.StartURL = strings.TrimSpace(args[0])
	}

	site := cfg.SiteConfigs.GetSiteConfig(cfg.StartURL)
	if err := applySiteConfig(cfg, site); err != nil {
		return err
	}
	if err := applyCrawlFlags(cmd, cfg); err != nil {
		return err
	}
	if err := applyReportFlags(cmd, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(cmd, cfg)
	ctx, cancel := signalContext(cmd, logger)
	defer cancel()

	summary, err := runCrawl(ctx, cfg, site, logger)
	if err != nil {
		return err
	}

	writer, closer, err := openReport(cmd, cfg)
	if err != nil {
		return err
	}
	_, err = writer.WriteCrawl(summary)
	return closeReport(closer, err)
}

// applySiteConfig applies the configuration file settings of the listing
// host. Flags set on the command line are applied afterwards and win.
func applySiteConfig(cfg *config.Config, site config.SiteConfig) error {
	if site.Mode != "" {
		mode, err := model.ParseMode(site.Mode)
		if err != nil {
			return err
		}
		cfg.Mode = mode
	}
	if site.Persistence != "" {
		persistence, err := model.ParsePersistence(site.Persistence)
		if err != nil {
			return err
		}
		cfg.Persistence = persistence
	}
	if site.MaxPages > 0 {
		cfg.MaxPages = site.MaxPages
	}
	if site.UserAgent != "" {
		cfg.UserAgent = site.UserAgent
	}
	return nil
}

// applyCrawlFlags copies the crawl flags that were set explicitly into cfg.
func applyCrawlFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	if flags.Changed("mode") {
		value, _ := flags.GetString("mode")
		mode, err := model.ParseMode(value)
		if err != nil {
			return err
		}
		cfg.Mode = mode
	}
	if flags.Changed("persistence") {
		value, _ := flags.GetString("persistence")
		persistence, err := model.ParsePersistence(value)
		if err != nil {
			return err
		}
		cfg.Persistence = persistence
	}
	if flags.Changed("file") {
		cfg.RecordsFile, _ = flags.GetString("file")
	}
	if flags.Changed("max-pages") {
		cfg.MaxPages, _ = flags.GetInt("max-pages")
	}

	var err error
	if cfg.CrawlDelay, err = flags.GetDuration("delay"); err != nil {
		return err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return err
	}
	if cfg.Attempts, err = flags.GetInt("retries"); err != nil {
		return err
	}
	if flags.Changed("user-agent") {
		cfg.UserAgent, _ = flags.GetString("user-agent")
	}
	if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return err
	}
	if flags.Changed("db-dir") {
		cfg.DBDir, _ = flags.GetString("db-dir")
	}
	noHistory, err := flags.GetBool("no-history")
	if err != nil {
		return err
	}
	cfg.SaveToDB = !noHistory

	return nil
}

// newParser creates the listing parser for the crawl mode and the
// selectors of the site configuration.
func newParser(cfg *config.Config, site config.SiteConfig) *crawler.Parser {
	opts := []crawler.ParserOption{
		crawler.WithMode(cfg.Mode),
		crawler.WithEntrySelector(site.EntrySelector),
		crawler.WithNextPageSelector(site.NextPageSelector),
	}
	switch site.Sentinel {
	case "":
	case config.NoSentinel:
		opts = append(opts, crawler.WithSentinel(""))
	default:
		opts = append(opts, crawler.WithSentinel(site.Sentinel))
	}
	return crawler.NewParser(opts...)
}

// runCrawl crawls the listing, persists the records and records the run
// in the history database.
func runCrawl(ctx context.Context, cfg *config.Config, site config.SiteConfig, logger *slog.Logger) (*report.CrawlSummary, error) {
	client, err := crawler.NewHTTPClient(cfg.Timeout, cfg.ProxyAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	fetcher := crawler.NewHTTPFetcher(client,
		crawler.WithUserAgent(cfg.UserAgent),
		crawler.WithMaxBodySize(cfg.MaxBodySize),
		crawler.WithAttempts(cfg.Attempts),
		crawler.WithFetcherLogger(logger),
	)

	sink, err := store.New(cfg.RecordsFile,
		store.WithPersistence(cfg.Persistence),
		store.WithCreateDirs(),
	)
	if err != nil {
		return nil, err
	}

	spider := crawler.NewSpider(fetcher,
		crawler.WithParser(newParser(cfg, site)),
		crawler.WithSink(sink),
		crawler.WithMaxPages(cfg.MaxPages),
		crawler.WithDelay(cfg.CrawlDelay),
		crawler.WithLogger(logger),
	)

	logger.Info("starting crawl", "url", cfg.StartURL, "mode", cfg.Mode.String(), "max_pages", cfg.MaxPages)

	result, err := spider.Crawl(ctx, cfg.StartURL)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("crawl cancelled, records file left unchanged")
		}
		return nil, err
	}

	logger.Info("crawl completed", "pages", result.Pages, "records", len(result.Records), "file", sink.Path())

	summary := &report.CrawlSummary{
		Result:      result,
		Persistence: cfg.Persistence,
		OutputPath:  sink.Path(),
	}

	if cfg.SaveToDB {
		id, err := saveRun(ctx, cfg, summary)
		if err != nil {
			logger.Warn("failed to save crawl history", "error", err)
		} else {
			summary.RunID = id
		}
	}

	return summary, nil
}

// saveRun records a finished crawl in the history database.
func saveRun(ctx context.Context, cfg *config.Config, summary *report.CrawlSummary) (int64, error) {
	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return 0, err
	}
	defer db.Close()

	result := summary.Result
	return db.SaveRun(ctx, &database.Run{
		StartURL:    result.StartURL,
		Mode:        result.Mode,
		Persistence: summary.Persistence,
		Pages:       result.Pages,
		Truncated:   result.Truncated,
		StartedAt:   result.StartedAt,
		FinishedAt:  result.FinishedAt,
		OutputPath:  summary.OutputPath,
		Records:     result.Records,
	})
}
