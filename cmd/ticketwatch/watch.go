package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/ticketwatch/internal/config"
	"github.com/nao1215/ticketwatch/internal/notify"
	"github.com/nao1215/ticketwatch/internal/report"
)

var (
	// errNoWatchTerms is returned when watch has nothing to check.
	errNoWatchTerms = errors.New("no search terms to watch (pass them as arguments or list them under watch: in the config file)")

	// errWatchFailed is returned when at least one term could not be checked.
	errWatchFailed = errors.New("some search terms could not be checked")
)

// NewWatchCmd creates the watch command.
func NewWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [search term...]",
		Short: "Check several search terms against the records file",
		Long: `Watch runs notify for every search term, either given as arguments or
listed under "watch:" in the configuration file. Terms are checked
concurrently and each term with matches produces its own email.

A term that fails does not stop the others; the command reports every
term and exits with an error if any of them failed.

Examples:
  # Check the terms of the configuration file
  ticketwatch watch

  # Crawl first, then check two terms without sending anything
  ticketwatch watch --crawl --dry-run faust hamlet`,
		RunE: runWatchCmd,
	}

	cmd.Flags().StringP("file", "f", "", "Records file path (default: play_titles.json in the data directory)")
	cmd.Flags().String("to", "", "Recipient address (default: TICKETWATCH_TO or notify.to in the config file)")
	cmd.Flags().String("from", "", "Sender address (default: notifier@<MAILGUN_DOMAIN>)")
	cmd.Flags().Bool("dry-run", false, "Compose the messages but do not send them")
	cmd.Flags().Bool("crawl", false, "Crawl the listing before checking the terms")
	cmd.Flags().String("start-url", "", "Listing page the crawl starts from (default: the iabilet theatre listing)")
	cmd.Flags().Bool("no-history", false, "Do not record the crawl in the history database")
	cmd.Flags().Int("concurrency", config.DefaultWatchConcurrency, "Number of terms checked at once")
	addReportFlags(cmd)

	return cmd
}

// runWatchCmd executes the watch command.
func runWatchCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyRecordsFlags(cmd, cfg); err != nil {
		return err
	}
	if err := applyReportFlags(cmd, cfg); err != nil {
		return err
	}
	if cfg.WatchConcurrency, err = cmd.Flags().GetInt("concurrency"); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	terms := (&config.File{Watch: args}).WatchTerms()
	if len(terms) == 0 {
		terms = cfg.SiteConfigs.WatchTerms()
	}
	if len(terms) == 0 {
		return errNoWatchTerms
	}

	dryRun, err := cmd.Flags().GetBool("dry-run")
	if err != nil {
		return err
	}
	crawlFirst, err := cmd.Flags().GetBool("crawl")
	if err != nil {
		return err
	}

	logger := newLogger(cmd, cfg)
	ctx, cancel := signalContext(cmd, logger)
	defer cancel()

	// Credentials are checked before crawling so a bad setup fails fast.
	notifier, err := newNotifier(cfg, dryRun, logger)
	if err != nil {
		return err
	}

	if crawlFirst {
		if cmd.Flags().Changed("start-url") {
			startURL, _ := cmd.Flags().GetString("start-url")
			cfg.StartURL = strings.TrimSpace(startURL)
		}
		noHistory, _ := cmd.Flags().GetBool("no-history")
		cfg.SaveToDB = !noHistory
		site := cfg.SiteConfigs.GetSiteConfig(cfg.StartURL)
		if err := applySiteConfig(cfg, site); err != nil {
			return err
		}
		if _, err := runCrawl(ctx, cfg, site, logger); err != nil {
			return fmt.Errorf("crawl before watch failed: %w", err)
		}
	}

	results := watchTerms(ctx, notifier, terms, cfg.WatchConcurrency, logger)

	writer, closer, err := openReport(cmd, cfg)
	if err != nil {
		return err
	}
	_, err = writer.WriteWatch(results)
	if err = closeReport(closer, err); err != nil {
		return err
	}

	for _, r := range results {
		if r.Err != nil {
			return errWatchFailed
		}
	}
	return nil
}

// watchTerms checks every term with at most limit checks in flight.
// Results keep the order of terms. A failing term is recorded in its
// result and does not cancel the others.
func watchTerms(ctx context.Context, notifier *notify.Notifier, terms []string, limit int, logger *slog.Logger) []report.WatchResult {
	results := make([]report.WatchResult, len(terms))

	var g errgroup.Group
	g.SetLimit(limit)

	for i, term := range terms {
		g.Go(func() error {
			outcome, err := notifier.CheckAndNotify(ctx, term)
			if err != nil {
				logger.Warn("search term check failed", "query", term, "error", err)
			}
			results[i] = report.WatchResult{Term: term, Outcome: outcome, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}
