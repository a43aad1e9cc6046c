package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/ticketwatch/internal/config"
	"github.com/nao1215/ticketwatch/internal/database"
	"github.com/nao1215/ticketwatch/internal/model"
	"github.com/nao1215/ticketwatch/internal/store"
)

// errRunNotFound is returned when --run names an unknown crawl.
var errRunNotFound = errors.New("crawl run not found")

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past crawls recorded in the history database",
		Long: `History lists the crawls recorded by crawl, newest first.

Examples:
  # Show the last 10 crawls
  ticketwatch history --limit 10

  # Show the records of crawl 3
  ticketwatch history --run 3

  # When was "Faust" last listed?
  ticketwatch history --title faust`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", 20, "Maximum number of crawls to show (0 for all)")
	cmd.Flags().Int64("run", 0, "Show the records of one crawl")
	cmd.Flags().String("title", "", "Show when an event title was last crawled")
	cmd.Flags().String("db-dir", "", "Directory of the history database (default: data directory)")
	addReportFlags(cmd)

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyReportFlags(cmd, cfg); err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("db-dir") {
		if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
			return err
		}
	}
	limit, err := flags.GetInt("limit")
	if err != nil {
		return err
	}
	runID, err := flags.GetInt64("run")
	if err != nil {
		return err
	}
	title, err := flags.GetString("title")
	if err != nil {
		return err
	}

	logger := newLogger(cmd, cfg)
	ctx, cancel := signalContext(cmd, logger)
	defer cancel()

	db, err := database.Open(cfg.DBDir, database.Options{CreateIfNotExists: false, EnableWAL: false})
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			return err
		}
		logger.Debug("no crawl history yet", "dir", cfg.DBDir)
	} else {
		defer db.Close()
	}

	switch {
	case strings.TrimSpace(title) != "":
		return writeLastSeen(ctx, cmd, db, strings.TrimSpace(title))
	case runID > 0:
		return writeRunRecords(ctx, cmd, cfg, db, runID)
	}

	var runs []database.Run
	if db != nil {
		if runs, err = db.ListRuns(ctx, limit); err != nil {
			return err
		}
	}

	writer, closer, err := openReport(cmd, cfg)
	if err != nil {
		return err
	}
	_, err = writer.WriteRuns(runs)
	return closeReport(closer, err)
}

// writeLastSeen prints when title was last part of a crawl.
func writeLastSeen(ctx context.Context, cmd *cobra.Command, db *database.CrawlDB, title string) error {
	if db == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "%q has never been crawled\n", title)
		return nil
	}

	seen, ok, err := db.LastSeen(ctx, title)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintf(cmd.OutOrStdout(), "%q has never been crawled\n", title)
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%q last seen %s\n", title, seen.Local().Format("2006-01-02 15:04:05"))
	return nil
}

// writeRunRecords prints the records of one crawl as a single batch.
func writeRunRecords(ctx context.Context, cmd *cobra.Command, cfg *config.Config, db *database.CrawlDB, id int64) error {
	if db == nil {
		return fmt.Errorf("%w: %d", errRunNotFound, id)
	}

	run, err := db.GetRun(ctx, id)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("%w: %d", errRunNotFound, id)
	}

	records, err := db.GetRunRecords(ctx, id)
	if err != nil {
		return err
	}

	writer, closer, err := openReport(cmd, cfg)
	if err != nil {
		return err
	}
	source := fmt.Sprintf("run %d (%s)", run.ID, run.StartURL)
	batch := store.Batch{
		Timestamp: run.FinishedAt.Local().Format(model.TimestampLayout),
		Records:   records,
	}
	_, err = writer.WriteBatches(source, []store.Batch{batch})
	return closeReport(closer, err)
}
