package main

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/ticketwatch/internal/config"
)

// errEmptyTerm is returned when the search term argument is blank.
var errEmptyTerm = errors.New("search term must not be empty")

// NewNotifyCmd creates the notify command.
func NewNotifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notify <search term>",
		Short: "Search the records file and mail the matching events",
		Long: `Notify searches the records file for a term (case-insensitive substring)
and, when at least one event matches, sends a single email listing every
match through Mailgun. Nothing is sent when nothing matches.

Run crawl first to create the records file.

Examples:
  # Mail matches for "faust" to the configured recipient
  ticketwatch notify faust

  # Show the message that would be sent without sending it
  ticketwatch notify "livada cu visini" --dry-run`,
		Args: cobra.ExactArgs(1),
		RunE: runNotifyCmd,
	}

	cmd.Flags().StringP("file", "f", "", "Records file path (default: play_titles.json in the data directory)")
	cmd.Flags().String("to", "", "Recipient address (default: TICKETWATCH_TO or notify.to in the config file)")
	cmd.Flags().String("from", "", "Sender address (default: notifier@<MAILGUN_DOMAIN>)")
	cmd.Flags().Bool("dry-run", false, "Compose the message but do not send it")
	addReportFlags(cmd)

	return cmd
}

// runNotifyCmd executes the notify command.
func runNotifyCmd(cmd *cobra.Command, args []string) error {
	term := strings.TrimSpace(args[0])
	if term == "" {
		return errEmptyTerm
	}

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
	dryRun, err := cmd.Flags().GetBool("dry-run")
	if err != nil {
		return err
	}

	logger := newLogger(cmd, cfg)
	ctx, cancel := signalContext(cmd, logger)
	defer cancel()

	notifier, err := newNotifier(cfg, dryRun, logger)
	if err != nil {
		return err
	}

	outcome, err := notifier.CheckAndNotify(ctx, term)
	if err != nil {
		return err
	}

	writer, closer, err := openReport(cmd, cfg)
	if err != nil {
		return err
	}
	_, err = writer.WriteOutcome(outcome)
	return closeReport(closer, err)
}

// applyRecordsFlags applies the records file and recipient flags shared
// by notify and watch.
func applyRecordsFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	if flags.Changed("file") {
		path, err := flags.GetString("file")
		if err != nil {
			return err
		}
		cfg.RecordsFile = path
	}
	if flags.Changed("to") {
		to, err := flags.GetString("to")
		if err != nil {
			return err
		}
		cfg.Mail.To = strings.TrimSpace(to)
	}
	if flags.Changed("from") {
		from, err := flags.GetString("from")
		if err != nil {
			return err
		}
		cfg.Mail.From = strings.TrimSpace(from)
	}
	if cfg.RecordsFile == "" {
		return config.ErrNoRecordsFile
	}
	return nil
}
