package main

import (
	"github.com/spf13/cobra"

	"github.com/nao1215/ticketwatch/internal/store"
)

// NewRecordsCmd creates the records command.
func NewRecordsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records",
		Short: "Show the contents of the records file",
		Long: `Records prints the event records saved by crawl. A file written in append
mode holds one batch per crawl, each labelled with the time of the crawl.

Examples:
  # List the saved events
  ticketwatch records

  # Export the records file as JSON
  ticketwatch records --json -o records.json`,
		Args: cobra.NoArgs,
		RunE: runRecordsCmd,
	}

	cmd.Flags().StringP("file", "f", "", "Records file path (default: play_titles.json in the data directory)")
	addReportFlags(cmd)

	return cmd
}

// runRecordsCmd executes the records command.
func runRecordsCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("file") {
		if cfg.RecordsFile, err = cmd.Flags().GetString("file"); err != nil {
			return err
		}
	}
	if err := applyReportFlags(cmd, cfg); err != nil {
		return err
	}

	batches, err := store.ReadBatches(cfg.RecordsFile)
	if err != nil {
		return err
	}

	writer, closer, err := openReport(cmd, cfg)
	if err != nil {
		return err
	}
	_, err = writer.WriteBatches(cfg.RecordsFile, batches)
	return closeReport(closer, err)
}
