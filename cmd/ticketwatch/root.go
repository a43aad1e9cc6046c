package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/ticketwatch/internal/config"
)

// NewRootCmd creates the root command for ticketwatch.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ticketwatch",
		Short: "Watch a theatre listing for events you care about",
		Long: `ticketwatch crawls the paginated iabilet theatre listing, stores the
event titles and links in a local records file, and sends an email through
Mailgun when an event matching a search term appears.

Mailgun credentials are read from the environment or from a .env file:
  MAILGUN_API_KEY, MAILGUN_DOMAIN, MAILGUN_REGION (us, eu or an API base URL),
  MAILGUN_API_BASE (overrides the region), TICKETWATCH_TO`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .ticketwatch in current or home directory, then the XDG config directory)")
	cmd.PersistentFlags().String("env-file", config.DefaultEnvFile,
		"dotenv file with Mailgun credentials (ignored if missing)")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewNotifyCmd())
	cmd.AddCommand(NewWatchCmd())
	cmd.AddCommand(NewRecordsCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
