package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/ticketwatch/internal/config"
	tlog "github.com/nao1215/ticketwatch/internal/log"
	"github.com/nao1215/ticketwatch/internal/notify"
	"github.com/nao1215/ticketwatch/internal/report"
)

// getPersistentBool retrieves a global bool flag from the command or the root.
func getPersistentBool(cmd *cobra.Command, name string) bool {
	value, err := cmd.Flags().GetBool(name)
	if err != nil {
		value, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return value
}

// getPersistentString retrieves a global string flag from the command or the root.
func getPersistentString(cmd *cobra.Command, name string) string {
	value, err := cmd.Flags().GetString(name)
	if err != nil {
		value, err = cmd.Root().PersistentFlags().GetString(name)
		if err != nil {
			return ""
		}
	}
	return value
}

// loadConfig builds the configuration shared by every command from the
// global flags, the configuration file and the environment.
// Command-specific flags are applied by the caller afterwards.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getPersistentBool(cmd, "verbose")
	cfg.LogJSON = getPersistentBool(cmd, "log-json")
	cfg.ConfigFilePath = getPersistentString(cmd, "config")

	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cf, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, err
		}
		cfg.SiteConfigs = cf
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	default:
		cfg.SiteConfigs = config.EmptyFile()
	}

	values := map[string]string{}
	if envFile := getPersistentString(cmd, "env-file"); envFile != "" {
		var err error
		values, err = config.ReadEnvFile(envFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read env file %s: %w", envFile, err)
		}
	}
	cfg.ApplyEnv(config.ChainLookup(os.LookupEnv, values))
	cfg.ApplyFile(cfg.SiteConfigs)

	return cfg, nil
}

// newLogger creates the command logger. Logs go to stderr so reports on
// stdout stay machine readable.
func newLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	return tlog.New(cmd.ErrOrStderr(), tlog.Options{
		Verbose: cfg.Verbose,
		JSON:    cfg.LogJSON,
	})
}

// signalContext derives a context from the command context that is
// cancelled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command, logger *slog.Logger) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}

// addReportFlags registers the output format flags shared by the
// reporting commands.
func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("json", "j", false, "Output report in JSON format")
	cmd.Flags().BoolP("markdown", "m", false, "Output report in Markdown format")
	cmd.Flags().StringP("output", "o", "", "Write report to file instead of stdout")
}

// applyReportFlags copies the output format flags into cfg.
func applyReportFlags(cmd *cobra.Command, cfg *config.Config) error {
	var err error
	if cfg.JSONReport, err = cmd.Flags().GetBool("json"); err != nil {
		return err
	}
	if cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown"); err != nil {
		return err
	}
	if cfg.ReportFile, err = cmd.Flags().GetString("output"); err != nil {
		return err
	}
	if cfg.JSONReport && cfg.MarkdownReport {
		return config.ErrConflictingReportFormats
	}
	return nil
}

// openReport returns the report writer for cfg and a function that
// closes the underlying file. Without a report file the writer targets
// the command's stdout.
func openReport(cmd *cobra.Command, cfg *config.Config) (report.Writer, func() error, error) {
	var output io.Writer = cmd.OutOrStdout()
	closer := func() error { return nil }

	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return nil, nil, fmt.Errorf("failed to create report directory: %w", err)
			}
		}

		file, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create report file: %w", err)
		}
		output = file
		closer = file.Close
	}

	format := report.SelectFormat(cfg.JSONReport, cfg.MarkdownReport)
	var writer report.Writer
	if format == report.FormatText {
		writer = report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	} else {
		writer = report.NewWriter(output, format)
	}

	return writer, closer, nil
}

// newTransport creates the Mailgun transport from the mail settings.
// An explicit API base wins over the region.
func newTransport(cfg *config.Config) (*notify.MailgunTransport, error) {
	if err := cfg.ValidateMail(); err != nil {
		return nil, err
	}

	base := cfg.Mail.APIBase
	if base == "" {
		var err error
		base, err = notify.APIBaseForRegion(cfg.Mail.Region)
		if err != nil {
			return nil, err
		}
	}

	return notify.NewMailgunTransport(cfg.Mail.Domain, cfg.Mail.APIKey,
		notify.WithAPIBase(base),
		notify.WithSendTimeout(cfg.Timeout),
	)
}

// newNotifier creates a notifier over the records file. A dry run needs
// no Mailgun credentials.
func newNotifier(cfg *config.Config, dryRun bool, logger *slog.Logger) (*notify.Notifier, error) {
	var transport notify.Transport
	if !dryRun {
		mt, err := newTransport(cfg)
		if err != nil {
			return nil, err
		}
		transport = mt
	}

	return notify.NewNotifier(cfg.RecordsFile, transport, cfg.Mail.To,
		notify.WithSender(cfg.Mail.From),
		notify.WithDryRun(dryRun),
		notify.WithLogger(logger),
	), nil
}

// closeReport closes a report file and joins its error with err.
func closeReport(closer func() error, err error) error {
	if closeErr := closer(); closeErr != nil {
		return errors.Join(err, fmt.Errorf("failed to close report file: %w", closeErr))
	}
	return err
}
