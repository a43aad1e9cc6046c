package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/ticketwatch/internal/config"
)

//go:embed templates/ticketwatch.yaml
var configTemplate embed.FS

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new ticketwatch configuration file",
		Long: `Initialize creates a new .ticketwatch configuration file in the current directory.

The generated file includes:
- Default selectors, extraction mode and persistence
- Commented examples for site-specific settings
- The watch list and notification settings

Examples:
  # Create .ticketwatch in current directory
  ticketwatch init

  # Create config file at a specific path
  ticketwatch init -o myconfig.yaml

  # Create the config file in the XDG config directory
  ticketwatch init --xdg

  # Force overwrite existing file
  ticketwatch init -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")
	cmd.Flags().Bool("xdg", false,
		"Write the configuration file to "+config.XDGConfigPath())
	cmd.MarkFlagsMutuallyExclusive("output", "xdg")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	xdgDir, err := cmd.Flags().GetBool("xdg")
	if err != nil {
		return err
	}
	if xdgDir {
		outputPath = config.XDGConfigPath()
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile("templates/ticketwatch.yaml")
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to configure:")
	fmt.Fprintln(out, "  - Selectors and extraction mode per listing site")
	fmt.Fprintln(out, "  - The search terms checked by watch")
	fmt.Fprintln(out, "  - The notification recipient")

	return nil
}
