package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for dynrouting
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dynrouting",
		Short: "Behavioral session analysis for the dynamic routing task",
		Long: `dynrouting analyzes behavior session records from the dynamic routing task.

It normalizes each session, classifies every trial (go, nogo, catch, same-
and other-modal), finds disengaged stretches, and computes per-block hit
rates, false alarm rates and d-prime. Analyzed sessions are kept in a
per-subject training history.

Configuration is loaded from .dynrouting/config.yaml if present,
then DYNROUTING_* environment variables, then command line flags.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	addConfigFlags(cmd)

	cmd.AddCommand(NewAnalyzeCommand())
	cmd.AddCommand(NewHistoryCommand())
	cmd.AddCommand(NewExportCommand())
	cmd.AddCommand(NewWatchCommand())
	cmd.AddCommand(NewDiagnosticsCommand())

	return cmd
}
