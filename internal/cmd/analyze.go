package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrison/dynrouting/internal/analysis"
	"github.com/harrison/dynrouting/internal/display"
	"github.com/harrison/dynrouting/internal/export"
	"github.com/harrison/dynrouting/internal/session"
)

// NewAnalyzeCommand creates the analyze command
func NewAnalyzeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <session-file-or-directory>...",
		Short: "Compute block metrics for session files",
		Long: `Analyze one or more session records and print a block metrics table for each.

Directories are expanded to the session files (.json, .yaml, .yml) they
contain. Files that cannot be analyzed are reported and skipped; the
others are still analyzed. Each analyzed session is recorded in the
training history unless --no-history is given.

Examples:
  # Single session
  dynrouting analyze DynamicRouting1_366122_20230414_120213.json

  # Every session exported by a rig, including subdirectories
  dynrouting analyze --recursive /data/behavior/NP3

  # Only one subject, and write CSV exports next to the tables
  dynrouting analyze --pattern 'DynamicRouting1_366122_*' --export csv /data/behavior`,
		Args: cobra.MinimumNArgs(1),
		RunE: runAnalyze,
	}

	cmd.Flags().Bool("recursive", false, "Descend into subdirectories")
	cmd.Flags().String("pattern", "", "Glob on session file names inside directories")
	cmd.Flags().String("export", "", "Also export each session: json, csv, trials-csv")
	cmd.Flags().String("out", "", "Directory for exports (default: export.dir from config)")
	cmd.Flags().Bool("pretty", false, "Indent JSON exports")

	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	recursive, _ := cmd.Flags().GetBool("recursive")
	pattern, _ := cmd.Flags().GetString("pattern")
	paths, err := session.ExpandPaths(args, session.ScanOptions{Pattern: pattern, Recursive: recursive})
	if err != nil {
		return fmt.Errorf("failed to collect session files: %w", err)
	}
	if len(paths) == 0 {
		return fmt.Errorf("no session files found")
	}

	var exp export.Exporter
	exportDir := cfg.Export.Dir
	if format, _ := cmd.Flags().GetString("export"); format != "" {
		pretty, _ := cmd.Flags().GetBool("pretty")
		exp, err = export.New(export.Format(format), pretty || cfg.Export.Pretty)
		if err != nil {
			return err
		}
		if out, _ := cmd.Flags().GetString("out"); out != "" {
			exportDir = out
		}
	}

	log, closeLog, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	store, err := openHistory(cfg)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	ctx := commandContext(cmd)
	runner := analysis.NewRunner(analysisOptions(cfg), log)
	results, err := runner.AnalyzeFiles(ctx, paths)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	opts := displayOptions(out)
	var failed []string
	analyzed := 0
	for _, fr := range results {
		if fr.Err != nil {
			failed = append(failed, fr.Path)
			continue
		}
		analyzed++

		display.BlockTable(out, fr.Result.Summary, fr.Result.Blocks, opts)
		fmt.Fprintln(out)

		if store != nil {
			if _, err := store.RecordSession(ctx, fr.Result); err != nil {
				log.LogWarn(fmt.Sprintf("failed to record %s in history: %v", fr.Result.Summary.SessionKey(), err))
			}
		}
		if exp != nil {
			path := export.DefaultPath(exportDir, exp, fr.Result)
			if err := export.WriteFile(path, exp, fr.Result); err != nil {
				log.LogWarn(fmt.Sprintf("failed to export %s: %v", fr.Path, err))
				continue
			}
			log.LogDebug(fmt.Sprintf("exported %s", path))
		}
	}

	if len(failed) > 0 {
		display.WarnSkippedFiles(failed).Display(cmd.ErrOrStderr())
	}
	if analyzed == 0 {
		return fmt.Errorf("no session files could be analyzed")
	}
	return nil
}
