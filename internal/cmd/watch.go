package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/harrison/dynrouting/internal/analysis"
	"github.com/harrison/dynrouting/internal/display"
	"github.com/harrison/dynrouting/internal/export"
	"github.com/harrison/dynrouting/internal/watch"
)

// NewWatchCommand creates the watch command
func NewWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <directory>",
		Short: "Analyze sessions as the rig exports them",
		Long: `Watch a session export directory and analyze each session file once the
rig has finished writing it.

Subdirectories are watched too, including ones created later. Each
analyzed session is printed, recorded in the training history and,
with --export, exported. Stop with Ctrl-C.

Examples:
  dynrouting watch /data/behavior/NP3
  dynrouting watch --pattern 'DynamicRouting1_366122_*' --export csv /data/behavior`,
		Args: cobra.ExactArgs(1),
		RunE: runWatch,
	}

	cmd.Flags().String("pattern", "", "Glob on session file names (default: watch.pattern from config)")
	cmd.Flags().Duration("debounce", 0, "Quiet period before a written file is analyzed (default: watch.debounce from config)")
	cmd.Flags().String("export", "", "Also export each session: json, csv, trials-csv")
	cmd.Flags().String("out", "", "Directory for exports (default: export.dir from config)")

	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	pattern := cfg.Watch.Pattern
	if cmd.Flags().Changed("pattern") {
		pattern, _ = cmd.Flags().GetString("pattern")
	}
	debounce := cfg.Watch.Debounce
	if cmd.Flags().Changed("debounce") {
		debounce, _ = cmd.Flags().GetDuration("debounce")
	}

	var exp export.Exporter
	exportDir := cfg.Export.Dir
	if format, _ := cmd.Flags().GetString("export"); format != "" {
		exp, err = export.New(export.Format(format), cfg.Export.Pretty)
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

	watcher, err := watch.NewFileWatcher(args[0], pattern, debounce)
	if err != nil {
		return err
	}
	defer watcher.Close()

	out := cmd.OutOrStdout()
	opts := displayOptions(out)
	handler := func(ctx context.Context, result *analysis.Result) error {
		display.BlockTable(out, result.Summary, result.Blocks, opts)
		fmt.Fprintln(out)

		if store != nil {
			if _, err := store.RecordSession(ctx, result); err != nil {
				return fmt.Errorf("record history: %w", err)
			}
		}
		if exp != nil {
			if err := export.WriteFile(export.DefaultPath(exportDir, exp, result), exp, result); err != nil {
				return fmt.Errorf("export: %w", err)
			}
		}
		return nil
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s for %s (Ctrl-C to stop)\n", watcher.RootDir(), watcher.Pattern())
	monitor := watch.NewMonitor(watcher, analysisOptions(cfg), log, handler)
	return monitor.Run(ctx)
}
