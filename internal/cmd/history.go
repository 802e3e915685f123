package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrison/dynrouting/internal/display"
	"github.com/harrison/dynrouting/internal/history"
)

// NewHistoryCommand creates the history command
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [subject] [session-key]",
		Short: "Show a subject's training history",
		Long: `Show the per-block hit counts and d-prime of a subject's recorded sessions.

Without arguments the recorded subjects are listed. With a subject, every
session of that subject is shown. With a session key as well, the history
stops at that session, so it can be read as it stood on that day.

Examples:
  dynrouting history
  dynrouting history 366122
  dynrouting history 366122 366122_20230414_120213`,
		Args: cobra.MaximumNArgs(2),
		RunE: runHistory,
	}
	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if !cfg.History.Enabled {
		return fmt.Errorf("training history is disabled")
	}

	store, err := history.NewStore(cfg.History.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer store.Close()

	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()

	if len(args) == 0 {
		subjects, err := store.Subjects(ctx)
		if err != nil {
			return err
		}
		if len(subjects) == 0 {
			fmt.Fprintln(out, "No sessions recorded")
			return nil
		}
		fmt.Fprintf(out, "Subjects (%d):\n", len(subjects))
		for _, s := range subjects {
			fmt.Fprintf(out, "  %s\n", s)
		}
		return nil
	}

	subject := args[0]
	var entries []history.Entry
	if len(args) == 2 {
		entries, err = store.TrainingHistory(ctx, subject, args[1])
	} else {
		entries, err = store.SubjectHistory(ctx, subject)
	}
	if err != nil {
		return err
	}

	display.HistoryTable(out, subject, entries, displayOptions(out))
	return nil
}
