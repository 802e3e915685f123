package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrison/dynrouting/internal/analysis"
	"github.com/harrison/dynrouting/internal/export"
)

// NewExportCommand creates the export command
func NewExportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <session-file>",
		Short: "Export a session's metrics as JSON or CSV",
		Long: `Analyze a session record and write its metrics for downstream tools.

Formats:
  json        session summary and block metrics, undefined metrics as null
  csv         one row per block, undefined metrics as NaN
  trials-csv  one row per trial with its classification

The output file defaults to <session key>.<ext> in export.dir. Use
--out - to write to standard output.

Examples:
  dynrouting export session.json
  dynrouting export --format csv --out blocks.csv session.json
  dynrouting export --format json --pretty --out - session.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: runExport,
	}

	cmd.Flags().String("format", "", "Export format: json, csv, trials-csv (default: export.format from config)")
	cmd.Flags().String("out", "", "Output file, or - for standard output")
	cmd.Flags().Bool("pretty", false, "Indent JSON output")

	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	format := cfg.Export.Format
	if cmd.Flags().Changed("format") {
		format, _ = cmd.Flags().GetString("format")
	}
	pretty, _ := cmd.Flags().GetBool("pretty")

	exp, err := export.New(export.Format(format), pretty || cfg.Export.Pretty)
	if err != nil {
		return err
	}

	result, err := analysis.AnalyzeFile(args[0], analysisOptions(cfg))
	if err != nil {
		return fmt.Errorf("failed to analyze session: %w", err)
	}

	out, _ := cmd.Flags().GetString("out")
	if out == "-" {
		data, err := exp.Export(result)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}

	if out == "" {
		out = export.DefaultPath(cfg.Export.Dir, exp, result)
	}
	if err := export.WriteFile(out, exp, result); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %s to %s\n", result.Summary.SessionKey(), out)
	return nil
}
