package cmd

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"

	"github.com/harrison/dynrouting/internal/analysis"
	"github.com/harrison/dynrouting/internal/diagnostics"
	"github.com/harrison/dynrouting/internal/models"
)

// NewDiagnosticsCommand creates the diagnostics command
func NewDiagnosticsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diagnostics <session-file>",
		Short: "Summarize rig timing, licking, running and reward data",
		Long: `Print the data quality checks reviewed alongside block metrics: display
frame timing, quiescent period violations, inter-trial intervals,
response times by stimulus, licks around stimulus onset, running speed
around stimulus onset per block and trial type, and reward totals.

Example:
  dynrouting diagnostics DynamicRouting1_366122_20230414_120213.json`,
		Args: cobra.ExactArgs(1),
		RunE: runDiagnostics,
	}

	cmd.Flags().Int("speed-bin-frames", diagnostics.DefaultSpeedBinFrames, "Frames per running speed bin")
	cmd.Flags().Float64("raster-pre", diagnostics.DefaultRasterWindow.Pre, "Seconds before stimulus onset in lick and running speed windows")
	cmd.Flags().Float64("raster-post", diagnostics.DefaultRasterWindow.Post, "Seconds after stimulus onset in lick and running speed windows")

	return cmd
}

func runDiagnostics(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	result, err := analysis.AnalyzeFile(args[0], analysisOptions(cfg))
	if err != nil {
		return fmt.Errorf("failed to analyze session: %w", err)
	}

	binFrames, _ := cmd.Flags().GetInt("speed-bin-frames")
	pre, _ := cmd.Flags().GetFloat64("raster-pre")
	post, _ := cmd.Flags().GetFloat64("raster-post")

	return writeDiagnostics(cmd.OutOrStdout(), result, binFrames, diagnostics.RasterWindow{Pre: pre, Post: post})
}

func writeDiagnostics(w io.Writer, result *analysis.Result, binFrames int, window diagnostics.RasterWindow) error {
	ns, cats := result.Session, result.Categories

	fmt.Fprintf(w, "Session %s\n", result.Summary.SessionKey())

	fs := diagnostics.FrameIntervalStats(ns)
	fmt.Fprintln(w, "Frames")
	fmt.Fprintf(w, "  %d intervals, %d long (%s%%)\n", fs.NFrames, fs.LongFrames, models.FormatMetric(100*fs.LongFrameFraction))
	fmt.Fprintf(w, "  mean %s ms, max %s ms\n", models.FormatMetric(1000*fs.MeanInterval), models.FormatMetric(1000*fs.MaxInterval))

	violations := diagnostics.QuiescentViolationsPerTrial(ns)
	total, trials := 0, 0
	for _, n := range violations {
		total += n
		if n > 0 {
			trials++
		}
	}
	fmt.Fprintln(w, "Quiescent violations")
	fmt.Fprintf(w, "  %d in %d of %d trials\n", total, trials, ns.NTrials)

	iti := diagnostics.InterTrialIntervals(ns)
	fmt.Fprintln(w, "Inter-trial interval")
	if len(iti) == 0 {
		fmt.Fprintln(w, "  -")
	} else {
		mean, std := stat.MeanStdDev(iti, nil)
		fmt.Fprintf(w, "  mean %s s, sd %s s\n", models.FormatMetric(mean), models.FormatMetric(std))

		quiet := diagnostics.QuietInterTrialIntervals(ns)
		fmt.Fprintf(w, "  %d of %d before trials without violations", len(quiet), len(iti))
		if len(quiet) > 0 {
			fmt.Fprintf(w, ", mean %s s", models.FormatMetric(stat.Mean(quiet, nil)))
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "Response time")
	cdfs := diagnostics.ResponseTimeCDF(ns)
	stims := make([]string, 0, len(cdfs))
	for stim := range cdfs {
		stims = append(stims, stim)
	}
	sort.Strings(stims)
	if len(stims) == 0 {
		fmt.Fprintln(w, "  no responses")
	}
	for _, stim := range stims {
		cdf := cdfs[stim]
		fmt.Fprintf(w, "  %-8s n=%d median %s s\n", stim, len(cdf.Values), models.FormatMetric(median(cdf)))
	}

	raster := diagnostics.LickRaster(ns, cats, window)
	licks, withLicks := 0, 0
	for _, row := range raster {
		licks += len(row.Licks)
		if len(row.Licks) > 0 {
			withLicks++
		}
	}
	fmt.Fprintln(w, "Licks")
	fmt.Fprintf(w, "  %d within -%gs/+%gs of onset, %d of %d trials\n", licks, window.Pre, window.Post, withLicks, len(raster))

	fmt.Fprintln(w, "Running speed")
	bins, err := diagnostics.BinnedRunningSpeed(ns, binFrames)
	switch {
	case errors.Is(err, diagnostics.ErrNoRunningSpeed):
		fmt.Fprintln(w, "  no rotary encoder")
	case err != nil:
		return err
	default:
		speeds := make([]float64, len(bins))
		for i, b := range bins {
			speeds[i] = b.Speed
		}
		fmt.Fprintf(w, "  %d bins, mean %s cm/s\n", len(bins), models.FormatMetric(diagnostics.MeanIgnoringNaN(speeds)))

		traces, err := diagnostics.RunningSpeedTraces(ns, cats, window)
		if err != nil {
			return err
		}
		for _, tr := range traces {
			if tr.N == 0 {
				continue
			}
			fmt.Fprintf(w, "  block %d %-11s n=%d engaged=%d", tr.Block, tr.Type, tr.N, tr.Engaged)
			if tr.Speed == nil {
				fmt.Fprintln(w, ", none clear of the session edges")
				continue
			}
			before, after := splitAtOnset(tr)
			fmt.Fprintf(w, ", %d averaged: before %s after %s cm/s\n", tr.Included,
				models.FormatMetric(before), models.FormatMetric(after))
		}
	}

	rewards := diagnostics.RewardTotals(ns)
	count, volume := 0, 0.0
	if n := len(rewards.Count); n > 0 {
		count, volume = rewards.Count[n-1], rewards.Volume[n-1]
	}
	fmt.Fprintln(w, "Rewards")
	fmt.Fprintf(w, "  %d rewards, %.3f ml\n", count, volume)

	return nil
}

// median returns the smallest response time reached by half of the responses.
func median(cdf diagnostics.CDF) float64 {
	return stat.Quantile(0.5, stat.Empirical, cdf.Values, nil)
}

// splitAtOnset returns the mean trace speed before and after stimulus onset.
func splitAtOnset(tr diagnostics.SpeedTrace) (before, after float64) {
	var pre, post []float64
	for k, t := range tr.Time {
		if t < 0 {
			pre = append(pre, tr.Speed[k])
		} else {
			post = append(post, tr.Speed[k])
		}
	}
	return diagnostics.MeanIgnoringNaN(pre), diagnostics.MeanIgnoringNaN(post)
}
