package display

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/fatih/color"

	"github.com/harrison/dynrouting/internal/models"
)

// DefaultDprimeCriterion is the d' a block needs to be highlighted as passing.
const DefaultDprimeCriterion = 1.5

// Options controls table rendering.
type Options struct {
	Color           bool
	DprimeCriterion float64 // Zero means DefaultDprimeCriterion
}

func (o Options) criterion() float64 {
	if o.DprimeCriterion == 0 {
		return DefaultDprimeCriterion
	}
	return o.DprimeCriterion
}

type palette struct {
	header *color.Color
	pass   *color.Color
	fail   *color.Color
	dim    *color.Color
}

func newPalette(enabled bool) *palette {
	p := &palette{
		header: color.New(color.Bold),
		pass:   color.New(color.FgGreen),
		fail:   color.New(color.FgRed),
		dim:    color.New(color.FgHiBlack),
	}
	for _, c := range []*color.Color{p.header, p.pass, p.fail, p.dim} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// dprimeCell pads v to width and colors it against the criterion.
func (p *palette) dprimeCell(v float64, width int, criterion float64) string {
	cell := fmt.Sprintf("%*s", width, models.FormatMetric(v))
	switch {
	case math.IsNaN(v):
		return p.dim.Sprint(cell)
	case v >= criterion:
		return p.pass.Sprint(cell)
	default:
		return p.fail.Sprint(cell)
	}
}

var blockColumns = []struct {
	title string
	width int
}{
	{"Block", 5}, {"Rewarded", 9}, {"Go", 4}, {"Nogo", 5}, {"Catch", 5},
	{"Hit", 6}, {"Hits", 5}, {"FA", 6}, {"FA same", 8}, {"FA oth go", 10},
	{"FA oth nogo", 12}, {"d' same", 8}, {"d' oth go", 10}, {"d' nonrew", 10}, {"Catch resp", 11},
}

// BlockTable writes the session header and one row per block.
func BlockTable(w io.Writer, summary models.SessionSummary, blocks []models.BlockMetrics, opts Options) {
	p := newPalette(opts.Color)
	crit := opts.criterion()

	fmt.Fprintln(w, p.header.Sprintf("Session %s", summary.SessionKey()))
	fmt.Fprintf(w, "  rig %s", summary.RigName)
	if summary.TaskVersion != "" {
		fmt.Fprintf(w, ", task %s", summary.TaskVersion)
	}
	fmt.Fprintf(w, "\n  %d trials in %d blocks, %d engaged, %d rewards (%d earned)\n\n",
		summary.NTrials, summary.NBlocks, summary.Engaged, summary.Rewards, summary.Earned)

	if len(blocks) == 0 {
		fmt.Fprintln(w, "  no blocks")
		return
	}

	header := make([]string, len(blockColumns))
	for i, c := range blockColumns {
		header[i] = fmt.Sprintf("%*s", c.width, c.title)
	}
	fmt.Fprintln(w, p.header.Sprint(strings.Join(header, " ")))

	for _, b := range blocks {
		cells := []string{
			fmt.Sprintf("%5d", b.Block),
			fmt.Sprintf("%9s", b.RewardedStim),
			fmt.Sprintf("%4d", b.GoTrials),
			fmt.Sprintf("%5d", b.NogoTrials),
			fmt.Sprintf("%5d", b.CatchTrials),
			fmt.Sprintf("%6s", models.FormatMetric(b.HitRate)),
			fmt.Sprintf("%5d", b.HitCount),
			fmt.Sprintf("%6s", models.FormatMetric(b.FalseAlarmRate)),
			fmt.Sprintf("%8s", models.FormatMetric(b.FalseAlarmSameModal)),
			fmt.Sprintf("%10s", models.FormatMetric(b.FalseAlarmOtherModalGo)),
			fmt.Sprintf("%12s", models.FormatMetric(b.FalseAlarmOtherModalNogo)),
			p.dprimeCell(b.DprimeSameModal, 8, crit),
			p.dprimeCell(b.DprimeOtherModalGo, 10, crit),
			p.dprimeCell(b.DprimeNonrewardedModal, 10, crit),
			fmt.Sprintf("%11s", models.FormatMetric(b.CatchResponseRate)),
		}
		fmt.Fprintln(w, strings.Join(cells, " "))
	}
}
