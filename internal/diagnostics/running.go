package diagnostics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/stat"

	"github.com/harrison/dynrouting/internal/models"
)

// DefaultSpeedBinFrames is one second of frames at 60 Hz.
const DefaultSpeedBinFrames = 60

// SpeedBin is the mean running speed over a run of frames.
type SpeedBin struct {
	Time  float64 // Time of the last frame in the bin
	Speed float64 // cm/s, NaN when every sample in the bin is NaN
}

// BinnedRunningSpeed averages the running-speed trace over fixed frame bins,
// ignoring NaN samples. Returns ErrNoRunningSpeed without an encoder trace.
func BinnedRunningSpeed(ns *models.NormalizedSession, binFrames int) ([]SpeedBin, error) {
	if !ns.HasRunningSpeed() {
		return nil, ErrNoRunningSpeed
	}
	if binFrames <= 0 {
		binFrames = DefaultSpeedBinFrames
	}

	n := len(ns.RunningSpeed)
	bins := make([]SpeedBin, 0, (n+binFrames-1)/binFrames)
	for start := 0; start < n; start += binFrames {
		end := min(start+binFrames, n)
		last := min(end-1, len(ns.FrameTimes)-1)
		bins = append(bins, SpeedBin{
			Time:  ns.FrameTimes[last],
			Speed: MeanIgnoringNaN(ns.RunningSpeed[start:end]),
		})
	}
	return bins, nil
}

// TrialType selects the trials averaged into a running-speed trace.
type TrialType string

const (
	TypeGo         TrialType = "go"
	TypeNogo       TrialType = "no-go"
	TypeAutoReward TrialType = "auto reward"
	TypeCatch      TrialType = "catch"
)

// TrialTypes lists the trace types in report order.
var TrialTypes = []TrialType{TypeGo, TypeNogo, TypeAutoReward, TypeCatch}

// SpeedTrace is the mean running speed around stimulus onset for one trial
// type within one block.
type SpeedTrace struct {
	Block   int // 1-based
	Type    TrialType
	N       int // Trials of this type in the block
	Engaged int // Of those, engaged trials
	// Included counts the trials whose whole window lies inside the session.
	Included int
	Time     []float64 // Seconds from stimulus onset, one sample per frame
	Speed    []float64 // cm/s; nil when no trial was included
}

// RunningSpeedTraces interpolates each trial's running speed onto a
// frame-rate grid spanning [-Pre, Post] around stimulus onset and averages
// per block and trial type, ignoring NaN samples. Every trial of the type
// counts, engaged or not; trials closer than the window to either end of the
// session are left out of the mean. Returns ErrNoRunningSpeed without an
// encoder trace.
func RunningSpeedTraces(ns *models.NormalizedSession, cats *models.TrialCategories, w RasterWindow) ([]SpeedTrace, error) {
	if !ns.HasRunningSpeed() {
		return nil, ErrNoRunningSpeed
	}

	grid := traceGrid(w, ns.FrameRate)
	masks := map[TrialType][]bool{
		TypeGo:         cats.Go,
		TypeNogo:       cats.Nogo,
		TypeAutoReward: ns.AutoRewarded,
		TypeCatch:      cats.Catch,
	}

	traces := make([]SpeedTrace, 0, ns.NBlocks()*len(TrialTypes))
	for b := 1; b <= ns.NBlocks(); b++ {
		for _, typ := range TrialTypes {
			tr := SpeedTrace{Block: b, Type: typ, Time: grid}
			var rows [][]float64
			for i := 0; i < ns.NTrials; i++ {
				if ns.TrialBlock[i] != b || !masks[typ][i] {
					continue
				}
				tr.N++
				if cats.Engaged[i] {
					tr.Engaged++
				}
				if row := alignedSpeed(ns, ns.StimStartTimes[i], w, grid); row != nil {
					rows = append(rows, row)
				}
			}
			tr.Included = len(rows)
			if len(rows) > 0 {
				tr.Speed = columnMeans(rows, len(grid))
			}
			traces = append(traces, tr)
		}
	}
	return traces, nil
}

func traceGrid(w RasterWindow, frameRate float64) []float64 {
	n := int(math.Round((w.Pre+w.Post)*frameRate)) + 1
	if n < 2 {
		return []float64{-w.Pre}
	}
	return floats.Span(make([]float64, n), -w.Pre, w.Post)
}

// alignedSpeed resamples the running speed around onset onto grid. Nil when
// the window leaves the session or holds fewer than two frames.
func alignedSpeed(ns *models.NormalizedSession, onset float64, w RasterWindow, grid []float64) []float64 {
	if onset < w.Pre || onset+w.Post > ns.Duration() {
		return nil
	}

	n := min(len(ns.FrameTimes), len(ns.RunningSpeed))
	var xs, ys []float64
	for f := 0; f < n; f++ {
		t := ns.FrameTimes[f]
		if t < onset-w.Pre || t > onset+w.Post {
			continue
		}
		x := t - onset
		if len(xs) > 0 && x <= xs[len(xs)-1] {
			continue
		}
		xs = append(xs, x)
		ys = append(ys, ns.RunningSpeed[f])
	}
	if len(xs) < 2 {
		return nil
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(xs, ys); err != nil {
		return nil
	}
	row := make([]float64, len(grid))
	for k, x := range grid {
		row[k] = pl.Predict(x)
	}
	return row
}

func columnMeans(rows [][]float64, width int) []float64 {
	out := make([]float64, width)
	col := make([]float64, len(rows))
	for k := range out {
		for r, row := range rows {
			col[r] = row[k]
		}
		out[k] = MeanIgnoringNaN(col)
	}
	return out
}

// MeanIgnoringNaN returns the mean of the non-NaN values, NaN when there are none.
func MeanIgnoringNaN(values []float64) float64 {
	kept := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		return math.NaN()
	}
	return stat.Mean(kept, nil)
}
