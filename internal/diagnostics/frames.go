// Package diagnostics derives the per-session data series the lab inspects
// alongside block metrics: frame timing, quiescent violations, inter-trial
// intervals, response-time distributions, lick rasters, running speed and
// cumulative reward. Nothing here renders; every function returns data.
package diagnostics

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/harrison/dynrouting/internal/models"
)

// LongFrameFactor marks a frame as long when its interval exceeds this many nominal frames.
const LongFrameFactor = 1.5

// ErrNoRunningSpeed is returned by series that need a running-speed trace
// when the session has no digital rotary encoder.
var ErrNoRunningSpeed = errors.New("session has no running speed")

// FrameStats summarizes display frame timing.
type FrameStats struct {
	NFrames           int
	LongFrames        int
	LongFrameFraction float64
	MaxInterval       float64
	MeanInterval      float64
	// BinEdges are one-frame wide and centered on whole frame multiples.
	BinEdges []float64
	Counts   []float64
}

// FrameIntervalStats computes long-frame counts and a one-frame histogram of the intervals.
func FrameIntervalStats(ns *models.NormalizedSession) FrameStats {
	intervals := ns.FrameIntervals
	fs := FrameStats{NFrames: len(intervals)}
	if len(intervals) == 0 {
		fs.LongFrameFraction = math.NaN()
		fs.MaxInterval = math.NaN()
		fs.MeanInterval = math.NaN()
		return fs
	}

	frame := 1 / ns.FrameRate
	for _, v := range intervals {
		if v > LongFrameFactor*frame {
			fs.LongFrames++
		}
	}
	fs.LongFrameFraction = float64(fs.LongFrames) / float64(len(intervals))
	fs.MaxInterval = floats.Max(intervals)
	fs.MeanInterval = stat.Mean(intervals, nil)

	// Upper edge strictly above the longest interval.
	nBins := int(math.Floor(fs.MaxInterval*ns.FrameRate+0.5)) + 1
	fs.BinEdges = make([]float64, nBins+1)
	for k := range fs.BinEdges {
		fs.BinEdges[k] = (float64(k) - 0.5) * frame
	}

	sorted := append([]float64(nil), intervals...)
	sort.Float64s(sorted)
	fs.Counts = stat.Histogram(nil, fs.BinEdges, sorted, nil)
	return fs
}
