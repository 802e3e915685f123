package diagnostics

import (
	"math"
	"sort"

	"github.com/harrison/dynrouting/internal/models"
)

// QuiescentViolationsPerTrial counts violation frames strictly between each
// trial's start and end frames.
func QuiescentViolationsPerTrial(ns *models.NormalizedSession) []int {
	counts := make([]int, ns.NTrials)
	for i := range counts {
		start, end := ns.TrialStartFrame[i], ns.TrialEndFrame[i]
		for _, f := range ns.QuiescentViolationFrames {
			if f > start && f < end {
				counts[i]++
			}
		}
	}
	return counts
}

// InterTrialIntervals returns the time between consecutive stimulus onsets.
func InterTrialIntervals(ns *models.NormalizedSession) []float64 {
	if ns.NTrials < 2 {
		return []float64{}
	}
	out := make([]float64, ns.NTrials-1)
	for i := range out {
		out[i] = ns.StimStartTimes[i+1] - ns.StimStartTimes[i]
	}
	return out
}

// QuietInterTrialIntervals keeps the inter-trial intervals whose following
// trial had no quiescent period violation.
func QuietInterTrialIntervals(ns *models.NormalizedSession) []float64 {
	iti := InterTrialIntervals(ns)
	violations := QuiescentViolationsPerTrial(ns)
	out := make([]float64, 0, len(iti))
	for i, v := range iti {
		if violations[i+1] == 0 {
			out = append(out, v)
		}
	}
	return out
}

// CDF is an empirical cumulative distribution.
type CDF struct {
	Values []float64
	Prob   []float64
}

// ResponseTimeCDF returns, per stimulus label, the empirical distribution of
// response times over responded trials. Labels with no response are omitted.
func ResponseTimeCDF(ns *models.NormalizedSession) map[string]CDF {
	byStim := make(map[string][]float64)
	for i, rt := range ns.ResponseTimes {
		if math.IsNaN(rt) {
			continue
		}
		byStim[ns.TrialStim[i]] = append(byStim[ns.TrialStim[i]], rt)
	}

	out := make(map[string]CDF, len(byStim))
	for stim, rts := range byStim {
		sort.Float64s(rts)
		prob := make([]float64, len(rts))
		for i := range rts {
			// Ties share the probability of their last occurrence.
			j := sort.Search(len(rts), func(k int) bool { return rts[k] > rts[i] })
			prob[i] = float64(j) / float64(len(rts))
		}
		out[stim] = CDF{Values: rts, Prob: prob}
	}
	return out
}

// RasterWindow bounds lick and reward times around stimulus onset, in seconds.
type RasterWindow struct {
	Pre  float64
	Post float64
}

// DefaultRasterWindow spans four seconds either side of stimulus onset.
var DefaultRasterWindow = RasterWindow{Pre: 4, Post: 4}

// RasterTrial is one row of a lick raster.
type RasterTrial struct {
	Trial       int
	Engaged     bool
	Licks       []float64 // Relative to stimulus onset, within [-Pre, Post]
	Rewards     []float64 // Relative to stimulus onset, within (0, Post]
	AutoRewards bool
}

// LickRaster aligns licks and rewards to each trial's stimulus onset.
func LickRaster(ns *models.NormalizedSession, cats *models.TrialCategories, w RasterWindow) []RasterTrial {
	rows := make([]RasterTrial, ns.NTrials)
	for i, st := range ns.StimStartTimes {
		row := RasterTrial{
			Trial:       i,
			Engaged:     cats.Engaged[i],
			Licks:       []float64{},
			AutoRewards: ns.AutoRewarded[i],
		}
		for _, lt := range ns.LickTimes {
			d := lt - st
			if d >= -w.Pre && d <= w.Post {
				row.Licks = append(row.Licks, d)
			}
		}
		if ns.TrialRewarded[i] {
			for _, rt := range ns.RewardTimes {
				d := rt - st
				if d > 0 && d <= w.Post {
					row.Rewards = append(row.Rewards, d)
				}
			}
		}
		rows[i] = row
	}
	return rows
}

// CumulativeReward is the running reward total at each trial.
type CumulativeReward struct {
	Volume []float64
	Count  []int
}

// RewardTotals accumulates reward volume and count in trial order. A trial
// flagged rewarded consumes the next recorded reward; trials in between carry
// the previous total.
func RewardTotals(ns *models.NormalizedSession) CumulativeReward {
	cr := CumulativeReward{
		Volume: make([]float64, ns.NTrials),
		Count:  make([]int, ns.NTrials),
	}

	next := 0
	volume := 0.0
	for i := 0; i < ns.NTrials; i++ {
		if ns.TrialRewarded[i] && next < len(ns.RewardSize) {
			volume += ns.RewardSize[next]
			next++
		}
		cr.Volume[i] = volume
		cr.Count[i] = next
	}
	return cr
}
