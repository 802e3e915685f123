// Package sessiontest builds synthetic raw session records for tests.
//
// Every trial occupies FramesPerTrial frames at a constant 60 Hz: the trial
// starts on its first frame, the stimulus starts StimOffset frames later and a
// response, when present, lands ResponseOffset frames after stimulus onset.
package sessiontest

import (
	"fmt"

	"github.com/harrison/dynrouting/internal/models"
)

const (
	FramesPerTrial = 120
	StimOffset     = 60
	ResponseOffset = 15
	AutoOnset      = 9
)

// Trial describes one synthetic trial.
type Trial struct {
	Stim          string
	Block         int // 1-based
	Response      bool
	Rewarded      bool
	Repeat        bool
	AutoScheduled bool
}

// Go returns a trial presenting stim in block that is responded to (hit) or not (miss).
func Go(stim string, block int, response bool) Trial {
	return Trial{Stim: stim, Block: block, Response: response, Rewarded: response}
}

// Nogo returns a non-rewarded trial presenting stim in block.
func Nogo(stim string, block int, response bool) Trial {
	return Trial{Stim: stim, Block: block, Response: response}
}

// Catch returns a catch trial in block.
func Catch(block int, response bool) Trial {
	return Trial{Stim: "catch", Block: block, Response: response}
}

// Repeat returns n copies of t.
func Repeat(t Trial, n int) []Trial {
	out := make([]Trial, n)
	for i := range out {
		out[i] = t
	}
	return out
}

// Concat joins trial groups in order.
func Concat(groups ...[]Trial) []Trial {
	var out []Trial
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// Builder assembles a RawSession.
type Builder struct {
	TaskVersion       string
	BlockStimRewarded []string
	Trials            []Trial
	NewBlockAuto      int
	Encoder           bool
}

// New returns a builder for the given rewarded stimuli and trials.
func New(blockStimRewarded []string, trials []Trial) *Builder {
	return &Builder{
		TaskVersion:       "stage 5 ori AMN moving",
		BlockStimRewarded: blockStimRewarded,
		Trials:            trials,
	}
}

// Raw returns the synthetic record.
func (b *Builder) Raw() *models.RawSession {
	n := len(b.Trials)
	nFrames := n*FramesPerTrial + 1

	intervals := make([]float64, nFrames)
	for i := range intervals {
		intervals[i] = 1.0 / 60
	}

	raw := &models.RawSession{
		SubjectName:    "366122",
		RigName:        "NP3",
		TaskVersion:    strPtr(b.TaskVersion),
		StartTime:      "20230414_120213",
		FrameIntervals: intervals,

		TrialEndFrame:            make([]int, n),
		TrialStartFrame:          make([]int, n),
		TrialStimStartFrame:      make([]int, n),
		TrialResponseFrame:       make([]int, n),
		TrialStim:                make([]string, n),
		TrialBlock:               make([]int, n),
		BlockStimRewarded:        append([]string(nil), b.BlockStimRewarded...),
		TrialResponse:            make([]bool, n),
		TrialRewarded:            make([]bool, n),
		TrialRepeat:              make([]bool, n),
		TrialAutoRewardScheduled: make([]bool, n),
		TrialAutoRewarded:        make([]bool, n),

		NewBlockAutoRewards:    intPtr(b.NewBlockAuto),
		NewBlockGoTrials:       intPtr(5),
		NewBlockNogoTrials:     intPtr(0),
		NewBlockCatchTrials:    intPtr(0),
		AutoRewardOnsetFrame:   intPtr(AutoOnset),
		IncorrectTrialRepeats:  intPtr(3),
		IncorrectTimeoutFrames: intPtr(180),

		QuiescentFrames:          intPtr(90),
		QuiescentViolationFrames: []int{30},
		ResponseWindow:           []int{6, 60},

		RewardFrames: []int{},
		RewardSize:   []float64{},
		LickFrames:   []int{},
	}

	for i, t := range b.Trials {
		start := i * FramesPerTrial
		stim := start + StimOffset
		raw.TrialStartFrame[i] = start
		raw.TrialStimStartFrame[i] = stim
		raw.TrialEndFrame[i] = start + FramesPerTrial - 1
		raw.TrialStim[i] = t.Stim
		raw.TrialBlock[i] = t.Block
		raw.TrialResponse[i] = t.Response
		raw.TrialRewarded[i] = t.Rewarded
		raw.TrialRepeat[i] = t.Repeat
		raw.TrialAutoRewardScheduled[i] = t.AutoScheduled

		if t.Response {
			rf := stim + ResponseOffset
			raw.TrialResponseFrame[i] = rf
			// A second detection one frame later is merged by lick deduplication.
			raw.LickFrames = append(raw.LickFrames, rf, rf+1)
		}
		if t.Rewarded {
			rf := stim + ResponseOffset
			if t.AutoScheduled {
				rf = stim + AutoOnset
				raw.TrialAutoRewarded[i] = true
			}
			raw.RewardFrames = append(raw.RewardFrames, rf)
			raw.RewardSize = append(raw.RewardSize, 0.005)
		}
	}

	if b.Encoder {
		counts := make([]float64, nFrames)
		for i := range counts {
			counts[i] = float64(i * 2)
		}
		raw.RotaryEncoder = strPtr("digital")
		raw.RotaryEncoderCount = counts
		raw.RotaryEncoderCountsPerRev = floatPtr(8192)
		raw.WheelRadius = floatPtr(8.25)
	}

	return raw
}

// FileName returns a rig-style file name for the builder's session.
func FileName(subject, ext string) string {
	return fmt.Sprintf("DynamicRouting1_%s_20230414_120213.%s", subject, ext)
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
func strPtr(v string) *string     { return &v }
