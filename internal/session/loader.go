// Package session turns raw behavioral session records into time-aligned
// NormalizedSession values.
//
// Normalize is a pure function: it never mutates the RawSession and the
// returned NormalizedSession shares no slices with it. Structural problems in
// the record fail fast with a *MalformedSessionError naming the field.
package session

import (
	"math"
	"sort"
	"time"

	"github.com/harrison/dynrouting/internal/models"
)

const (
	// FrameRate is the display refresh rate of the rigs in frames per second.
	FrameRate = 60.0

	// MinLickInterval merges lick detections closer than this many seconds.
	MinLickInterval = 0.05

	// DigitalEncoder is the rotaryEncoder value that enables running speed.
	DigitalEncoder = "digital"
)

var startTimeLayouts = []string{
	"20060102_150405",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Normalize validates raw and derives the normalized session.
func Normalize(raw *models.RawSession) (*models.NormalizedSession, error) {
	if err := validateRequired(raw); err != nil {
		return nil, err
	}

	startTime, err := parseStartTime(raw.StartTime)
	if err != nil {
		return nil, err
	}

	frameTimes, err := FrameTimes(raw.FrameIntervals)
	if err != nil {
		return nil, err
	}
	nFrameTimes := len(frameTimes)

	nTrials := len(raw.TrialEndFrame)
	trialEnd := append([]int(nil), raw.TrialEndFrame...)

	trialStart, err := headInts("trialStartFrame", raw.TrialStartFrame, nTrials)
	if err != nil {
		return nil, err
	}
	stimStart, err := headInts("trialStimStartFrame", raw.TrialStimStartFrame, nTrials)
	if err != nil {
		return nil, err
	}
	responseFrame, err := headInts("trialResponseFrame", raw.TrialResponseFrame, nTrials)
	if err != nil {
		return nil, err
	}
	trialBlock, err := headInts("trialBlock", raw.TrialBlock, nTrials)
	if err != nil {
		return nil, err
	}
	trialStim, err := headStrings("trialStim", raw.TrialStim, nTrials)
	if err != nil {
		return nil, err
	}
	response, err := headBools("trialResponse", raw.TrialResponse, nTrials)
	if err != nil {
		return nil, err
	}
	rewarded, err := headBools("trialRewarded", raw.TrialRewarded, nTrials)
	if err != nil {
		return nil, err
	}
	repeat, err := headBools("trialRepeat", raw.TrialRepeat, nTrials)
	if err != nil {
		return nil, err
	}

	quiescentViolations := raw.QuiescentViolationFrames
	quiescentField := "quiescentViolationFrames"
	if quiescentViolations == nil {
		quiescentViolations = raw.QuiescentMoveFrames
		quiescentField = "quiescentMoveFrames"
	}

	frameChecks := []struct {
		field  string
		frames []int
	}{
		{"trialEndFrame", trialEnd},
		{"trialStartFrame", trialStart},
		{"trialStimStartFrame", stimStart},
		{"rewardFrames", raw.RewardFrames},
		{"lickFrames", raw.LickFrames},
		{quiescentField, quiescentViolations},
	}
	for _, fc := range frameChecks {
		if err := checkFrames(fc.field, fc.frames, nFrameTimes); err != nil {
			return nil, err
		}
	}
	for i := 0; i < nTrials; i++ {
		if response[i] && (responseFrame[i] < 0 || responseFrame[i] >= nFrameTimes) {
			return nil, newMalformed("trialResponseFrame", "trial %d response frame %d outside %d frame times", i, responseFrame[i], nFrameTimes)
		}
	}

	blockStimRewarded := append([]string(nil), raw.BlockStimRewarded...)
	if err := checkBlocks(trialBlock, len(blockStimRewarded)); err != nil {
		return nil, err
	}
	blockTrial := BlockTrialIndex(trialBlock)

	rewardedStim := make([]string, nTrials)
	for i, b := range trialBlock {
		rewardedStim[i] = blockStimRewarded[b-1]
	}

	trialStartTimes := indexTimes(frameTimes, trialStart)
	stimStartTimes := indexTimes(frameTimes, stimStart)

	scheduled, autoRewarded := reconcileAutoRewards(raw, nTrials, blockTrial, stimStart)
	earned := make([]bool, nTrials)
	for i := range earned {
		earned[i] = rewarded[i] && !autoRewarded[i]
	}

	responseTimes := make([]float64, nTrials)
	for i := range responseTimes {
		if response[i] {
			responseTimes[i] = frameTimes[responseFrame[i]] - stimStartTimes[i]
		} else {
			responseTimes[i] = math.NaN()
		}
	}

	runningSpeed, err := runningSpeed(raw)
	if err != nil {
		return nil, err
	}

	visContrast, err := headOptionalFloats("trialVisStimContrast", raw.TrialVisStimContrast, nTrials)
	if err != nil {
		return nil, err
	}
	soundVolume, err := headOptionalFloats("trialSoundVolume", raw.TrialSoundVolume, nTrials)
	if err != nil {
		return nil, err
	}
	optoOnset, err := headOptionalInts("trialOptoOnsetFrame", raw.TrialOptoOnsetFrame, nTrials)
	if err != nil {
		return nil, err
	}
	optoDur, err := headOptionalFloats("trialOptoDur", raw.TrialOptoDur, nTrials)
	if err != nil {
		return nil, err
	}
	optoVoltage, err := headOptionalFloats("trialOptoVoltage", raw.TrialOptoVoltage, nTrials)
	if err != nil {
		return nil, err
	}

	gratingOri, err := headOptionalFloats("trialGratingOri", raw.TrialGratingOri, nTrials)
	if err != nil {
		return nil, err
	}
	galvo, err := headOptionalRows("trialGalvoVoltage", raw.TrialGalvoVoltage, nTrials)
	if err != nil {
		return nil, err
	}

	blockStarts, blockFirstStims := blockTimes(trialBlock, trialStartTimes, stimStartTimes)

	ns := &models.NormalizedSession{
		SubjectName:  raw.SubjectName,
		RigName:      raw.RigName,
		ComputerName: derefString(raw.ComputerName),
		TaskVersion:  derefString(raw.TaskVersion),
		StartTime:    startTime,

		FrameRate:      FrameRate,
		FrameIntervals: append([]float64(nil), raw.FrameIntervals...),
		FrameTimes:     frameTimes,

		NTrials:         nTrials,
		TrialStartFrame: trialStart,
		TrialEndFrame:   trialEnd,
		StimStartFrame:  stimStart,
		TrialStartTimes: trialStartTimes,
		StimStartTimes:  stimStartTimes,
		TrialEndTimes:   indexTimes(frameTimes, trialEnd),
		ResponseTimes:   responseTimes,

		TrialStim:         trialStim,
		TrialBlock:        trialBlock,
		BlockTrial:        blockTrial,
		BlockStimRewarded: blockStimRewarded,
		RewardedStim:      rewardedStim,

		BlockStartTimes:     blockStarts,
		BlockFirstStimTimes: blockFirstStims,

		TrialResponse: response,
		TrialRewarded: rewarded,
		TrialRepeat:   repeat,

		AutoRewardScheduled: scheduled,
		AutoRewarded:        autoRewarded,
		RewardEarned:        earned,

		RewardFrames: append([]int(nil), raw.RewardFrames...),
		RewardTimes:  indexTimes(frameTimes, raw.RewardFrames),
		RewardSize:   append([]float64(nil), raw.RewardSize...),

		LickTimes:    DedupLicks(indexTimes(frameTimes, raw.LickFrames), MinLickInterval),
		RunningSpeed: runningSpeed,

		NewBlockAutoRewards:    *raw.NewBlockAutoRewards,
		NewBlockGoTrials:       *raw.NewBlockGoTrials,
		NewBlockNogoTrials:     derefInt(raw.NewBlockNogoTrials),
		NewBlockCatchTrials:    derefInt(raw.NewBlockCatchTrials),
		AutoRewardOnsetFrame:   *raw.AutoRewardOnsetFrame,
		IncorrectTrialRepeats:  *raw.IncorrectTrialRepeats,
		IncorrectTimeoutFrames: *raw.IncorrectTimeoutFrames,

		QuiescentFrames:          *raw.QuiescentFrames,
		QuiescentViolationFrames: append([]int(nil), quiescentViolations...),
		ResponseWindow:           append([]int(nil), raw.ResponseWindow...),
		ResponseWindowTime: []float64{
			float64(raw.ResponseWindow[0]) / FrameRate,
			float64(raw.ResponseWindow[1]) / FrameRate,
		},

		VisContrast:      derefFloat(raw.VisStimContrast),
		TrialVisContrast: visContrast,
		SoundVolume:      derefFloat(raw.SoundVolume),
		TrialSoundVolume: soundVolume,

		GratingOri:      gratingOrientations(raw),
		TrialGratingOri: gratingOri,

		OptoRegions:         append([]string(nil), raw.OptoRegions...),
		TrialOptoOnsetFrame: optoOnset,
		TrialOptoDur:        optoDur,
		TrialOptoVoltage:    optoVoltage,
		GalvoVoltage:        copyRows(raw.GalvoVoltage),
		TrialGalvoVoltage:   galvo,
	}

	return ns, nil
}

// FrameTimes returns the cumulative frame times for the given intervals,
// starting at 0. Negative or non-finite intervals are rejected.
func FrameTimes(intervals []float64) ([]float64, error) {
	times := make([]float64, len(intervals)+1)
	for k, dt := range intervals {
		if math.IsNaN(dt) || math.IsInf(dt, 0) || dt < 0 {
			return nil, newMalformed("frameIntervals", "interval %d is %v", k, dt)
		}
		times[k+1] = times[k] + dt
	}
	return times, nil
}

// DedupLicks merges lick detections that follow the previous detection by no
// more than minInterval, keeping the first detection of each cluster.
// Deduplicating an already deduplicated sequence returns it unchanged.
func DedupLicks(times []float64, minInterval float64) []float64 {
	if len(times) == 0 {
		return []float64{}
	}

	sorted := append([]float64(nil), times...)
	sort.Float64s(sorted)

	licks := []float64{sorted[0]}
	for i := 1; i < len(sorted); i++ {
		if sorted[i]-sorted[i-1] > minInterval {
			licks = append(licks, sorted[i])
		}
	}
	return licks
}

// BlockTrialIndex numbers the trials of each block from 0.
func BlockTrialIndex(trialBlock []int) []int {
	idx := make([]int, len(trialBlock))
	counts := make(map[int]int)
	for i, b := range trialBlock {
		idx[i] = counts[b]
		counts[b]++
	}
	return idx
}

func parseStartTime(value string) (time.Time, error) {
	for _, layout := range startTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, newMalformed("startTime", "unrecognized timestamp %q", value)
}

func checkFrames(field string, frames []int, nFrameTimes int) error {
	for i, f := range frames {
		if f < 0 || f >= nFrameTimes {
			return newMalformed(field, "entry %d frame %d outside %d frame times", i, f, nFrameTimes)
		}
	}
	return nil
}

// checkBlocks requires 1-based, non-decreasing block indices within the rewarded list.
func checkBlocks(trialBlock []int, nBlocks int) error {
	prev := 1
	for i, b := range trialBlock {
		if b < 1 || b > nBlocks {
			return newMalformed("trialBlock", "trial %d block %d outside [1, %d]", i, b, nBlocks)
		}
		if b < prev {
			return newMalformed("trialBlock", "trial %d block %d decreases from %d", i, b, prev)
		}
		prev = b
	}
	return nil
}

// blockTimes returns start and first-stimulus times of each block that has trials, in block order.
func blockTimes(trialBlock []int, trialStartTimes, stimStartTimes []float64) ([]float64, []float64) {
	starts := []float64{}
	firstStims := []float64{}
	seen := make(map[int]bool)
	for i, b := range trialBlock {
		if seen[b] {
			continue
		}
		seen[b] = true
		starts = append(starts, trialStartTimes[i])
		firstStims = append(firstStims, stimStartTimes[i])
	}
	return starts, firstStims
}

// reconcileAutoRewards derives scheduled and delivered auto-rewards across the
// rig's historical file formats.
func reconcileAutoRewards(raw *models.RawSession, nTrials int, blockTrial, stimStart []int) ([]bool, []bool) {
	delivered := rewardAtOnset(stimStart, *raw.AutoRewardOnsetFrame, raw.RewardFrames)

	fromBlockRule := func() []bool {
		s := make([]bool, nTrials)
		for i, bt := range blockTrial {
			s[i] = bt < *raw.NewBlockAutoRewards
		}
		return s
	}

	var scheduled, autoRewarded []bool
	switch {
	case raw.TrialAutoRewardScheduled != nil:
		scheduled = headAtMost(raw.TrialAutoRewardScheduled, nTrials)
		if len(scheduled) < nTrials {
			scheduled = fromBlockRule()
		}
		autoRewarded = headAtMost(raw.TrialAutoRewarded, nTrials)
		if len(autoRewarded) < nTrials {
			autoRewarded = and(scheduled, delivered)
		}
	case raw.TrialAutoRewarded != nil:
		// Legacy files stored the schedule under trialAutoRewarded.
		scheduled = headAtMost(raw.TrialAutoRewarded, nTrials)
		if len(scheduled) < nTrials {
			scheduled = fromBlockRule()
		}
		autoRewarded = and(scheduled, delivered)
	default:
		scheduled = fromBlockRule()
		autoRewarded = and(scheduled, delivered)
	}

	return scheduled, autoRewarded
}

// rewardAtOnset reports, per trial, whether a reward frame sits exactly at the auto-reward onset.
func rewardAtOnset(stimStart []int, onsetFrame int, rewardFrames []int) []bool {
	frames := make(map[int]struct{}, len(rewardFrames))
	for _, f := range rewardFrames {
		frames[f] = struct{}{}
	}
	out := make([]bool, len(stimStart))
	for i, sf := range stimStart {
		_, out[i] = frames[sf+onsetFrame]
	}
	return out
}

// runningSpeed returns the per-frame speed in cm/s, or nil without a digital encoder.
func runningSpeed(raw *models.RawSession) ([]float64, error) {
	if raw.RotaryEncoder == nil || *raw.RotaryEncoder != DigitalEncoder {
		return nil, nil
	}
	if raw.RotaryEncoderCount == nil {
		return nil, newMalformed("rotaryEncoderCount", "required with a digital rotary encoder")
	}
	if raw.RotaryEncoderCountsPerRev == nil || *raw.RotaryEncoderCountsPerRev == 0 {
		return nil, newMalformed("rotaryEncoderCountsPerRev", "required and non-zero with a digital rotary encoder")
	}
	if raw.WheelRadius == nil {
		return nil, newMalformed("wheelRadius", "required with a digital rotary encoder")
	}

	counts := raw.RotaryEncoderCount
	speed := make([]float64, len(counts))
	scale := 2 * math.Pi * *raw.WheelRadius * FrameRate / *raw.RotaryEncoderCountsPerRev
	for i := range counts {
		if i == 0 {
			speed[i] = math.NaN()
			continue
		}
		speed[i] = (counts[i] - counts[i-1]) * scale
	}
	return speed, nil
}

func indexTimes(frameTimes []float64, frames []int) []float64 {
	out := make([]float64, len(frames))
	for i, f := range frames {
		out[i] = frameTimes[f]
	}
	return out
}

func and(a, b []bool) []bool {
	out := make([]bool, len(a))
	for i := range a {
		out[i] = a[i] && b[i]
	}
	return out
}

func headAtMost(values []bool, n int) []bool {
	if len(values) > n {
		values = values[:n]
	}
	return append([]bool(nil), values...)
}

func headInts(field string, values []int, n int) ([]int, error) {
	if len(values) < n {
		return nil, newMalformed(field, "has %d entries, want at least %d trials", len(values), n)
	}
	return append([]int(nil), values[:n]...), nil
}

func headStrings(field string, values []string, n int) ([]string, error) {
	if len(values) < n {
		return nil, newMalformed(field, "has %d entries, want at least %d trials", len(values), n)
	}
	return append([]string(nil), values[:n]...), nil
}

func headBools(field string, values []bool, n int) ([]bool, error) {
	if len(values) < n {
		return nil, newMalformed(field, "has %d entries, want at least %d trials", len(values), n)
	}
	return append([]bool(nil), values[:n]...), nil
}

func headOptionalInts(field string, values []int, n int) ([]int, error) {
	if values == nil {
		return nil, nil
	}
	return headInts(field, values, n)
}

func headOptionalFloats(field string, values []float64, n int) ([]float64, error) {
	if values == nil {
		return nil, nil
	}
	if len(values) < n {
		return nil, newMalformed(field, "has %d entries, want at least %d trials", len(values), n)
	}
	return append([]float64(nil), values[:n]...), nil
}

// headOptionalRows keeps the first n rows of a per-trial array of vectors.
func headOptionalRows(field string, rows [][]float64, n int) ([][]float64, error) {
	if rows == nil {
		return nil, nil
	}
	if len(rows) < n {
		return nil, newMalformed(field, "has %d entries, want at least %d trials", len(rows), n)
	}
	return copyRows(rows[:n]), nil
}

func copyRows(rows [][]float64) [][]float64 {
	if rows == nil {
		return nil
	}
	out := make([][]float64, len(rows))
	for i, r := range rows {
		out[i] = append([]float64(nil), r...)
	}
	return out
}

// gratingOrientations prefers the gratingOri map and falls back to the
// per-stimulus fields of older rigs. Nil when neither was recorded.
func gratingOrientations(raw *models.RawSession) map[string][]float64 {
	if raw.GratingOri != nil {
		out := make(map[string][]float64, len(raw.GratingOri))
		for stim, ori := range raw.GratingOri {
			out[stim] = append([]float64(nil), ori...)
		}
		return out
	}
	if raw.GratingOriVis1 == nil && raw.GratingOriVis2 == nil {
		return nil
	}
	return map[string][]float64{
		"vis1": append([]float64(nil), raw.GratingOriVis1...),
		"vis2": append([]float64(nil), raw.GratingOriVis2...),
	}
}

func derefFloat(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
