package models

import "time"

// NormalizedSession is the time-aligned view of a RawSession.
// It is built once by the session loader and never modified afterwards.
type NormalizedSession struct {
	SubjectName  string
	RigName      string
	ComputerName string // Empty when the rig did not record it
	TaskVersion  string // Empty when the rig did not record it
	StartTime    time.Time

	FrameRate      float64   // Display frames per second
	FrameIntervals []float64 // Seconds between consecutive frames
	FrameTimes     []float64 // Cumulative frame time, FrameTimes[0] == 0, len = frames+1

	NTrials         int
	TrialStartFrame []int
	TrialEndFrame   []int
	StimStartFrame  []int
	TrialStartTimes []float64
	StimStartTimes  []float64
	TrialEndTimes   []float64
	ResponseTimes   []float64 // Seconds from stimulus onset; NaN where no response

	TrialStim         []string
	TrialBlock        []int    // 1-based block index per trial
	BlockTrial        []int    // 0-based trial index within its block
	BlockStimRewarded []string // Rewarded stimulus per block, indexed by block-1
	RewardedStim      []string // Rewarded stimulus of each trial's block

	BlockStartTimes     []float64
	BlockFirstStimTimes []float64

	TrialResponse []bool
	TrialRewarded []bool
	TrialRepeat   []bool

	AutoRewardScheduled []bool
	AutoRewarded        []bool
	RewardEarned        []bool // Rewarded and not auto-rewarded

	RewardFrames []int
	RewardTimes  []float64
	RewardSize   []float64

	LickTimes    []float64 // Deduplicated lick times
	RunningSpeed []float64 // cm/s per frame; nil without a digital rotary encoder

	NewBlockAutoRewards    int
	NewBlockGoTrials       int
	NewBlockNogoTrials     int
	NewBlockCatchTrials    int
	AutoRewardOnsetFrame   int
	IncorrectTrialRepeats  int
	IncorrectTimeoutFrames int

	QuiescentFrames          int
	QuiescentViolationFrames []int
	ResponseWindow           []int     // Frames after stimulus onset
	ResponseWindowTime       []float64 // Seconds after stimulus onset

	VisContrast      float64 // NaN when the rig did not record it
	TrialVisContrast []float64
	SoundVolume      float64 // NaN when the rig did not record it
	TrialSoundVolume []float64

	GratingOri      map[string][]float64 // Keyed by visual stimulus label
	TrialGratingOri []float64

	OptoRegions         []string
	TrialOptoOnsetFrame []int
	TrialOptoDur        []float64
	TrialOptoVoltage    []float64
	GalvoVoltage        [][]float64
	TrialGalvoVoltage   [][]float64
}

// NBlocks returns the number of blocks in the session.
func (s *NormalizedSession) NBlocks() int {
	return len(s.BlockStimRewarded)
}

// HasRunningSpeed reports whether a running-speed trace is available.
func (s *NormalizedSession) HasRunningSpeed() bool {
	return s.RunningSpeed != nil
}

// Duration returns the time of the last frame in seconds.
func (s *NormalizedSession) Duration() float64 {
	if len(s.FrameTimes) == 0 {
		return 0
	}
	return s.FrameTimes[len(s.FrameTimes)-1]
}
