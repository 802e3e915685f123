package models

// RawSession is a behavioral session record as exported from the rig's session file.
// Required scalars are pointers so that an absent field can be told apart from zero;
// absent arrays decode as nil slices while present-but-empty arrays are non-nil.
type RawSession struct {
	SubjectName  string  `json:"subjectName,omitempty" yaml:"subjectName,omitempty"`
	RigName      string  `json:"rigName" yaml:"rigName" validate:"required"`
	ComputerName *string `json:"computerName,omitempty" yaml:"computerName,omitempty"`
	TaskVersion  *string `json:"taskVersion,omitempty" yaml:"taskVersion,omitempty"`
	StartTime    string  `json:"startTime" yaml:"startTime" validate:"required"`

	FrameIntervals []float64 `json:"frameIntervals" yaml:"frameIntervals" validate:"required"`

	TrialEndFrame       []int `json:"trialEndFrame" yaml:"trialEndFrame" validate:"required"`
	TrialStartFrame     []int `json:"trialStartFrame" yaml:"trialStartFrame" validate:"required"`
	TrialStimStartFrame []int `json:"trialStimStartFrame" yaml:"trialStimStartFrame" validate:"required"`
	TrialResponseFrame  []int `json:"trialResponseFrame" yaml:"trialResponseFrame" validate:"required"`

	TrialStim         []string `json:"trialStim" yaml:"trialStim" validate:"required"`
	TrialBlock        []int    `json:"trialBlock" yaml:"trialBlock" validate:"required"`
	BlockStimRewarded []string `json:"blockStimRewarded" yaml:"blockStimRewarded" validate:"required,min=1"`

	TrialResponse []bool `json:"trialResponse" yaml:"trialResponse" validate:"required"`
	TrialRewarded []bool `json:"trialRewarded" yaml:"trialRewarded" validate:"required"`
	TrialRepeat   []bool `json:"trialRepeat" yaml:"trialRepeat" validate:"required"`

	// Older rig versions wrote only trialAutoRewarded, or wrote these arrays
	// shorter than the trial count.
	TrialAutoRewardScheduled []bool `json:"trialAutoRewardScheduled,omitempty" yaml:"trialAutoRewardScheduled,omitempty"`
	TrialAutoRewarded        []bool `json:"trialAutoRewarded,omitempty" yaml:"trialAutoRewarded,omitempty"`

	NewBlockAutoRewards  *int `json:"newBlockAutoRewards" yaml:"newBlockAutoRewards" validate:"required"`
	NewBlockGoTrials     *int `json:"newBlockGoTrials" yaml:"newBlockGoTrials" validate:"required"`
	NewBlockNogoTrials   *int `json:"newBlockNogoTrials,omitempty" yaml:"newBlockNogoTrials,omitempty"`
	NewBlockCatchTrials  *int `json:"newBlockCatchTrials,omitempty" yaml:"newBlockCatchTrials,omitempty"`
	AutoRewardOnsetFrame *int `json:"autoRewardOnsetFrame" yaml:"autoRewardOnsetFrame" validate:"required"`

	IncorrectTrialRepeats  *int `json:"incorrectTrialRepeats" yaml:"incorrectTrialRepeats" validate:"required"`
	IncorrectTimeoutFrames *int `json:"incorrectTimeoutFrames" yaml:"incorrectTimeoutFrames" validate:"required"`

	QuiescentFrames          *int  `json:"quiescentFrames" yaml:"quiescentFrames" validate:"required"`
	QuiescentViolationFrames []int `json:"quiescentViolationFrames,omitempty" yaml:"quiescentViolationFrames,omitempty"`
	QuiescentMoveFrames      []int `json:"quiescentMoveFrames,omitempty" yaml:"quiescentMoveFrames,omitempty"`

	ResponseWindow []int `json:"responseWindow" yaml:"responseWindow" validate:"required,len=2"`

	RewardFrames []int     `json:"rewardFrames" yaml:"rewardFrames" validate:"required"`
	RewardSize   []float64 `json:"rewardSize" yaml:"rewardSize" validate:"required"`
	LickFrames   []int     `json:"lickFrames" yaml:"lickFrames" validate:"required"`

	RotaryEncoder             *string   `json:"rotaryEncoder,omitempty" yaml:"rotaryEncoder,omitempty"`
	RotaryEncoderCount        []float64 `json:"rotaryEncoderCount,omitempty" yaml:"rotaryEncoderCount,omitempty"`
	RotaryEncoderCountsPerRev *float64  `json:"rotaryEncoderCountsPerRev,omitempty" yaml:"rotaryEncoderCountsPerRev,omitempty"`
	WheelRadius               *float64  `json:"wheelRadius,omitempty" yaml:"wheelRadius,omitempty"`

	VisStimContrast      *float64  `json:"visStimContrast,omitempty" yaml:"visStimContrast,omitempty"`
	TrialVisStimContrast []float64 `json:"trialVisStimContrast,omitempty" yaml:"trialVisStimContrast,omitempty"`
	SoundVolume          *float64  `json:"soundVolume,omitempty" yaml:"soundVolume,omitempty"`
	TrialSoundVolume     []float64 `json:"trialSoundVolume,omitempty" yaml:"trialSoundVolume,omitempty"`

	// Grating orientations per visual stimulus. Older rigs wrote one field per
	// stimulus instead of the map.
	GratingOri      map[string][]float64 `json:"gratingOri,omitempty" yaml:"gratingOri,omitempty"`
	GratingOriVis1  []float64            `json:"gratingOri_vis1,omitempty" yaml:"gratingOri_vis1,omitempty"`
	GratingOriVis2  []float64            `json:"gratingOri_vis2,omitempty" yaml:"gratingOri_vis2,omitempty"`
	TrialGratingOri []float64            `json:"trialGratingOri,omitempty" yaml:"trialGratingOri,omitempty"`

	OptoRegions         []string  `json:"optoRegions,omitempty" yaml:"optoRegions,omitempty"`
	TrialOptoOnsetFrame []int     `json:"trialOptoOnsetFrame,omitempty" yaml:"trialOptoOnsetFrame,omitempty"`
	TrialOptoDur        []float64 `json:"trialOptoDur,omitempty" yaml:"trialOptoDur,omitempty"`
	TrialOptoVoltage    []float64 `json:"trialOptoVoltage,omitempty" yaml:"trialOptoVoltage,omitempty"`

	// Galvo mirror (x, y) voltages: the rig's set and the one used on each trial.
	GalvoVoltage      [][]float64 `json:"galvoVoltage,omitempty" yaml:"galvoVoltage,omitempty"`
	TrialGalvoVoltage [][]float64 `json:"trialGalvoVoltage,omitempty" yaml:"trialGalvoVoltage,omitempty"`
}
