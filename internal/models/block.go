package models

import (
	"fmt"
	"math"
	"time"
)

// BlockMetrics holds the signal-detection metrics of one block.
// Rates and d-primes are NaN when their denominator is zero.
type BlockMetrics struct {
	Block        int    // 1-based block index
	RewardedStim string // Rewarded stimulus of the block

	GoTrials    int // Engaged, non-repeat go trials in the block
	NogoTrials  int // Engaged, non-repeat nogo trials in the block
	CatchTrials int // Engaged, non-repeat catch trials in the block

	HitRate                  float64
	HitCount                 int
	FalseAlarmRate           float64
	FalseAlarmSameModal      float64
	FalseAlarmOtherModalGo   float64
	FalseAlarmOtherModalNogo float64
	DprimeSameModal          float64
	DprimeOtherModalGo       float64
	DprimeNonrewardedModal   float64
	CatchResponseRate        float64
}

// SessionSummary describes an analyzed session for listings and history.
type SessionSummary struct {
	SubjectName string
	RigName     string
	TaskVersion string
	StartTime   time.Time
	NTrials     int
	NBlocks     int
	Engaged     int
	Rewards     int
	Earned      int
}

// SessionKey identifies a session by subject and start time, the way the rig names its files.
func (s SessionSummary) SessionKey() string {
	return fmt.Sprintf("%s_%s", s.SubjectName, s.StartTime.Format("20060102_150405"))
}

// FormatMetric renders a metric value for tables; NaN renders as "-".
func FormatMetric(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.2f", v)
}
