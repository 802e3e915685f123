// Package classify assigns stimulus-type and outcome categories to every
// trial of a normalized session and computes the engaged mask.
package classify

import (
	"strings"

	"github.com/harrison/dynrouting/internal/models"
)

// CatchStim is the stimulus label of trials with no stimulus.
const CatchStim = "catch"

// Options controls classification.
type Options struct {
	// Rule overrides the other-modal go rule. Nil selects by task version.
	Rule OtherModalGoRule
	// EngagedThreshold is the go-trial window size; zero means DefaultEngagedThreshold.
	EngagedThreshold int
}

// Classify categorizes every trial of ns. It never fails on a session
// produced by session.Normalize.
func Classify(ns *models.NormalizedSession, opts Options) *models.TrialCategories {
	rule := opts.Rule
	if rule == nil {
		rule = RuleForTaskVersion(ns.TaskVersion, ns.BlockStimRewarded)
	}

	n := ns.NTrials
	c := &models.TrialCategories{
		Catch:          make([]bool, n),
		Multimodal:     make([]bool, n),
		Go:             make([]bool, n),
		Nogo:           make([]bool, n),
		SameModalNogo:  make([]bool, n),
		OtherModalGo:   make([]bool, n),
		OtherModalNogo: make([]bool, n),
		Hit:            make([]bool, n),
		Miss:           make([]bool, n),
		FalseAlarm:     make([]bool, n),
		CorrectReject:  make([]bool, n),
		CatchResponse:  make([]bool, n),
	}

	for i := 0; i < n; i++ {
		stim := ns.TrialStim[i]
		rewarded := ns.RewardedStim[i]
		responded := ns.TrialResponse[i]

		c.Catch[i] = stim == CatchStim
		c.Multimodal[i] = strings.Contains(stim, "+")
		c.Go[i] = stim == rewarded && !ns.AutoRewardScheduled[i]
		c.Nogo[i] = stim != rewarded && !c.Catch[i] && !c.Multimodal[i]

		if c.Nogo[i] {
			c.SameModalNogo[i] = modality(stim) == modality(rewarded)
			c.OtherModalGo[i] = rule.IsOtherModalGo(stim)
			c.OtherModalNogo[i] = !c.SameModalNogo[i] && !c.OtherModalGo[i]
		}

		c.Hit[i] = c.Go[i] && responded
		c.Miss[i] = c.Go[i] && !responded
		c.FalseAlarm[i] = c.Nogo[i] && responded
		c.CorrectReject[i] = c.Nogo[i] && !responded
		c.CatchResponse[i] = c.Catch[i] && responded
	}

	c.Engaged = EngagedMask(c.Go, ns.TrialResponse, opts.EngagedThreshold)
	return c
}

// modality drops the trailing stimulus number: "vis1" -> "vis".
func modality(stim string) string {
	if stim == "" {
		return ""
	}
	return stim[:len(stim)-1]
}
