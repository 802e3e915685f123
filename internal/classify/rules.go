package classify

import "strings"

// Variant names the task family that decides which nogo stimuli count as other-modal go.
type Variant string

const (
	// VariantAuto picks the rule from the session's task version.
	VariantAuto Variant = "auto"
	// VariantDistractor uses DistractorRule.
	VariantDistractor Variant = "distractor"
	// VariantCrossBlock uses CrossBlockRule.
	VariantCrossBlock Variant = "cross_block"
)

// ValidVariants lists the accepted variant names.
var ValidVariants = []Variant{VariantAuto, VariantDistractor, VariantCrossBlock}

// OtherModalGoRule decides whether a nogo stimulus is a go stimulus in some other context.
type OtherModalGoRule interface {
	Name() string
	IsOtherModalGo(stim string) bool
}

// distractorGoStimuli are the canonical cross-modal go stimuli of distractor tasks.
var distractorGoStimuli = []string{"vis1", "sound1"}

// DistractorRule treats the canonical go stimuli (vis1, sound1) as other-modal go.
type DistractorRule struct{}

// Name returns "distractor".
func (DistractorRule) Name() string { return string(VariantDistractor) }

// IsOtherModalGo reports whether stim is a canonical go stimulus.
func (DistractorRule) IsOtherModalGo(stim string) bool {
	return contains(distractorGoStimuli, stim)
}

// CrossBlockRule treats any stimulus rewarded in some block of the session as other-modal go.
type CrossBlockRule struct {
	Rewarded []string
}

// NewCrossBlockRule builds the rule from the session's per-block rewarded stimuli.
func NewCrossBlockRule(blockStimRewarded []string) CrossBlockRule {
	return CrossBlockRule{Rewarded: append([]string(nil), blockStimRewarded...)}
}

// Name returns "cross_block".
func (CrossBlockRule) Name() string { return string(VariantCrossBlock) }

// IsOtherModalGo reports whether stim is rewarded in any block.
func (r CrossBlockRule) IsOtherModalGo(stim string) bool {
	return contains(r.Rewarded, stim)
}

// RuleForTaskVersion selects the distractor rule for task versions that name a
// distractor variant and the cross-block rule otherwise.
func RuleForTaskVersion(taskVersion string, blockStimRewarded []string) OtherModalGoRule {
	if strings.Contains(taskVersion, "distract") {
		return DistractorRule{}
	}
	return NewCrossBlockRule(blockStimRewarded)
}

// RuleForVariant resolves a configured variant. VariantAuto (or an empty value)
// defers to RuleForTaskVersion.
func RuleForVariant(v Variant, taskVersion string, blockStimRewarded []string) OtherModalGoRule {
	switch v {
	case VariantDistractor:
		return DistractorRule{}
	case VariantCrossBlock:
		return NewCrossBlockRule(blockStimRewarded)
	default:
		return RuleForTaskVersion(taskVersion, blockStimRewarded)
	}
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
