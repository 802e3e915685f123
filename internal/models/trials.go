package models

// TrialCategories holds per-trial category flags for one session.
// Every slice has one entry per trial.
type TrialCategories struct {
	// Stimulus type
	Catch          []bool
	Multimodal     []bool
	Go             []bool
	Nogo           []bool
	SameModalNogo  []bool
	OtherModalGo   []bool
	OtherModalNogo []bool

	// Outcome
	Hit           []bool
	Miss          []bool
	FalseAlarm    []bool
	CorrectReject []bool
	CatchResponse []bool

	Engaged []bool
}

// Len returns the number of classified trials.
func (c *TrialCategories) Len() int {
	return len(c.Engaged)
}

// EngagedCount returns how many trials were marked engaged.
func (c *TrialCategories) EngagedCount() int {
	return countTrue(c.Engaged)
}

// Count returns the number of true entries in flags.
func Count(flags []bool) int {
	return countTrue(flags)
}

func countTrue(flags []bool) int {
	n := 0
	for _, f := range flags {
		if f {
			n++
		}
	}
	return n
}
