package classify

// DefaultEngagedThreshold is the number of recent go trials inspected for a response.
const DefaultEngagedThreshold = 10

// Engagement tracks the most recent go-trial outcomes in a fixed ring buffer.
//
// A trial is disengaged once more than Threshold go trials have been seen and
// none of the last Threshold go trials was responded to.
type Engagement struct {
	window []bool
	next   int
	seen   int
	hits   int
}

// NewEngagement returns a tracker over the last threshold go trials.
// A non-positive threshold falls back to DefaultEngagedThreshold.
func NewEngagement(threshold int) *Engagement {
	if threshold <= 0 {
		threshold = DefaultEngagedThreshold
	}
	return &Engagement{window: make([]bool, threshold)}
}

// Threshold returns the window size.
func (e *Engagement) Threshold() int {
	return len(e.window)
}

// ObserveGo records the response outcome of a go trial.
func (e *Engagement) ObserveGo(responded bool) {
	if e.seen >= len(e.window) && e.window[e.next] {
		e.hits--
	}
	e.window[e.next] = responded
	if responded {
		e.hits++
	}
	e.next = (e.next + 1) % len(e.window)
	e.seen++
}

// Engaged reports the state after the go trials observed so far.
func (e *Engagement) Engaged() bool {
	return e.seen <= len(e.window) || e.hits > 0
}

// EngagedMask runs the tracker over a session in trial order.
func EngagedMask(goTrials, responses []bool, threshold int) []bool {
	e := NewEngagement(threshold)
	engaged := make([]bool, len(goTrials))
	for i, isGo := range goTrials {
		if isGo {
			e.ObserveGo(responses[i])
		}
		engaged[i] = e.Engaged()
	}
	return engaged
}
