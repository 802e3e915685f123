// Package analysis drives the session pipeline: decode, normalize, classify
// and compute block metrics, for one record or many files in parallel.
package analysis

import (
	"fmt"

	"github.com/harrison/dynrouting/internal/classify"
	"github.com/harrison/dynrouting/internal/metrics"
	"github.com/harrison/dynrouting/internal/models"
	"github.com/harrison/dynrouting/internal/session"
)

// Options configures one analysis run.
type Options struct {
	// Variant selects the other-modal go rule; empty or "auto" uses the task version.
	Variant classify.Variant
	// EngagedThreshold is the go-trial window of the engagement scan.
	EngagedThreshold int
	// MaxConcurrency bounds AnalyzeFiles; zero or less means one file at a time.
	MaxConcurrency int
}

// Result is the full output of the pipeline for one session.
type Result struct {
	Path       string // Source file, empty for in-memory records
	Session    *models.NormalizedSession
	Categories *models.TrialCategories
	Blocks     []models.BlockMetrics
	Summary    models.SessionSummary
}

// Analyze runs the pipeline on a raw record. The only failure is a malformed record.
func Analyze(raw *models.RawSession, opts Options) (*Result, error) {
	ns, err := session.Normalize(raw)
	if err != nil {
		return nil, err
	}

	rule := classify.RuleForVariant(opts.Variant, ns.TaskVersion, ns.BlockStimRewarded)
	cats := classify.Classify(ns, classify.Options{
		Rule:             rule,
		EngagedThreshold: opts.EngagedThreshold,
	})

	return &Result{
		Session:    ns,
		Categories: cats,
		Blocks:     metrics.ComputeBlocks(ns, cats),
		Summary:    Summarize(ns, cats),
	}, nil
}

// AnalyzeFile reads a session file and analyzes it.
func AnalyzeFile(path string, opts Options) (*Result, error) {
	raw, err := session.ReadFile(path)
	if err != nil {
		return nil, err
	}

	result, err := Analyze(raw, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	result.Path = path
	return result, nil
}

// Summarize builds the session summary used by listings and history.
func Summarize(ns *models.NormalizedSession, cats *models.TrialCategories) models.SessionSummary {
	return models.SessionSummary{
		SubjectName: ns.SubjectName,
		RigName:     ns.RigName,
		TaskVersion: ns.TaskVersion,
		StartTime:   ns.StartTime,
		NTrials:     ns.NTrials,
		NBlocks:     ns.NBlocks(),
		Engaged:     cats.EngagedCount(),
		Rewards:     models.Count(ns.TrialRewarded),
		Earned:      models.Count(ns.RewardEarned),
	}
}
