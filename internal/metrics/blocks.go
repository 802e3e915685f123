package metrics

import (
	"github.com/harrison/dynrouting/internal/models"
)

// ComputeBlocks returns one BlockMetrics per block in ascending block order.
//
// A block's trial universe is its engaged, non-repeat trials; repeats and
// disengaged trials never enter a numerator or a denominator.
func ComputeBlocks(ns *models.NormalizedSession, cats *models.TrialCategories) []models.BlockMetrics {
	blocks := make([]models.BlockMetrics, ns.NBlocks())
	for b := range blocks {
		blocks[b] = computeBlock(ns, cats, b+1)
	}
	return blocks
}

// counter tallies trials of one block that pass the universe filter.
type counter struct {
	universe []bool
}

func (c counter) count(flags []bool) int {
	n := 0
	for i, in := range c.universe {
		if in && flags[i] {
			n++
		}
	}
	return n
}

func (c counter) countBoth(a, b []bool) int {
	n := 0
	for i, in := range c.universe {
		if in && a[i] && b[i] {
			n++
		}
	}
	return n
}

func computeBlock(ns *models.NormalizedSession, cats *models.TrialCategories, block int) models.BlockMetrics {
	universe := make([]bool, ns.NTrials)
	for i := range universe {
		universe[i] = ns.TrialBlock[i] == block && cats.Engaged[i] && !ns.TrialRepeat[i]
	}
	c := counter{universe: universe}

	goN := c.count(cats.Go)
	nogoN := c.count(cats.Nogo)
	catchN := c.count(cats.Catch)
	sameN := c.count(cats.SameModalNogo)
	otherGoN := c.count(cats.OtherModalGo)
	otherNogoN := c.count(cats.OtherModalNogo)

	hits := c.count(cats.Hit)
	hitRate := Rate(hits, goN)
	faSame := Rate(c.countBoth(cats.FalseAlarm, cats.SameModalNogo), sameN)
	faOtherGo := Rate(c.countBoth(cats.FalseAlarm, cats.OtherModalGo), otherGoN)
	faOtherNogo := Rate(c.countBoth(cats.FalseAlarm, cats.OtherModalNogo), otherNogoN)

	return models.BlockMetrics{
		Block:        block,
		RewardedStim: ns.BlockStimRewarded[block-1],
		GoTrials:     goN,
		NogoTrials:   nogoN,
		CatchTrials:  catchN,

		HitRate:                  hitRate,
		HitCount:                 hits,
		FalseAlarmRate:           Rate(c.count(cats.FalseAlarm), nogoN),
		FalseAlarmSameModal:      faSame,
		FalseAlarmOtherModalGo:   faOtherGo,
		FalseAlarmOtherModalNogo: faOtherNogo,
		DprimeSameModal:          CalcDprime(hitRate, faSame, goN, sameN),
		DprimeOtherModalGo:       CalcDprime(hitRate, faOtherGo, goN, otherGoN),
		DprimeNonrewardedModal:   CalcDprime(faOtherGo, faOtherNogo, otherGoN, otherNogoN),
		CatchResponseRate:        Rate(c.count(cats.CatchResponse), catchN),
	}
}
