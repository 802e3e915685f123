package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"strconv"

	"github.com/harrison/dynrouting/internal/analysis"
)

// NaNCell is written for indeterminate metrics.
const NaNCell = "NaN"

var blockHeader = []string{
	"sessionKey", "block", "rewardedStim", "goTrials", "nogoTrials", "catchTrials",
	"hitRate", "hitCount", "falseAlarmRate", "falseAlarmSameModal", "falseAlarmOtherModalGo",
	"falseAlarmOtherModalNogo", "dprimeSameModal", "dprimeOtherModalGo",
	"dprimeNonrewardedModal", "catchResponseRate",
}

// CSVExporter writes one row per block.
type CSVExporter struct{}

// Extension returns ".csv".
func (ce *CSVExporter) Extension() string { return ".csv" }

// Export writes the block table.
func (ce *CSVExporter) Export(result *analysis.Result) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("result cannot be nil")
	}

	key := result.Summary.SessionKey()
	rows := [][]string{blockHeader}
	for _, b := range result.Blocks {
		rows = append(rows, []string{
			key,
			strconv.Itoa(b.Block),
			b.RewardedStim,
			strconv.Itoa(b.GoTrials),
			strconv.Itoa(b.NogoTrials),
			strconv.Itoa(b.CatchTrials),
			formatFloat(b.HitRate),
			strconv.Itoa(b.HitCount),
			formatFloat(b.FalseAlarmRate),
			formatFloat(b.FalseAlarmSameModal),
			formatFloat(b.FalseAlarmOtherModalGo),
			formatFloat(b.FalseAlarmOtherModalNogo),
			formatFloat(b.DprimeSameModal),
			formatFloat(b.DprimeOtherModalGo),
			formatFloat(b.DprimeNonrewardedModal),
			formatFloat(b.CatchResponseRate),
		})
	}
	return writeCSV(rows)
}

var trialHeader = []string{
	"trial", "block", "stim", "rewardedStim", "repeat", "autoRewardScheduled",
	"catch", "multimodal", "go", "nogo", "sameModalNogo", "otherModalGo", "otherModalNogo",
	"hit", "miss", "falseAlarm", "correctReject", "catchResponse", "engaged", "responseTime",
}

// TrialsCSVExporter writes one row per trial with every category flag.
type TrialsCSVExporter struct{}

// Extension returns ".trials.csv".
func (te *TrialsCSVExporter) Extension() string { return ".trials.csv" }

// Export writes the trial table.
func (te *TrialsCSVExporter) Export(result *analysis.Result) ([]byte, error) {
	if result == nil || result.Session == nil || result.Categories == nil {
		return nil, fmt.Errorf("result has no trial data")
	}

	ns, c := result.Session, result.Categories
	rows := [][]string{trialHeader}
	for i := 0; i < ns.NTrials; i++ {
		rows = append(rows, []string{
			strconv.Itoa(i),
			strconv.Itoa(ns.TrialBlock[i]),
			ns.TrialStim[i],
			ns.RewardedStim[i],
			strconv.FormatBool(ns.TrialRepeat[i]),
			strconv.FormatBool(ns.AutoRewardScheduled[i]),
			strconv.FormatBool(c.Catch[i]),
			strconv.FormatBool(c.Multimodal[i]),
			strconv.FormatBool(c.Go[i]),
			strconv.FormatBool(c.Nogo[i]),
			strconv.FormatBool(c.SameModalNogo[i]),
			strconv.FormatBool(c.OtherModalGo[i]),
			strconv.FormatBool(c.OtherModalNogo[i]),
			strconv.FormatBool(c.Hit[i]),
			strconv.FormatBool(c.Miss[i]),
			strconv.FormatBool(c.FalseAlarm[i]),
			strconv.FormatBool(c.CorrectReject[i]),
			strconv.FormatBool(c.CatchResponse[i]),
			strconv.FormatBool(c.Engaged[i]),
			formatFloat(ns.ResponseTimes[i]),
		})
	}
	return writeCSV(rows)
}

func writeCSV(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("failed to write CSV: %w", err)
	}
	return buf.Bytes(), nil
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return NaNCell
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
