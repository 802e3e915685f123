package export

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/harrison/dynrouting/internal/analysis"
	"github.com/harrison/dynrouting/internal/models"
)

// JSONExporter writes the session summary and block metrics as JSON.
// NaN metrics become null.
type JSONExporter struct {
	Pretty bool
}

type sessionDoc struct {
	SessionKey  string     `json:"sessionKey"`
	SubjectName string     `json:"subjectName"`
	RigName     string     `json:"rigName"`
	TaskVersion string     `json:"taskVersion,omitempty"`
	StartTime   time.Time  `json:"startTime"`
	NTrials     int        `json:"nTrials"`
	NBlocks     int        `json:"nBlocks"`
	Engaged     int        `json:"engagedTrials"`
	Rewards     int        `json:"rewards"`
	Earned      int        `json:"rewardsEarned"`
	Blocks      []blockDoc `json:"blocks"`
}

type blockDoc struct {
	Block                    int      `json:"block"`
	RewardedStim             string   `json:"rewardedStim"`
	GoTrials                 int      `json:"goTrials"`
	NogoTrials               int      `json:"nogoTrials"`
	CatchTrials              int      `json:"catchTrials"`
	HitRate                  *float64 `json:"hitRate"`
	HitCount                 int      `json:"hitCount"`
	FalseAlarmRate           *float64 `json:"falseAlarmRate"`
	FalseAlarmSameModal      *float64 `json:"falseAlarmSameModal"`
	FalseAlarmOtherModalGo   *float64 `json:"falseAlarmOtherModalGo"`
	FalseAlarmOtherModalNogo *float64 `json:"falseAlarmOtherModalNogo"`
	DprimeSameModal          *float64 `json:"dprimeSameModal"`
	DprimeOtherModalGo       *float64 `json:"dprimeOtherModalGo"`
	DprimeNonrewardedModal   *float64 `json:"dprimeNonrewardedModal"`
	CatchResponseRate        *float64 `json:"catchResponseRate"`
}

// Extension returns ".json".
func (je *JSONExporter) Extension() string { return ".json" }

// Export marshals result.
func (je *JSONExporter) Export(result *analysis.Result) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("result cannot be nil")
	}

	s := result.Summary
	doc := sessionDoc{
		SessionKey:  s.SessionKey(),
		SubjectName: s.SubjectName,
		RigName:     s.RigName,
		TaskVersion: s.TaskVersion,
		StartTime:   s.StartTime,
		NTrials:     s.NTrials,
		NBlocks:     s.NBlocks,
		Engaged:     s.Engaged,
		Rewards:     s.Rewards,
		Earned:      s.Earned,
		Blocks:      make([]blockDoc, len(result.Blocks)),
	}
	for i, b := range result.Blocks {
		doc.Blocks[i] = toBlockDoc(b)
	}

	var data []byte
	var err error
	if je.Pretty {
		data, err = json.MarshalIndent(doc, "", "  ")
	} else {
		data, err = json.Marshal(doc)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return data, nil
}

func toBlockDoc(b models.BlockMetrics) blockDoc {
	return blockDoc{
		Block:                    b.Block,
		RewardedStim:             b.RewardedStim,
		GoTrials:                 b.GoTrials,
		NogoTrials:               b.NogoTrials,
		CatchTrials:              b.CatchTrials,
		HitRate:                  finite(b.HitRate),
		HitCount:                 b.HitCount,
		FalseAlarmRate:           finite(b.FalseAlarmRate),
		FalseAlarmSameModal:      finite(b.FalseAlarmSameModal),
		FalseAlarmOtherModalGo:   finite(b.FalseAlarmOtherModalGo),
		FalseAlarmOtherModalNogo: finite(b.FalseAlarmOtherModalNogo),
		DprimeSameModal:          finite(b.DprimeSameModal),
		DprimeOtherModalGo:       finite(b.DprimeOtherModalGo),
		DprimeNonrewardedModal:   finite(b.DprimeNonrewardedModal),
		CatchResponseRate:        finite(b.CatchResponseRate),
	}
}

// finite returns nil for values JSON cannot carry.
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
