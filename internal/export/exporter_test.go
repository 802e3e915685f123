package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/dynrouting/internal/analysis"
	"github.com/harrison/dynrouting/internal/session/sessiontest"
)

// sampleResult has two blocks without catch trials, so catchResponseRate is NaN.
func sampleResult(t *testing.T) *analysis.Result {
	t.Helper()
	trials := sessiontest.Concat(
		sessiontest.Repeat(sessiontest.Go("vis1", 1, true), 6),
		[]sessiontest.Trial{sessiontest.Nogo("vis2", 1, false), sessiontest.Nogo("sound1", 1, true)},
		sessiontest.Repeat(sessiontest.Go("sound1", 2, true), 4),
		[]sessiontest.Trial{sessiontest.Nogo("sound2", 2, false), sessiontest.Nogo("vis1", 2, false)},
	)
	result, err := analysis.Analyze(sessiontest.New([]string{"vis1", "sound1"}, trials).Raw(), analysis.Options{})
	require.NoError(t, err)
	return result
}

func TestNew(t *testing.T) {
	tests := []struct {
		format  Format
		wantExt string
		wantErr bool
	}{
		{format: FormatJSON, wantExt: ".json"},
		{format: "CSV", wantExt: ".csv"},
		{format: FormatTrialsCSV, wantExt: ".trials.csv"},
		{format: "hdf5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			exp, err := New(tt.format, false)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "unknown export format")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantExt, exp.Extension())
		})
	}
}

func TestJSONExporter(t *testing.T) {
	result := sampleResult(t)

	data, err := (&JSONExporter{}).Export(result)
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "366122_20230414_120213", doc["sessionKey"])
	assert.Equal(t, float64(14), doc["nTrials"])

	blocks, ok := doc["blocks"].([]interface{})
	require.True(t, ok)
	require.Len(t, blocks, 2)

	first := blocks[0].(map[string]interface{})
	assert.Equal(t, "vis1", first["rewardedStim"])
	assert.Equal(t, float64(6), first["hitCount"])
	assert.InDelta(t, 0.5, first["falseAlarmRate"], 1e-12)
	v, present := first["catchResponseRate"]
	assert.True(t, present, "NaN metrics stay in the document")
	assert.Nil(t, v)
}

func TestJSONExporter_Pretty(t *testing.T) {
	result := sampleResult(t)

	compact, err := (&JSONExporter{}).Export(result)
	require.NoError(t, err)
	pretty, err := (&JSONExporter{Pretty: true}).Export(result)
	require.NoError(t, err)

	assert.NotContains(t, string(compact), "\n")
	assert.Contains(t, string(pretty), "\n  \"sessionKey\"")
}

func TestCSVExporter(t *testing.T) {
	data, err := (&CSVExporter{}).Export(sampleResult(t))
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, blockHeader, rows[0])

	row := rows[1]
	assert.Equal(t, "366122_20230414_120213", row[0])
	assert.Equal(t, "1", row[1])
	assert.Equal(t, "vis1", row[2])
	assert.Equal(t, "1", row[6], "hit rate")
	assert.Equal(t, "0.5", row[8], "false alarm rate")
	assert.Equal(t, NaNCell, row[len(row)-1], "catch response rate")
}

func TestTrialsCSVExporter(t *testing.T) {
	result := sampleResult(t)
	data, err := (&TrialsCSVExporter{}).Export(result)
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, result.Session.NTrials+1)

	col := func(name string) int {
		for i, h := range trialHeader {
			if h == name {
				return i
			}
		}
		t.Fatalf("no column %s", name)
		return -1
	}

	assert.Equal(t, "true", rows[1][col("hit")])
	rt, err := strconv.ParseFloat(rows[1][col("responseTime")], 64)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, rt, 1e-9)
	assert.Equal(t, "true", rows[7][col("correctReject")])
	assert.Equal(t, NaNCell, rows[7][col("responseTime")])
	assert.Equal(t, "true", rows[8][col("falseAlarm")])
}

func TestTrialsCSVExporter_NoTrialData(t *testing.T) {
	_, err := (&TrialsCSVExporter{}).Export(&analysis.Result{})
	require.Error(t, err)
}

func TestWriteFile(t *testing.T) {
	result := sampleResult(t)
	dir := t.TempDir()
	exp := &CSVExporter{}

	path := DefaultPath(filepath.Join(dir, "exports"), exp, result)
	assert.Equal(t, filepath.Join(dir, "exports", "366122_20230414_120213.csv"), path)

	require.NoError(t, WriteFile(path, exp, result))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "sessionKey,block,"))

	require.Error(t, WriteFile(path, exp, nil))
}
