package analysis

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/dynrouting/internal/classify"
	"github.com/harrison/dynrouting/internal/models"
	"github.com/harrison/dynrouting/internal/session"
	"github.com/harrison/dynrouting/internal/session/sessiontest"
)

func sampleBuilder() *sessiontest.Builder {
	trials := sessiontest.Concat(
		sessiontest.Repeat(sessiontest.Go("vis1", 1, true), 6),
		[]sessiontest.Trial{sessiontest.Nogo("vis2", 1, false), sessiontest.Nogo("sound1", 1, true)},
		sessiontest.Repeat(sessiontest.Go("sound1", 2, true), 4),
		[]sessiontest.Trial{sessiontest.Nogo("sound2", 2, false), sessiontest.Nogo("vis1", 2, false)},
	)
	return sessiontest.New([]string{"vis1", "sound1"}, trials)
}

func writeSession(t *testing.T, dir, subject string, raw *models.RawSession) string {
	t.Helper()
	data, err := json.Marshal(raw)
	require.NoError(t, err)
	path := filepath.Join(dir, sessiontest.FileName(subject, "json"))
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

type recordingLogger struct {
	mu        sync.Mutex
	analyzed  []string
	warnings  []string
	progress  []int
	succeeded int
	failed    int
}

func (l *recordingLogger) LogDebug(string) {}

func (l *recordingLogger) LogWarn(message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warnings = append(l.warnings, message)
}

func (l *recordingLogger) LogSessionAnalyzed(summary models.SessionSummary, _ []models.BlockMetrics, _ time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.analyzed = append(l.analyzed, summary.SubjectName)
}

func (l *recordingLogger) LogProgress(done, _ int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.progress = append(l.progress, done)
}

func (l *recordingLogger) LogBatchSummary(analyzed, failed int, _ time.Duration) {
	l.succeeded = analyzed
	l.failed = failed
}

func TestAnalyze(t *testing.T) {
	result, err := Analyze(sampleBuilder().Raw(), Options{})
	require.NoError(t, err)

	require.Len(t, result.Blocks, 2)
	assert.Equal(t, 6, result.Blocks[0].HitCount)
	assert.Equal(t, 4, result.Blocks[1].HitCount)
	assert.InDelta(t, 0.5, result.Blocks[0].FalseAlarmRate, 1e-12)

	s := result.Summary
	assert.Equal(t, "366122", s.SubjectName)
	assert.Equal(t, "NP3", s.RigName)
	assert.Equal(t, 14, s.NTrials)
	assert.Equal(t, 2, s.NBlocks)
	assert.Equal(t, 14, s.Engaged)
	assert.Equal(t, 10, s.Rewards)
	assert.Equal(t, 10, s.Earned)
	assert.Equal(t, "366122_20230414_120213", s.SessionKey())
	assert.Equal(t, result.Session.NTrials, result.Categories.Len())
}

func TestAnalyze_VariantOverride(t *testing.T) {
	b := sampleBuilder()
	b.BlockStimRewarded = []string{"vis1", "sound2"}
	raw := b.Raw()
	for i, stim := range raw.TrialStim {
		if raw.TrialBlock[i] == 2 && stim == "sound1" {
			raw.TrialStim[i] = "sound2"
		} else if raw.TrialBlock[i] == 2 && stim == "sound2" {
			raw.TrialStim[i] = "sound1"
		}
	}

	cross, err := Analyze(raw, Options{Variant: classify.VariantCrossBlock})
	require.NoError(t, err)
	distract, err := Analyze(raw, Options{Variant: classify.VariantDistractor})
	require.NoError(t, err)

	// Block 1 presents sound1 once, a go stimulus only for the distractor rule.
	assert.Equal(t, 0, models.Count(cross.Categories.OtherModalGo[:8]))
	assert.Equal(t, 1, models.Count(distract.Categories.OtherModalGo[:8]))
}

func TestAnalyze_Malformed(t *testing.T) {
	raw := sampleBuilder().Raw()
	raw.TrialResponse = raw.TrialResponse[:2]

	_, err := Analyze(raw, Options{})
	require.Error(t, err)
	field, ok := session.MalformedField(err)
	require.True(t, ok)
	assert.Equal(t, "trialResponse", field)
}

func TestRunner_AnalyzeFiles(t *testing.T) {
	dir := t.TempDir()
	// Subject names come from the file names.
	good := sampleBuilder().Raw()
	good.SubjectName = ""
	bad := sampleBuilder().Raw()
	bad.TrialStim = nil

	paths := []string{
		writeSession(t, dir, "600001", good),
		writeSession(t, dir, "600002", bad),
		writeSession(t, dir, "600003", good),
		filepath.Join(dir, "missing.json"),
	}

	log := &recordingLogger{}
	runner := NewRunner(Options{MaxConcurrency: 2}, log)

	results, err := runner.AnalyzeFiles(context.Background(), paths)
	require.NoError(t, err)
	require.Len(t, results, 4)

	for i, fr := range results {
		assert.Equal(t, paths[i], fr.Path, "results keep input order")
	}
	require.NoError(t, results[0].Err)
	assert.Equal(t, "600001", results[0].Result.Summary.SubjectName)
	assert.True(t, session.IsMalformed(results[1].Err))
	require.NoError(t, results[2].Err)
	assert.Equal(t, "600003", results[2].Result.Summary.SubjectName)
	assert.Error(t, results[3].Err)

	assert.ElementsMatch(t, []string{"600001", "600003"}, log.analyzed)
	assert.Len(t, log.warnings, 2)
	assert.ElementsMatch(t, []int{1, 2, 3, 4}, log.progress)
	assert.Equal(t, 2, log.succeeded)
	assert.Equal(t, 2, log.failed)
}

func TestRunner_Cancelled(t *testing.T) {
	dir := t.TempDir()
	paths := []string{writeSession(t, dir, "600001", sampleBuilder().Raw())}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := NewRunner(Options{}, nil).AnalyzeFiles(ctx, paths)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, results[0].Err, context.Canceled)
}
