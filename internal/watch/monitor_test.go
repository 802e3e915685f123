package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/dynrouting/internal/analysis"
	"github.com/harrison/dynrouting/internal/models"
	"github.com/harrison/dynrouting/internal/session/sessiontest"
)

type recordingLogger struct {
	mu       sync.Mutex
	analyzed []string
	warnings []string
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
	l.analyzed = append(l.analyzed, summary.SessionKey())
}

func (l *recordingLogger) LogProgress(int, int) {}

func (l *recordingLogger) LogBatchSummary(int, int, time.Duration) {}

func (l *recordingLogger) snapshot() ([]string, []string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.analyzed...), append([]string(nil), l.warnings...)
}

func sessionJSON(t *testing.T) []byte {
	t.Helper()
	trials := sessiontest.Concat(
		sessiontest.Repeat(sessiontest.Go("vis1", 1, true), 4),
		[]sessiontest.Trial{sessiontest.Nogo("vis2", 1, false)},
	)
	data, err := json.Marshal(sessiontest.New([]string{"vis1"}, trials).Raw())
	require.NoError(t, err)
	return data
}

func TestMonitor_AnalyzesNewSessions(t *testing.T) {
	dir := t.TempDir()
	fw, err := NewFileWatcher(dir, "DynamicRouting1_*", testDebounce)
	require.NoError(t, err)
	defer fw.Close()

	logger := &recordingLogger{}
	handled := make(chan *analysis.Result, 4)
	monitor := NewMonitor(fw, analysis.Options{}, logger, func(_ context.Context, r *analysis.Result) error {
		handled <- r
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- monitor.Run(ctx) }()

	path := filepath.Join(dir, sessiontest.FileName("366122", "json"))
	require.NoError(t, os.WriteFile(path, sessionJSON(t), 0644))

	select {
	case r := <-handled:
		assert.Equal(t, path, r.Path)
		require.Len(t, r.Blocks, 1)
		assert.Equal(t, 4, r.Blocks[0].HitCount)
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for analyzed session")
	}

	cancel()
	require.NoError(t, <-done)

	analyzed, warnings := logger.snapshot()
	assert.Equal(t, []string{"366122_20230414_120213"}, analyzed)
	assert.Empty(t, warnings)
}

func TestMonitor_LogsFailures(t *testing.T) {
	dir := t.TempDir()
	fw, err := NewFileWatcher(dir, "", testDebounce)
	require.NoError(t, err)
	defer fw.Close()

	logger := &recordingLogger{}
	calls := make(chan string, 4)
	monitor := NewMonitor(fw, analysis.Options{}, logger, func(_ context.Context, r *analysis.Result) error {
		calls <- r.Path
		return fmt.Errorf("history unavailable")
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go monitor.Run(ctx)

	bad := filepath.Join(dir, sessiontest.FileName("366123", "json"))
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0644))
	good := filepath.Join(dir, sessiontest.FileName("366124", "json"))
	require.NoError(t, os.WriteFile(good, sessionJSON(t), 0644))

	select {
	case p := <-calls:
		assert.Equal(t, good, p, "handler only sees sessions that analyzed")
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for handler")
	}

	require.Eventually(t, func() bool {
		_, warnings := logger.snapshot()
		return len(warnings) == 2
	}, 3*time.Second, 20*time.Millisecond)

	_, warnings := logger.snapshot()
	assert.Contains(t, warnings, fmt.Sprintf("handling %s: history unavailable", good))
}

func TestMonitor_StopsWhenWatcherCloses(t *testing.T) {
	fw, err := NewFileWatcher(t.TempDir(), "", testDebounce)
	require.NoError(t, err)

	monitor := NewMonitor(fw, analysis.Options{}, nil, nil)
	done := make(chan error, 1)
	go func() { done <- monitor.Run(context.Background()) }()

	require.NoError(t, fw.Close())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Close")
	}
}
