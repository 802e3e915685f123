package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/harrison/dynrouting/internal/models"
)

// FileLogger writes a timestamped log per run, keeps a latest.log symlink
// pointing at the most recent run, and writes one block-metrics log per
// analyzed session under sessions/.
type FileLogger struct {
	logDir      string
	runLog      *os.File
	runFile     string
	sessionsDir string
	logLevel    string
	mu          sync.Mutex
}

// NewFileLogger creates a FileLogger in logDir with the given level.
func NewFileLogger(logDir string, logLevel string) (*FileLogger, error) {
	sessionsDir := filepath.Join(logDir, "sessions")
	if err := os.MkdirAll(sessionsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	runFile := filepath.Join(logDir, fmt.Sprintf("run-%s.log", time.Now().Format("20060102-150405")))
	file, err := os.OpenFile(runFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create run log file: %w", err)
	}

	symlinkPath := filepath.Join(logDir, "latest.log")
	if _, err := os.Lstat(symlinkPath); err == nil {
		if err := os.Remove(symlinkPath); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to remove old symlink: %w", err)
		}
	}
	if err := os.Symlink(filepath.Base(runFile), symlinkPath); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create symlink: %w", err)
	}

	fl := &FileLogger{
		logDir:      logDir,
		runLog:      file,
		runFile:     runFile,
		sessionsDir: sessionsDir,
		logLevel:    normalizeLogLevel(logLevel),
	}

	fl.writeRunLog("=== dynrouting run log ===\n")
	fl.writeRunLog(fmt.Sprintf("Started at: %s\n\n", time.Now().Format(time.RFC3339)))

	return fl, nil
}

// RunFile returns the path of this run's log file.
func (fl *FileLogger) RunFile() string {
	return fl.runFile
}

// LogTrace logs a trace-level message (most verbose).
func (fl *FileLogger) LogTrace(message string) {
	fl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (fl *FileLogger) LogDebug(message string) {
	fl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (fl *FileLogger) LogInfo(message string) {
	fl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (fl *FileLogger) LogWarn(message string) {
	fl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (fl *FileLogger) LogError(message string) {
	fl.logWithLevel("ERROR", message)
}

func (fl *FileLogger) logWithLevel(level string, message string) {
	if !enabled(fl.logLevel, strings.ToLower(level)) {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] [%s] %s\n", timestamp(), level, message))
}

// LogSessionAnalyzed notes the session in the run log and writes its block
// metrics to sessions/<session key>.log.
func (fl *FileLogger) LogSessionAnalyzed(summary models.SessionSummary, blocks []models.BlockMetrics, duration time.Duration) {
	if !enabled(fl.logLevel, "info") {
		return
	}

	key := summary.SessionKey()
	fl.writeRunLog(fmt.Sprintf("[%s] Analyzed %s: %d trials, %d blocks in %.3fs\n",
		timestamp(), key, summary.NTrials, summary.NBlocks, duration.Seconds()))

	var b strings.Builder
	fmt.Fprintf(&b, "=== Session %s ===\n", key)
	fmt.Fprintf(&b, "Subject: %s\n", summary.SubjectName)
	fmt.Fprintf(&b, "Rig: %s\n", summary.RigName)
	if summary.TaskVersion != "" {
		fmt.Fprintf(&b, "Task version: %s\n", summary.TaskVersion)
	}
	fmt.Fprintf(&b, "Start time: %s\n", summary.StartTime.Format(time.RFC3339))
	fmt.Fprintf(&b, "Trials: %d (engaged %d)\n", summary.NTrials, summary.Engaged)
	fmt.Fprintf(&b, "Rewards: %d (earned %d)\n\n", summary.Rewards, summary.Earned)
	for _, m := range blocks {
		fmt.Fprintf(&b, "Block %d (%s): go %d, nogo %d, catch %d\n", m.Block, m.RewardedStim, m.GoTrials, m.NogoTrials, m.CatchTrials)
		fmt.Fprintf(&b, "  hit rate %s (%d hits), false alarm rate %s\n", models.FormatMetric(m.HitRate), m.HitCount, models.FormatMetric(m.FalseAlarmRate))
		fmt.Fprintf(&b, "  false alarms: same modal %s, other modal go %s, other modal nogo %s\n",
			models.FormatMetric(m.FalseAlarmSameModal), models.FormatMetric(m.FalseAlarmOtherModalGo), models.FormatMetric(m.FalseAlarmOtherModalNogo))
		fmt.Fprintf(&b, "  d': same modal %s, other modal go %s, nonrewarded modal %s\n",
			models.FormatMetric(m.DprimeSameModal), models.FormatMetric(m.DprimeOtherModalGo), models.FormatMetric(m.DprimeNonrewardedModal))
		fmt.Fprintf(&b, "  catch response rate %s\n", models.FormatMetric(m.CatchResponseRate))
	}

	path := filepath.Join(fl.sessionsDir, key+".log")
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		fl.writeRunLog(fmt.Sprintf("[%s] [WARN] failed to write session log %s: %v\n", timestamp(), path, err))
	}
}

// LogProgress is a no-op: progress bars are console-only.
func (fl *FileLogger) LogProgress(done, total int) {}

// LogBatchSummary logs the outcome of a batch at INFO level.
func (fl *FileLogger) LogBatchSummary(analyzed, failed int, duration time.Duration) {
	if !enabled(fl.logLevel, "info") {
		return
	}

	status := "SUCCESS"
	if failed > 0 {
		status = "PARTIAL"
		if analyzed == 0 {
			status = "FAILED"
		}
	}

	ts := timestamp()
	fl.writeRunLog(fmt.Sprintf(
		"\n[%s] === ANALYSIS SUMMARY ===\n"+
			"[%s] Sessions:   %d\n"+
			"[%s] Analyzed:   %d\n"+
			"[%s] Failed:     %d\n"+
			"[%s] Total time: %.1fs\n"+
			"[%s] Status:     %s\n",
		ts, ts, analyzed+failed, ts, analyzed, ts, failed, ts, duration.Seconds(), ts, status))
}

func (fl *FileLogger) writeRunLog(message string) {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	if fl.runLog != nil {
		fl.runLog.WriteString(message)
	}
}

// Close closes the run log file.
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	if fl.runLog == nil {
		return nil
	}
	err := fl.runLog.Close()
	fl.runLog = nil
	return err
}
