// Package logger reports analysis progress to the console and to run log files.
//
// Implementations are safe for concurrent use and satisfy analysis.Logger, so
// the batch runner and the directory watcher can log from worker goroutines.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/harrison/dynrouting/internal/models"
)

// ConsoleLogger logs analysis progress to a writer with timestamps and thread safety.
// All output is prefixed with [HH:MM:SS] timestamps.
// Color output is enabled when the writer is a terminal.
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
}

// NewConsoleLogger creates a ConsoleLogger that writes to the provided io.Writer.
// If writer is nil, messages are silently discarded.
// Invalid or empty levels default to "info".
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizeLogLevel(logLevel),
		colorOutput: IsTerminal(writer),
	}
}

// IsTerminal reports whether w is a TTY that should receive colors.
// Setting NO_COLOR disables colors.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Level returns the configured log level.
func (cl *ConsoleLogger) Level() string {
	return cl.logLevel
}

// LogTrace logs a trace-level message (most verbose).
func (cl *ConsoleLogger) LogTrace(message string) {
	cl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (cl *ConsoleLogger) LogDebug(message string) {
	cl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (cl *ConsoleLogger) LogInfo(message string) {
	cl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (cl *ConsoleLogger) LogWarn(message string) {
	cl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (cl *ConsoleLogger) LogError(message string) {
	cl.logWithLevel("ERROR", message)
}

func (cl *ConsoleLogger) logWithLevel(level string, message string) {
	if cl.writer == nil || !enabled(cl.logLevel, strings.ToLower(level)) {
		return
	}

	coloredLevel := level
	if cl.colorOutput {
		coloredLevel = levelColor(level).Sprint(level)
	}
	cl.write(fmt.Sprintf("[%s] [%s] %s\n", timestamp(), coloredLevel, message))
}

func levelColor(level string) *color.Color {
	switch level {
	case "TRACE":
		return color.New(color.FgHiBlack)
	case "DEBUG":
		return color.New(color.FgCyan)
	case "WARN":
		return color.New(color.FgYellow)
	case "ERROR":
		return color.New(color.FgRed)
	default:
		return color.New(color.FgBlue)
	}
}

// LogSessionAnalyzed logs one analyzed session at INFO level.
// Format: "[HH:MM:SS] <session key>: <n> trials, <n> blocks, d' same [...] (<duration>)"
func (cl *ConsoleLogger) LogSessionAnalyzed(summary models.SessionSummary, blocks []models.BlockMetrics, duration time.Duration) {
	if cl.writer == nil || !enabled(cl.logLevel, "info") {
		return
	}

	key := summary.SessionKey()
	if cl.colorOutput {
		key = color.New(color.Bold).Sprint(key)
	}
	cl.write(fmt.Sprintf("[%s] %s: %d trials, %d blocks, %d engaged, d' same [%s] (%s)\n",
		timestamp(), key, summary.NTrials, summary.NBlocks, summary.Engaged,
		dprimeList(blocks), formatDuration(duration)))
}

// LogProgress logs batch progress at INFO level.
// Format: "[HH:MM:SS] Progress: [====      ] 4/10 (40%)"
func (cl *ConsoleLogger) LogProgress(done, total int) {
	if cl.writer == nil || !enabled(cl.logLevel, "info") {
		return
	}

	pb := NewProgressBar(total, 10, cl.colorOutput)
	pb.Update(done)
	cl.write(fmt.Sprintf("[%s] Progress: %s\n", timestamp(), pb.Render()))
}

// LogBatchSummary logs the outcome of a batch at INFO level.
func (cl *ConsoleLogger) LogBatchSummary(analyzed, failed int, duration time.Duration) {
	if cl.writer == nil || !enabled(cl.logLevel, "info") {
		return
	}

	ts := timestamp()
	header := "=== Analysis Summary ==="
	analyzedText := fmt.Sprintf("Analyzed: %d", analyzed)
	failedText := fmt.Sprintf("Failed: %d", failed)
	if cl.colorOutput {
		header = color.New(color.Bold).Sprint(header)
		analyzedText = color.New(color.FgGreen).Sprint(analyzedText)
		if failed > 0 {
			failedText = color.New(color.FgRed).Sprint(failedText)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s\n", ts, header)
	fmt.Fprintf(&b, "[%s] Sessions: %d\n", ts, analyzed+failed)
	fmt.Fprintf(&b, "[%s] %s\n", ts, analyzedText)
	fmt.Fprintf(&b, "[%s] %s\n", ts, failedText)
	fmt.Fprintf(&b, "[%s] Duration: %s\n", ts, formatDuration(duration))
	cl.write(b.String())
}

func (cl *ConsoleLogger) write(s string) {
	cl.mutex.Lock()
	defer cl.mutex.Unlock()
	cl.writer.Write([]byte(s))
}

// dprimeList renders the same-modal d' of each block, "-" where undefined.
func dprimeList(blocks []models.BlockMetrics) string {
	parts := make([]string, len(blocks))
	for i, b := range blocks {
		parts[i] = models.FormatMetric(b.DprimeSameModal)
	}
	return strings.Join(parts, " ")
}

// timestamp returns the current time formatted as "15:04:05" (HH:MM:SS).
func timestamp() string {
	return time.Now().Format("15:04:05")
}

// formatDuration converts a time.Duration to a human-readable string.
// Examples: "120ms", "5s", "1m30s", "2h15m"
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Hour:
		hours := d / time.Hour
		remainder := d % time.Hour
		if remainder == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		minutes := remainder / time.Minute
		remainder = remainder % time.Minute
		if remainder == 0 {
			return fmt.Sprintf("%dh%dm", hours, minutes)
		}
		seconds := remainder / time.Second
		return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
	case d >= time.Minute:
		minutes := d / time.Minute
		remainder := d % time.Minute
		if remainder == 0 {
			return fmt.Sprintf("%dm", minutes)
		}
		seconds := remainder / time.Second
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	case d >= time.Second:
		return fmt.Sprintf("%ds", int64(d.Seconds()))
	default:
		// Single sessions analyze in milliseconds.
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
}
