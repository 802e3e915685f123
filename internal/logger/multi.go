package logger

import (
	"time"

	"github.com/harrison/dynrouting/internal/analysis"
	"github.com/harrison/dynrouting/internal/models"
)

// MultiLogger fans every event out to several loggers.
type MultiLogger struct {
	loggers []analysis.Logger
}

// NewMultiLogger combines loggers; nil entries are skipped.
func NewMultiLogger(loggers ...analysis.Logger) *MultiLogger {
	ml := &MultiLogger{}
	for _, l := range loggers {
		if l != nil {
			ml.loggers = append(ml.loggers, l)
		}
	}
	return ml
}

func (ml *MultiLogger) LogDebug(message string) {
	for _, l := range ml.loggers {
		l.LogDebug(message)
	}
}

func (ml *MultiLogger) LogWarn(message string) {
	for _, l := range ml.loggers {
		l.LogWarn(message)
	}
}

func (ml *MultiLogger) LogSessionAnalyzed(summary models.SessionSummary, blocks []models.BlockMetrics, duration time.Duration) {
	for _, l := range ml.loggers {
		l.LogSessionAnalyzed(summary, blocks, duration)
	}
}

func (ml *MultiLogger) LogProgress(done, total int) {
	for _, l := range ml.loggers {
		l.LogProgress(done, total)
	}
}

func (ml *MultiLogger) LogBatchSummary(analyzed, failed int, duration time.Duration) {
	for _, l := range ml.loggers {
		l.LogBatchSummary(analyzed, failed, duration)
	}
}

// NoOpLogger discards all log messages.
type NoOpLogger struct{}

// NewNoOpLogger creates a NoOpLogger instance.
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (n *NoOpLogger) LogDebug(string) {}
func (n *NoOpLogger) LogWarn(string) {}
func (n *NoOpLogger) LogSessionAnalyzed(models.SessionSummary, []models.BlockMetrics, time.Duration) {}
func (n *NoOpLogger) LogProgress(int, int) {}
func (n *NoOpLogger) LogBatchSummary(int, int, time.Duration) {}

var (
	_ analysis.Logger = (*ConsoleLogger)(nil)
	_ analysis.Logger = (*FileLogger)(nil)
	_ analysis.Logger = (*MultiLogger)(nil)
	_ analysis.Logger = (*NoOpLogger)(nil)
)
