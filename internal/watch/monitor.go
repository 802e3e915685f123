package watch

import (
	"context"
	"fmt"
	"time"

	"github.com/harrison/dynrouting/internal/analysis"
)

// Handler receives every session analyzed by a Monitor.
type Handler func(ctx context.Context, result *analysis.Result) error

// Monitor analyzes session files reported by a FileWatcher.
type Monitor struct {
	watcher *FileWatcher
	opts    analysis.Options
	logger  analysis.Logger
	handler Handler
}

// NewMonitor returns a monitor over watcher. handler may be nil.
func NewMonitor(watcher *FileWatcher, opts analysis.Options, logger analysis.Logger, handler Handler) *Monitor {
	return &Monitor{
		watcher: watcher,
		opts:    opts,
		logger:  logger,
		handler: handler,
	}
}

// Run processes events until ctx is done or the watcher is closed. Analysis and
// handler failures are logged and do not stop the loop.
func (m *Monitor) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-m.watcher.Done():
			return nil
		case event, ok := <-m.watcher.Events():
			if !ok {
				return nil
			}
			m.process(ctx, event)
		case err, ok := <-m.watcher.Errors():
			if !ok {
				return nil
			}
			m.logWarn(fmt.Sprintf("watcher error: %v", err))
		}
	}
}

func (m *Monitor) process(ctx context.Context, event FileEvent) {
	m.logDebug(fmt.Sprintf("session file %s: %s", event.Op, event.Path))

	start := time.Now()
	result, err := analysis.AnalyzeFile(event.Path, m.opts)
	if err != nil {
		m.logWarn(fmt.Sprintf("skipping %v", err))
		return
	}

	if m.logger != nil {
		m.logger.LogSessionAnalyzed(result.Summary, result.Blocks, time.Since(start))
	}

	if m.handler != nil {
		if err := m.handler(ctx, result); err != nil {
			m.logWarn(fmt.Sprintf("handling %s: %v", event.Path, err))
		}
	}
}

func (m *Monitor) logDebug(message string) {
	if m.logger != nil {
		m.logger.LogDebug(message)
	}
}

func (m *Monitor) logWarn(message string) {
	if m.logger != nil {
		m.logger.LogWarn(message)
	}
}
