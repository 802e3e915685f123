package analysis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/harrison/dynrouting/internal/models"
)

// Logger receives progress from a Runner.
type Logger interface {
	LogDebug(message string)
	LogWarn(message string)
	LogSessionAnalyzed(summary models.SessionSummary, blocks []models.BlockMetrics, duration time.Duration)
	LogProgress(done, total int)
	LogBatchSummary(analyzed, failed int, duration time.Duration)
}

// FileResult pairs an input path with its analysis or error.
type FileResult struct {
	Path   string
	Result *Result
	Err    error
}

// Runner analyzes independent session files in parallel.
type Runner struct {
	opts   Options
	logger Logger
}

// NewRunner creates a Runner. A nil logger discards progress.
func NewRunner(opts Options, logger Logger) *Runner {
	return &Runner{opts: opts, logger: logger}
}

// AnalyzeFiles analyzes every path with at most MaxConcurrency files in flight.
// Results keep input order. A failing file records its error and does not stop
// the others; the returned error is non-nil only when ctx is cancelled.
func (r *Runner) AnalyzeFiles(ctx context.Context, paths []string) ([]FileResult, error) {
	start := time.Now()
	results := make([]FileResult, len(paths))

	limit := r.opts.MaxConcurrency
	if limit < 1 {
		limit = 1
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	var mu sync.Mutex
	done := 0

	for i, path := range paths {
		results[i].Path = path
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				results[i].Err = err
				return nil
			}

			fileStart := time.Now()
			res, err := AnalyzeFile(path, r.opts)
			results[i].Result = res
			results[i].Err = err

			mu.Lock()
			done++
			r.report(res, err, path, time.Since(fileStart), done, len(paths))
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, fr := range results {
		if fr.Err != nil {
			failed++
		}
	}
	if r.logger != nil {
		r.logger.LogBatchSummary(len(paths)-failed, failed, time.Since(start))
	}

	if err := ctx.Err(); err != nil {
		return results, fmt.Errorf("analysis cancelled: %w", err)
	}
	return results, nil
}

func (r *Runner) report(res *Result, err error, path string, duration time.Duration, done, total int) {
	if r.logger == nil {
		return
	}
	if err != nil {
		r.logger.LogWarn(fmt.Sprintf("skipping %s: %v", path, err))
	} else {
		r.logger.LogSessionAnalyzed(res.Summary, res.Blocks, duration)
	}
	r.logger.LogProgress(done, total)
}
