// Package batch parses many documents concurrently.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/gedex/internal/gedcom"
	"github.com/dusk-indust/gedex/internal/metrics"
)

// FileResult holds the outcome of parsing one file. Exactly one of Result
// and Err is set.
type FileResult struct {
	Path     string
	Result   *gedcom.Result
	Err      error
	Duration time.Duration
}

// Options configure ParseFiles. The zero value parses with defaults and
// reports nothing.
type Options struct {
	// Workers bounds the number of concurrent parses; <= 0 means one per file.
	Workers int

	// FailFast cancels the remaining parses after the first failure.
	FailFast bool

	// OnProgress is called from worker goroutines; it may be nil.
	OnProgress func(ProgressEvent)

	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// ParseFiles parses every path with p, at most opts.Workers at a time.
//
// Results are returned in input order regardless of completion order. Every
// per-file failure is kept in its FileResult; the returned error is non-nil
// only when FailFast stopped the batch or ctx was canceled, and files that
// never started carry the cancellation error.
func ParseFiles(ctx context.Context, p *gedcom.Parser, paths []string, opts Options) ([]FileResult, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	results := make([]FileResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	if opts.Workers > 0 {
		g.SetLimit(opts.Workers)
	}

	for i, path := range paths {
		results[i].Path = path
		emit(opts.OnProgress, ProgressEvent{Path: path, Status: ProgressPending})
	}

	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i].Err = err
				emit(opts.OnProgress, ProgressEvent{Path: path, Status: ProgressSkipped, Message: err.Error()})
				return nil
			}
			emit(opts.OnProgress, ProgressEvent{Path: path, Status: ProgressWorking})

			start := time.Now()
			res, err := p.ParseFile(path)
			opts.Metrics.Observe(start, res, err)
			results[i].Duration = time.Since(start)

			if err != nil {
				results[i].Err = err
				logger.Warn("parse failed", "path", path, "error", err)
				emit(opts.OnProgress, ProgressEvent{Path: path, Status: ProgressFailed, Message: err.Error()})
				if opts.FailFast {
					return fmt.Errorf("%s: %w", path, err) // cancels gctx for the others
				}
				return nil
			}

			results[i].Result = res
			logger.Debug("parsed", "path", path, "records", res.Registry.Len(),
				"unparsed", len(res.Unparsed), "dangling", len(res.Dangling))
			emit(opts.OnProgress, ProgressEvent{
				Path:    path,
				Status:  ProgressComplete,
				Records: res.Registry.Len(),
			})
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}

func emit(fn func(ProgressEvent), ev ProgressEvent) {
	if fn != nil {
		fn(ev)
	}
}
