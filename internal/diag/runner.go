package diag

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"
)

// Prober makes one probe call against the server and classifies it.
// Implementations must be safe for concurrent use: the parallel pattern
// calls Probe from multiple goroutines.
type Prober interface {
	Probe(ctx context.Context) Outcome
}

// ProberFunc is a function adapter for Prober.
type ProberFunc func(context.Context) Outcome

func (f ProberFunc) Probe(ctx context.Context) Outcome {
	return f(ctx)
}

// Runner drives the diagnostic suite against a prober.
type Runner struct {
	prober Prober
	logger *slog.Logger

	pause time.Duration // settle time between patterns
	now   func() time.Time
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithPause sets the settle time between patterns.
func WithPause(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.pause = d
	}
}

// NewRunner creates a Runner.
func NewRunner(prober Prober, opts ...RunnerOption) *Runner {
	r := &Runner{
		prober: prober,
		logger: slog.Default(),
		pause:  2 * time.Second,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Run executes every pattern in order, pausing between them so one
// pattern's session churn does not bleed into the next measurement.
func (r *Runner) Run(ctx context.Context, serverURL string, patterns []Pattern) (*RunResults, error) {
	run := &RunResults{
		ServerURL: serverURL,
		StartedAt: r.now(),
	}

	for i, pattern := range patterns {
		if i > 0 {
			select {
			case <-ctx.Done():
				return run, ctx.Err()
			case <-time.After(r.pause):
			}
		}

		r.logger.Info("running pattern",
			"pattern", pattern.Name,
			"count", pattern.Count,
			"parallel", pattern.Parallel,
		)

		var results []Result
		var err error
		if pattern.Parallel {
			results = r.runParallel(ctx, pattern)
		} else {
			results, err = r.runSequential(ctx, pattern)
		}

		run.Patterns = append(run.Patterns, PatternResults{
			Pattern: pattern,
			Results: results,
		})

		if err != nil {
			return run, err
		}
	}

	return run, nil
}

// runSequential fires requests one at a time with the pattern's gap.
func (r *Runner) runSequential(ctx context.Context, pattern Pattern) ([]Result, error) {
	results := make([]Result, 0, pattern.Count)

	for i := 0; i < pattern.Count; i++ {
		result := r.probe(ctx, i+1)
		results = append(results, result)

		r.logResult(pattern.Name, result)

		if i == pattern.Count-1 {
			break
		}

		gap := pattern.Delay
		if pattern.JitterMax > 0 {
			spread := pattern.JitterMax - pattern.JitterMin
			gap = pattern.JitterMin + time.Duration(rand.Int63n(int64(spread)))
		}
		if gap <= 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return results, ctx.Err()
		case <-time.After(gap):
		}
	}

	return results, nil
}

// runParallel fires all of the pattern's requests at once. Attempt order
// is preserved in the result slice even though completion order varies.
func (r *Runner) runParallel(ctx context.Context, pattern Pattern) []Result {
	results := make([]Result, pattern.Count)

	var wg sync.WaitGroup
	for i := 0; i < pattern.Count; i++ {
		wg.Add(1)
		go func(attempt int) {
			defer wg.Done()
			results[attempt-1] = r.probe(ctx, attempt)
		}(i + 1)
	}
	wg.Wait()

	for _, result := range results {
		r.logResult(pattern.Name, result)
	}

	return results
}

// probe times a single call and folds in the classification.
func (r *Runner) probe(ctx context.Context, attempt int) Result {
	start := r.now()
	outcome := r.prober.Probe(ctx)
	elapsed := r.now().Sub(start)

	return Result{
		Attempt:        attempt,
		Timestamp:      start,
		ElapsedMS:      elapsed.Milliseconds(),
		Success:        outcome.Success,
		StatusCode:     outcome.StatusCode,
		ErrorType:      outcome.ErrorType,
		ErrorMessage:   outcome.ErrorMessage,
		SessionHeaders: outcome.SessionHeaders,
		Preview:        outcome.Preview,
	}
}

func (r *Runner) logResult(pattern string, result Result) {
	if result.Success {
		r.logger.Debug("probe ok",
			"pattern", pattern,
			"attempt", result.Attempt,
			"elapsed_ms", result.ElapsedMS,
		)
		return
	}

	r.logger.Debug("probe failed",
		"pattern", pattern,
		"attempt", result.Attempt,
		"elapsed_ms", result.ElapsedMS,
		"error_type", result.ErrorType,
		"error", result.ErrorMessage,
	)
}
