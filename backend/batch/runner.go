/*
 * backend/batch/runner.go
 *
 * Runs a batch of namespace comparisons.
 * - Pairs are compared concurrently with a bounded worker count.
 * - Snapshot resolution is retried with exponential backoff.
 * - The ignore matcher is loaded once per batch so every pair sees the same rules.
 */

package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/luxury-yacht/driftcheck/backend/compare"
	"github.com/luxury-yacht/driftcheck/backend/compare/ignore"
	"github.com/luxury-yacht/driftcheck/backend/compare/model"
	"github.com/luxury-yacht/driftcheck/backend/internal/config"
	"github.com/luxury-yacht/driftcheck/backend/internal/parallel"
	"github.com/luxury-yacht/driftcheck/backend/logging"
)

const runnerLogSource = "BatchRunner"

// RunnerDependencies wires a Runner. Zero values fall back to internal/config.
type RunnerDependencies struct {
	Resolver    Resolver
	Ignore      *ignore.Store
	Logger      logging.Interface
	Concurrency int
	MaxAttempts int
	RetryDelay  time.Duration
}

// Runner compares batches of pairs.
type Runner struct {
	deps RunnerDependencies
}

func NewRunner(deps RunnerDependencies) *Runner {
	if deps.Concurrency <= 0 {
		deps.Concurrency = config.BatchConcurrency
	}
	if deps.MaxAttempts <= 0 {
		deps.MaxAttempts = config.JobMaxAttempts
	}
	if deps.RetryDelay <= 0 {
		deps.RetryDelay = config.JobRetryDelay
	}
	if deps.Ignore == nil {
		deps.Ignore = ignore.NewStore(nil)
	}
	deps.Logger = logging.OrNoop(deps.Logger)
	return &Runner{deps: deps}
}

// Run compares every pair. The returned error is only set when ctx ends before the
// batch completes; per-pair failures are reported in the result.
func (r *Runner) Run(ctx context.Context, pairs []Pair) (*Result, error) {
	if r.deps.Resolver == nil {
		return nil, fmt.Errorf("batch runner has no resolver")
	}
	if preparer, ok := r.deps.Resolver.(Preparer); ok {
		refs := make([]SourceRef, 0, 2*len(pairs))
		for _, pair := range pairs {
			refs = append(refs, pair.Left, pair.Right)
		}
		if err := preparer.Prepare(ctx, refs); err != nil {
			return nil, err
		}
	}
	matcher := r.deps.Ignore.Load()
	start := time.Now()

	results, err := parallel.Map(ctx, pairs, r.deps.Concurrency, func(ctx context.Context, i int, pair Pair) (PairResult, error) {
		res := r.runPair(ctx, pair, matcher)
		if res.Failed() {
			r.deps.Logger.Warn(fmt.Sprintf("Pair %d (%s vs %s) failed: %s", i, pair.Left.Label(), pair.Right.Label(), res.Error), runnerLogSource)
		}
		return res, ctx.Err()
	})
	if err != nil {
		return nil, err
	}

	result := &Result{Pairs: results, Summary: summarize(results)}
	r.deps.Logger.Info(fmt.Sprintf("Compared %d pairs in %s: %d failed, %d differences",
		result.Summary.Pairs, time.Since(start).Round(time.Millisecond), result.Summary.Failed, result.Summary.DifferenceCount), runnerLogSource)
	return result, nil
}

func (r *Runner) runPair(ctx context.Context, pair Pair, matcher *ignore.Matcher) (out PairResult) {
	out.Pair = pair
	fail := func(err error) PairResult {
		out.Error = err.Error()
		return out
	}
	// A panic inside a comparator is a collector defect; it fails only this pair.
	defer func() {
		if rec := recover(); rec != nil {
			out.Comparison = nil
			out.LeftObjects, out.RightObjects = nil, nil
			out.Error = fmt.Sprintf("comparison failed: %v", rec)
		}
	}()

	if err := pair.Validate(); err != nil {
		return fail(err)
	}
	engine, _ := compare.ParseEngine(string(pair.Engine))
	mode, _ := compare.ParseMode(string(pair.Mode))

	left, err := r.resolve(ctx, pair.Left)
	if err != nil {
		return fail(fmt.Errorf("left: %w", err))
	}
	right, err := r.resolve(ctx, pair.Right)
	if err != nil {
		return fail(fmt.Errorf("right: %w", err))
	}

	req := compare.Request{
		Engine:     engine,
		Mode:       mode,
		LeftLabel:  firstNonEmpty(pair.LeftLabel, pair.Left.Label()),
		RightLabel: firstNonEmpty(pair.RightLabel, pair.Right.Label()),
		Filter:     matcher,
	}
	if mode == compare.ModeBaseline && pair.LeftLabel == "" {
		req.LeftLabel = ""
	}
	comparison, err := compare.Run(req, left, right)
	if err != nil {
		return fail(err)
	}
	out.Comparison = comparison
	out.LeftObjects, out.RightObjects = left.Structured, right.Structured
	return out
}

func (r *Runner) resolve(ctx context.Context, ref SourceRef) (*model.Snapshot, error) {
	return retryOperation(ctx, r.deps.MaxAttempts, r.deps.RetryDelay, func(ctx context.Context) (*model.Snapshot, error) {
		return r.deps.Resolver.Resolve(ctx, ref)
	})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
