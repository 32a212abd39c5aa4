package runner

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ogulcanaydogan/extraction-acceptance/internal/extraction"
	"github.com/ogulcanaydogan/extraction-acceptance/pkg/types"
)

// RunSuite executes every case with at most Concurrency extractions in
// flight and folds the results into a summary. Results keep the order of
// cases. Once ctx is cancelled no new case starts; cases never started are
// counted as skipped and left out of Results.
func (r *Runner) RunSuite(ctx context.Context, fn extraction.Func, cases []types.TestCase) types.SuiteSummary {
	runID := uuid.NewString()
	log := r.log(ctx).With().Str("run_id", runID).Logger()
	start := r.opts.Clock()
	log.Info().Int("cases", len(cases)).Int("concurrency", r.opts.Concurrency).Msg("suite started")

	slots := make([]*types.TestExecutionResult, len(cases))
	var g errgroup.Group
	g.SetLimit(r.opts.Concurrency)
	for i := range cases {
		if ctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			res := r.RunSingle(ctx, cases[i], fn)
			slots[i] = &res
			return nil
		})
	}
	_ = g.Wait()

	summary := Summarize(slots, r.opts.PassingThreshold)
	summary.RunID = runID
	summary.TotalExecutionTimeMs = r.elapsedMs(start)
	r.opts.Metrics.SetPassRate(summary.PassRate)

	ev := log.Info()
	if summary.Skipped > 0 {
		ev = log.Warn()
	}
	ev.Int("total", summary.Total).
		Int("passed", summary.Passed).
		Int("failed", summary.Failed).
		Int("skipped", summary.Skipped).
		Float64("pass_rate", summary.PassRate).
		Int64("duration_ms", summary.TotalExecutionTimeMs).
		Msg("suite completed")
	return summary
}

// Summarize folds per-case results into a summary. Nil slots are cases that
// never ran.
func Summarize(slots []*types.TestExecutionResult, passingThreshold float64) types.SuiteSummary {
	s := types.SuiteSummary{
		Total:   len(slots),
		Results: make([]types.TestExecutionResult, 0, len(slots)),
	}
	for _, res := range slots {
		if res == nil {
			s.Skipped++
			continue
		}
		s.Results = append(s.Results, *res)
		if res.Passed {
			s.Passed++
		} else {
			s.Failed++
		}
	}
	if s.Total > 0 {
		s.PassRate = float64(s.Passed) / float64(s.Total)
	}
	s.Recommendations = Recommend(s.Results, s.PassRate, passingThreshold)
	return s
}
