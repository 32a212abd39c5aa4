package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ogulcanaydogan/extraction-acceptance/internal/compare"
	"github.com/ogulcanaydogan/extraction-acceptance/internal/criteria"
	"github.com/ogulcanaydogan/extraction-acceptance/internal/extraction"
	"github.com/ogulcanaydogan/extraction-acceptance/internal/hash"
	"github.com/ogulcanaydogan/extraction-acceptance/internal/logger"
	"github.com/ogulcanaydogan/extraction-acceptance/internal/metrics"
	"github.com/ogulcanaydogan/extraction-acceptance/pkg/types"
)

const (
	DefaultConcurrency       = 4
	DefaultExtractionTimeout = 60 * time.Second
	DefaultPassingThreshold  = 0.9
)

type Options struct {
	// Concurrency bounds the number of extraction calls in flight.
	Concurrency int
	// ExtractionTimeout is the per-call deadline; zero disables it.
	ExtractionTimeout time.Duration
	PassingThreshold  float64
	// DeterminismCheck > 1 re-runs extraction and compares record digests.
	DeterminismCheck int

	// Logger defaults to the logger carried by the run context.
	Logger  *zerolog.Logger
	Metrics *metrics.Metrics
	Clock   func() time.Time
}

func DefaultOptions() Options {
	return Options{
		Concurrency:       DefaultConcurrency,
		ExtractionTimeout: DefaultExtractionTimeout,
		PassingThreshold:  DefaultPassingThreshold,
		DeterminismCheck:  1,
	}
}

type Runner struct {
	criteria   *criteria.Validator
	comparator *compare.Comparator
	opts       Options
}

func New(cv *criteria.Validator, cmp *compare.Comparator, opts Options) *Runner {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.DeterminismCheck < 1 {
		opts.DeterminismCheck = 1
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Runner{criteria: cv, comparator: cmp, opts: opts}
}

func (r *Runner) Options() Options { return r.opts }

func (r *Runner) log(ctx context.Context) zerolog.Logger {
	if r.opts.Logger != nil {
		return *r.opts.Logger
	}
	return logger.FromContext(ctx)
}

// RunSingle drives one test case through extraction and validation. It never
// fails: extraction problems become a Completed(error) result.
func (r *Runner) RunSingle(ctx context.Context, tc types.TestCase, fn extraction.Func) types.TestExecutionResult {
	log := r.log(ctx).With().Str("test_id", tc.ID).Logger()
	start := r.opts.Clock()
	log.Debug().Str("state", types.StatePending).Str("document", tc.Input.DocumentLocation).Msg("test case queued")

	log.Debug().Str("state", types.StateExtracting).Msg("extracting")
	out := extraction.Invoke(ctx, fn, tc.Input.DocumentLocation, r.opts.ExtractionTimeout)
	r.opts.Metrics.ObserveExtraction(r.opts.Clock().Sub(start).Seconds())
	if !out.OK() {
		res := failedResult(tc, out.Err, r.elapsedMs(start))
		log.Warn().Err(out.Err).Str("state", res.FinalState).Int64("duration_ms", res.ExecutionTimeMs).Msg("extraction failed")
		r.record(res)
		return res
	}

	log.Debug().Str("state", types.StateValidating).Msg("validating")
	rec := *out.Record
	crit := r.criteria.Validate(rec, tc.Criteria)
	exp := r.comparator.Compare(rec, tc.Expected)

	digest, err := hash.RecordDigest(rec)
	if err != nil {
		log.Warn().Err(err).Msg("record digest unavailable")
	}
	if digest != "" && r.opts.DeterminismCheck > 1 {
		r.checkDeterminism(ctx, tc, fn, digest, &crit)
	}

	res := types.TestExecutionResult{
		TestCase:           tc,
		Passed:             crit.IsValid && exp.IsValid,
		FinalState:         types.StateCompletedFail,
		CriteriaValidation: crit,
		ExpectedValidation: exp,
		ExecutionTimeMs:    r.elapsedMs(start),
		RecordDigest:       digest,
	}
	if res.Passed {
		res.FinalState = types.StateCompletedPass
	}
	log.Info().
		Str("state", res.FinalState).
		Bool("passed", res.Passed).
		Int("warnings", len(crit.Warnings)).
		Bool("human_review", crit.RequiresHumanReview || exp.RequiresHumanReview).
		Int64("duration_ms", res.ExecutionTimeMs).
		Msg("test case completed")
	r.record(res)
	return res
}

// checkDeterminism re-extracts the document and flags the first digest that
// differs from the original. Record IDs and timestamps are ignored.
func (r *Runner) checkDeterminism(ctx context.Context, tc types.TestCase, fn extraction.Func, first string, crit *types.ValidationResult) {
	for i := 1; i < r.opts.DeterminismCheck; i++ {
		out := extraction.Invoke(ctx, fn, tc.Input.DocumentLocation, r.opts.ExtractionTimeout)
		var detail string
		if !out.OK() {
			detail = fmt.Sprintf("re-extraction %d failed: %v", i, out.Err)
		} else {
			next, err := hash.RecordDigest(*out.Record)
			if err != nil || next == first {
				continue
			}
			detail = fmt.Sprintf("re-extraction %d produced %s, first run produced %s", i, next, first)
		}
		crit.Warnings = append(crit.Warnings, types.Warning{
			Code:       types.CodeNondeterministicExtraction,
			Message:    detail,
			Field:      "record",
			Suggestion: "Pin the extraction model and settings, or review this document manually",
		})
		crit.RequiresHumanReview = true
		crit.HumanReviewReasons = append(crit.HumanReviewReasons, "extraction output is not deterministic")
		return
	}
}

func failedResult(tc types.TestCase, err error, elapsedMs int64) types.TestExecutionResult {
	failure := types.ExtractionFailure(err.Error())
	return types.TestExecutionResult{
		TestCase:           tc,
		Passed:             false,
		FinalState:         types.StateCompletedError,
		CriteriaValidation: failure,
		ExpectedValidation: failure,
		ExecutionTimeMs:    elapsedMs,
		Error:              err.Error(),
	}
}

func (r *Runner) elapsedMs(start time.Time) int64 {
	return r.opts.Clock().Sub(start).Milliseconds()
}

func (r *Runner) record(res types.TestExecutionResult) {
	m := r.opts.Metrics
	if m == nil {
		return
	}
	m.RecordTest(res.FinalState)
	for _, w := range res.CriteriaValidation.Warnings {
		m.RecordWarning(w.Code)
	}
	if res.CriteriaValidation.RequiresHumanReview || res.ExpectedValidation.RequiresHumanReview {
		m.RecordHumanReview()
	}
}
