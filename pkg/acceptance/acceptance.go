// Package acceptance is the public entry point for running extraction
// acceptance tests: validate what an extraction service produced for a set
// of documents against per-document criteria and expected values.
package acceptance

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ogulcanaydogan/extraction-acceptance/internal/compare"
	"github.com/ogulcanaydogan/extraction-acceptance/internal/config"
	"github.com/ogulcanaydogan/extraction-acceptance/internal/consistency"
	"github.com/ogulcanaydogan/extraction-acceptance/internal/criteria"
	"github.com/ogulcanaydogan/extraction-acceptance/internal/extraction"
	"github.com/ogulcanaydogan/extraction-acceptance/internal/metrics"
	"github.com/ogulcanaydogan/extraction-acceptance/internal/runner"
	"github.com/ogulcanaydogan/extraction-acceptance/pkg/types"
)

// ExtractionFunc turns a document location into an extraction record.
type ExtractionFunc = extraction.Func

type Config = config.Config

func DefaultConfig() Config { return config.Default() }

// Engine wires the validators and the runner from one configuration.
type Engine struct {
	criteria   *criteria.Validator
	comparator *compare.Comparator
	runner     *runner.Runner
}

type Option func(*engineOptions)

type engineOptions struct {
	clock   func() time.Time
	logger  *zerolog.Logger
	metrics *metrics.Metrics
}

// WithClock fixes the time used for statement age and execution timing.
func WithClock(now func() time.Time) Option {
	return func(o *engineOptions) { o.clock = now }
}

func WithLogger(log zerolog.Logger) Option {
	return func(o *engineOptions) { o.logger = &log }
}

// NewMetrics returns a collector set on its own Prometheus registry, for use
// with WithMetrics.
func NewMetrics() *metrics.Metrics { return metrics.New() }

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *engineOptions) { o.metrics = m }
}

func NewEngine(cfg Config, opts ...Option) *Engine {
	o := engineOptions{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	cv := consistency.New(cfg.Consistency, consistency.WithClock(o.clock))
	crit := criteria.New(cv)
	cmp := compare.New(cfg.ComparisonTolerance())
	ro := cfg.RunnerOptions()
	ro.Clock = o.clock
	ro.Logger = o.logger
	ro.Metrics = o.metrics
	return &Engine{criteria: crit, comparator: cmp, runner: runner.New(crit, cmp, ro)}
}

func (e *Engine) RunSuite(ctx context.Context, fn ExtractionFunc, cases []types.TestCase) types.SuiteSummary {
	return e.runner.RunSuite(ctx, fn, cases)
}

func (e *Engine) RunSingleTest(ctx context.Context, tc types.TestCase, fn ExtractionFunc) types.TestExecutionResult {
	return e.runner.RunSingle(ctx, tc, fn)
}

// Validate applies acceptance criteria to a record without running a test.
func (e *Engine) Validate(rec types.ExtractionRecord, c types.AcceptanceCriteria) types.ValidationResult {
	return e.criteria.Validate(rec, c)
}

// Compare checks a record against expected ground truth.
func (e *Engine) Compare(rec types.ExtractionRecord, exp types.ExpectedResult) types.ValidationResult {
	return e.comparator.Compare(rec, exp)
}

// RunSuite runs cases with the default configuration.
func RunSuite(ctx context.Context, fn ExtractionFunc, cases []types.TestCase) types.SuiteSummary {
	return NewEngine(DefaultConfig()).RunSuite(ctx, fn, cases)
}

// RunSingleTest runs one case with the default configuration.
func RunSingleTest(ctx context.Context, tc types.TestCase, fn ExtractionFunc) types.TestExecutionResult {
	return NewEngine(DefaultConfig()).RunSingleTest(ctx, tc, fn)
}

// NewMockExtractor returns a deterministic extraction function serving the
// given records by document location. Locations without a record fail with
// an unknown-document error.
func NewMockExtractor(records map[string]types.ExtractionRecord) ExtractionFunc {
	return extraction.NewMock(records).Func()
}

// SampleStatement is a small, internally consistent statement record for
// local experiments with NewMockExtractor.
func SampleStatement() types.ExtractionRecord { return extraction.SampleStatement() }
