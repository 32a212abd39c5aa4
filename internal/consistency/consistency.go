// Package consistency checks that the numbers and dates inside one
// extraction record agree with each other, independent of any acceptance
// criteria.
package consistency

import (
	"time"

	"github.com/ogulcanaydogan/extraction-acceptance/pkg/types"
)

const (
	DefaultBalanceTolerance         = 0.01
	DefaultBalanceHardFailThreshold = 1.00
	DefaultMaxStatementAgeDays      = 90
)

type Config struct {
	// BalanceTolerance is the largest reconciliation drift that is ignored.
	BalanceTolerance float64 `yaml:"balance_tolerance"`
	// BalanceHardFailThreshold is the drift above which consistency fails.
	// Drift between the two thresholds only warns.
	BalanceHardFailThreshold float64 `yaml:"balance_hard_fail_threshold"`
	MaxStatementAgeDays      int     `yaml:"max_statement_age_days"`
}

func DefaultConfig() Config {
	return Config{
		BalanceTolerance:         DefaultBalanceTolerance,
		BalanceHardFailThreshold: DefaultBalanceHardFailThreshold,
		MaxStatementAgeDays:      DefaultMaxStatementAgeDays,
	}
}

// Result is what the consistency checks contribute to a validation result.
type Result struct {
	Passed   bool
	Warnings []types.Warning
	Errors   []types.ValidationError
}

// finding is the output of a single check. Checks never share state; the
// validator concatenates findings in check order.
type finding struct {
	failed   bool
	warnings []types.Warning
	errors   []types.ValidationError
}

type check func(rec types.ExtractionRecord, cfg Config, now time.Time) finding

var checks = []check{
	checkBalance,
	checkDateRange,
	checkStatementAge,
	checkTransactionsInPeriod,
}

type Validator struct {
	cfg Config
	now func() time.Time
}

type Option func(*Validator)

// WithClock overrides the time source used for the statement age check.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) { v.now = now }
}

func New(cfg Config, opts ...Option) *Validator {
	v := &Validator{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *Validator) Config() Config { return v.cfg }

func (v *Validator) Validate(rec types.ExtractionRecord) Result {
	now := v.now()
	res := Result{Passed: true, Warnings: []types.Warning{}, Errors: []types.ValidationError{}}
	for _, c := range checks {
		f := c(rec, v.cfg, now)
		if f.failed {
			res.Passed = false
		}
		res.Warnings = append(res.Warnings, f.warnings...)
		res.Errors = append(res.Errors, f.errors...)
	}
	return res
}
