package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ogulcanaydogan/extraction-acceptance/internal/consistency"
	"github.com/ogulcanaydogan/extraction-acceptance/internal/runner"
)

const DefaultPath = "evidencecheck.yaml"

type Config struct {
	Consistency consistency.Config `yaml:"consistency"`
	Comparison  ComparisonConfig   `yaml:"comparison"`
	Runner      RunnerConfig       `yaml:"runner"`
	Fixtures    FixturesConfig     `yaml:"fixtures"`
	LogLevel    string             `yaml:"log_level"`
}

type ComparisonConfig struct {
	// BalanceTolerance applies when an expected result sets none of its own.
	// Nil inherits consistency.balance_tolerance.
	BalanceTolerance *float64 `yaml:"balance_tolerance"`
}

type RunnerConfig struct {
	Concurrency       int           `yaml:"concurrency"`
	ExtractionTimeout time.Duration `yaml:"extraction_timeout"`
	PassingThreshold  float64       `yaml:"passing_threshold"`
	DeterminismCheck  int           `yaml:"determinism_check"`
}

type FixturesConfig struct {
	Dir      string        `yaml:"dir"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

func Default() Config {
	return Config{
		Consistency: consistency.DefaultConfig(),
		Runner: RunnerConfig{
			Concurrency:       runner.DefaultConcurrency,
			ExtractionTimeout: runner.DefaultExtractionTimeout,
			PassingThreshold:  runner.DefaultPassingThreshold,
			DeterminismCheck:  1,
		},
		Fixtures: FixturesConfig{CacheTTL: 5 * time.Minute},
		LogLevel: "info",
	}
}

// Load reads path over the defaults; keys absent from the file keep their
// default value.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault loads path when it exists and returns the defaults otherwise.
func LoadOrDefault(path string) (Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return Load(path)
}

func (c Config) Validate() error {
	var errs []error
	cons := c.Consistency
	if cons.BalanceTolerance < 0 {
		errs = append(errs, fmt.Errorf("consistency.balance_tolerance must be >= 0, got %v", cons.BalanceTolerance))
	}
	if cons.BalanceHardFailThreshold <= cons.BalanceTolerance {
		errs = append(errs, fmt.Errorf("consistency.balance_hard_fail_threshold (%v) must exceed balance_tolerance (%v)",
			cons.BalanceHardFailThreshold, cons.BalanceTolerance))
	}
	if cons.MaxStatementAgeDays <= 0 {
		errs = append(errs, fmt.Errorf("consistency.max_statement_age_days must be > 0, got %d", cons.MaxStatementAgeDays))
	}
	if tol := c.Comparison.BalanceTolerance; tol != nil && *tol < 0 {
		errs = append(errs, fmt.Errorf("comparison.balance_tolerance must be >= 0, got %v", *tol))
	}
	r := c.Runner
	if r.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("runner.concurrency must be >= 1, got %d", r.Concurrency))
	}
	if r.ExtractionTimeout < 0 {
		errs = append(errs, fmt.Errorf("runner.extraction_timeout must be >= 0, got %s", r.ExtractionTimeout))
	}
	if r.PassingThreshold < 0 || r.PassingThreshold > 1 {
		errs = append(errs, fmt.Errorf("runner.passing_threshold must be within [0, 1], got %v", r.PassingThreshold))
	}
	if r.DeterminismCheck < 1 {
		errs = append(errs, fmt.Errorf("runner.determinism_check must be >= 1, got %d", r.DeterminismCheck))
	}
	if c.Fixtures.CacheTTL < 0 {
		errs = append(errs, fmt.Errorf("fixtures.cache_ttl must be >= 0, got %s", c.Fixtures.CacheTTL))
	}
	return errors.Join(errs...)
}

func (c Config) RunnerOptions() runner.Options {
	return runner.Options{
		Concurrency:       c.Runner.Concurrency,
		ExtractionTimeout: c.Runner.ExtractionTimeout,
		PassingThreshold:  c.Runner.PassingThreshold,
		DeterminismCheck:  c.Runner.DeterminismCheck,
	}
}

// ComparisonTolerance is the balance tolerance for expected-result
// comparison.
func (c Config) ComparisonTolerance() float64 {
	if c.Comparison.BalanceTolerance != nil {
		return *c.Comparison.BalanceTolerance
	}
	return c.Consistency.BalanceTolerance
}

// Template is the starter file written by `evidencecheck init`.
const Template = `# evidencecheck configuration
log_level: info
consistency:
  balance_tolerance: 0.01
  balance_hard_fail_threshold: 1.00
  max_statement_age_days: 90
# comparison:
#   balance_tolerance: 0.01   # defaults to consistency.balance_tolerance
runner:
  concurrency: 4
  extraction_timeout: 60s
  passing_threshold: 0.9
  determinism_check: 1
fixtures:
  dir: fixtures
  cache_ttl: 5m
`
