package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ogulcanaydogan/extraction-acceptance/internal/config"
	"github.com/ogulcanaydogan/extraction-acceptance/internal/extraction"
	"github.com/ogulcanaydogan/extraction-acceptance/internal/logger"
	"github.com/ogulcanaydogan/extraction-acceptance/internal/metrics"
	"github.com/ogulcanaydogan/extraction-acceptance/internal/report"
	"github.com/ogulcanaydogan/extraction-acceptance/internal/suite"
	"github.com/ogulcanaydogan/extraction-acceptance/pkg/acceptance"
	"github.com/ogulcanaydogan/extraction-acceptance/pkg/types"
)

const (
	exitBelowThreshold = 20
	exitRecordInvalid  = 21
	exitLoadFailure    = 22
)

type cliError struct {
	code int
	err  error
}

func (e cliError) Error() string { return e.err.Error() }

func (e cliError) Unwrap() error { return e.err }

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		var ce cliError
		if errors.As(err, &ce) {
			fmt.Fprintln(os.Stderr, ce.err)
			os.Exit(ce.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "evidencecheck",
		Short:         "Acceptance testing for bank-statement extraction",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newInitCommand())
	root.AddCommand(newRunCommand())
	root.AddCommand(newValidateCommand())
	root.AddCommand(newReportCommand())
	return root
}

const sampleFixtureName = "checking-oct-2024.json"

func newInitCommand() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter config, suite and fixture",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fixture, err := json.MarshalIndent(extraction.SampleStatement(), "", "  ")
			if err != nil {
				return err
			}
			files := []struct {
				path string
				body []byte
			}{
				{filepath.Join(dir, config.DefaultPath), []byte(config.Template)},
				{filepath.Join(dir, "suites", "sample.yaml"), []byte(suite.Example)},
				{filepath.Join(dir, "fixtures", sampleFixtureName), append(fixture, '\n')},
			}
			for _, f := range files {
				if fileExists(f.path) {
					continue
				}
				if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
					return err
				}
				if err := os.WriteFile(f.path, f.body, 0o644); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), f.path)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "directory to initialize")
	return cmd
}

func newRunCommand() *cobra.Command {
	var cfgPath, suitePath, fixturesDir, format, outPath, metricsOut, logLevel string
	var useMock bool
	var concurrency, determinismCheck int
	var passingThreshold float64
	var timeout string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run an acceptance suite against recorded or mock extraction output",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if suitePath == "" {
				return fmt.Errorf("--suite is required")
			}
			cfg, err := config.LoadOrDefault(cfgPath)
			if err != nil {
				return cliError{code: exitLoadFailure, err: err}
			}
			flags := cmd.Flags()
			if flags.Changed("concurrency") {
				cfg.Runner.Concurrency = concurrency
			}
			if flags.Changed("passing-threshold") {
				cfg.Runner.PassingThreshold = passingThreshold
			}
			if flags.Changed("determinism-check") {
				cfg.Runner.DeterminismCheck = determinismCheck
			}
			if flags.Changed("timeout") {
				if cfg.Runner.ExtractionTimeout, err = parseDuration(timeout); err != nil {
					return err
				}
			}
			if flags.Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			if err := cfg.Validate(); err != nil {
				return cliError{code: exitLoadFailure, err: err}
			}

			s, err := suite.Load(suitePath)
			if err != nil {
				return cliError{code: exitLoadFailure, err: err}
			}
			fn, err := extractor(cfg, cfgPath, fixturesDir, useMock)
			if err != nil {
				return err
			}

			log := logger.New(cfg.LogLevel)
			var m *metrics.Metrics
			if metricsOut != "" {
				m = metrics.New()
			}
			engine := acceptance.NewEngine(cfg, acceptance.WithLogger(log), acceptance.WithMetrics(m))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			summary := engine.RunSuite(logger.WithContext(ctx, log), fn, s.Cases)
			summary.SuiteName = s.Name
			summary.SuiteDigest = s.Digest

			if err := writeSummary(cmd.OutOrStdout(), summary, format, outPath); err != nil {
				return err
			}
			if m != nil {
				if err := m.WriteTextfile(metricsOut); err != nil {
					return err
				}
			}
			if summary.PassRate < cfg.Runner.PassingThreshold {
				return cliError{code: exitBelowThreshold, err: fmt.Errorf(
					"pass rate %.1f%% below threshold %.1f%%", summary.PassRate*100, cfg.Runner.PassingThreshold*100)}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&cfgPath, "config", config.DefaultPath, "config file (defaults apply when absent)")
	cmd.Flags().StringVar(&suitePath, "suite", "", "suite file or directory")
	cmd.Flags().StringVar(&fixturesDir, "fixtures", "", "directory of recorded extraction output (overrides fixtures.dir)")
	cmd.Flags().BoolVar(&useMock, "mock", false, "serve the built-in sample statement for every document")
	cmd.Flags().StringVar(&format, "format", "json", "report format: json or md")
	cmd.Flags().StringVar(&outPath, "out", "", "report output path (stdout when empty)")
	cmd.Flags().StringVar(&metricsOut, "metrics-out", "", "write Prometheus textfile metrics to this path")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "maximum extractions in flight")
	cmd.Flags().IntVar(&determinismCheck, "determinism-check", 1, "extract each document N times and compare digests")
	cmd.Flags().Float64Var(&passingThreshold, "passing-threshold", 0, "minimum suite pass rate in [0,1]")
	cmd.Flags().StringVar(&timeout, "timeout", "", "per-extraction timeout, e.g. 30s (0 disables)")
	return cmd
}

func extractor(cfg config.Config, cfgPath, fixturesDir string, useMock bool) (extraction.Func, error) {
	if useMock {
		return extraction.NewMock(nil).WithFallback(extraction.SampleStatement()).Func(), nil
	}
	dir := fixturesDir
	if dir == "" && cfg.Fixtures.Dir != "" {
		dir = cfg.Fixtures.Dir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(filepath.Dir(cfgPath), dir)
		}
	}
	if dir == "" {
		return nil, fmt.Errorf("no extraction source: pass --fixtures or --mock, or set fixtures.dir")
	}
	f, err := extraction.NewFixtureDir(dir, cfg.Fixtures.CacheTTL)
	if err != nil {
		return nil, cliError{code: exitLoadFailure, err: err}
	}
	return f.Func(), nil
}

func writeSummary(stdout io.Writer, s types.SuiteSummary, format, outPath string) error {
	switch format {
	case "json":
		if outPath == "" {
			return json.NewEncoder(stdout).Encode(s)
		}
		if err := report.WriteJSON(outPath, s); err != nil {
			return err
		}
	case "md":
		if outPath == "" {
			_, err := io.WriteString(stdout, report.BuildMarkdown(s))
			return err
		}
		if err := report.WriteMarkdown(outPath, s); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported format %s", format)
	}
	fmt.Fprintln(stdout, outPath)
	return nil
}

func newValidateCommand() *cobra.Command {
	var recordPath, criteriaPath, cfgPath, format, outPath string
	var minConfidence, minFieldConfidence, maxErrorRate float64
	var required []string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate one recorded extraction against acceptance criteria",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if recordPath == "" {
				return fmt.Errorf("--record is required")
			}
			cfg, err := config.LoadOrDefault(cfgPath)
			if err != nil {
				return cliError{code: exitLoadFailure, err: err}
			}
			rec, err := extraction.LoadRecord(recordPath)
			if err != nil {
				return cliError{code: exitLoadFailure, err: err}
			}
			c := types.AcceptanceCriteria{
				MinOverallConfidence:    minConfidence,
				MinFieldConfidence:      minFieldConfidence,
				RequiredFields:          required,
				MaxTransactionErrorRate: maxErrorRate,
			}
			if criteriaPath != "" {
				if c, err = loadCriteria(criteriaPath); err != nil {
					return cliError{code: exitLoadFailure, err: err}
				}
			}

			res := acceptance.NewEngine(cfg).Validate(rec, c)
			title := filepath.Base(recordPath)
			switch format {
			case "json":
				if outPath == "" {
					err = json.NewEncoder(cmd.OutOrStdout()).Encode(res)
				} else {
					err = report.WriteJSON(outPath, res)
				}
			case "md":
				if outPath == "" {
					_, err = io.WriteString(cmd.OutOrStdout(), report.BuildValidationMarkdown(title, res))
				} else {
					err = report.WriteValidationMarkdown(outPath, title, res)
				}
			default:
				err = fmt.Errorf("unsupported format %s", format)
			}
			if err != nil {
				return err
			}
			if outPath != "" {
				fmt.Fprintln(cmd.OutOrStdout(), outPath)
			}
			if !res.IsValid {
				return cliError{code: exitRecordInvalid, err: fmt.Errorf("record %s failed validation", title)}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&recordPath, "record", "", "extraction record JSON")
	cmd.Flags().StringVar(&criteriaPath, "criteria", "", "acceptance criteria YAML/JSON (overrides criteria flags)")
	cmd.Flags().StringVar(&cfgPath, "config", config.DefaultPath, "config file (defaults apply when absent)")
	cmd.Flags().StringVar(&format, "format", "json", "output format: json or md")
	cmd.Flags().StringVar(&outPath, "out", "", "output path (stdout when empty)")
	cmd.Flags().Float64Var(&minConfidence, "min-confidence", 85, "minimum overall confidence")
	cmd.Flags().Float64Var(&minFieldConfidence, "min-field-confidence", 70, "minimum per-field confidence")
	cmd.Flags().Float64Var(&maxErrorRate, "max-error-rate", 0.1, "maximum share of low-confidence transactions")
	cmd.Flags().StringSliceVar(&required, "require", []string{
		types.FieldAccountHolderName, types.FieldStatementPeriod, types.FieldTransactions, types.FieldClosingBalance,
	}, "required fields")
	return cmd
}

// loadCriteria reads criteria written with the same keys a suite uses.
func loadCriteria(path string) (types.AcceptanceCriteria, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return types.AcceptanceCriteria{}, fmt.Errorf("read criteria %s: %w", path, err)
	}
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return types.AcceptanceCriteria{}, fmt.Errorf("parse criteria %s: %w", path, err)
	}
	normalized, err := json.Marshal(doc)
	if err != nil {
		return types.AcceptanceCriteria{}, fmt.Errorf("normalize criteria %s: %w", path, err)
	}
	dec := json.NewDecoder(bytes.NewReader(normalized))
	dec.DisallowUnknownFields()
	var c types.AcceptanceCriteria
	if err := dec.Decode(&c); err != nil {
		return types.AcceptanceCriteria{}, fmt.Errorf("decode criteria %s: %w", path, err)
	}
	return c, nil
}

func newReportCommand() *cobra.Command {
	var inPath, outPath string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate a markdown report from a run summary JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if inPath == "" || outPath == "" {
				return fmt.Errorf("--in and --out are required")
			}
			s, err := report.ReadSummary(inPath)
			if err != nil {
				return cliError{code: exitLoadFailure, err: err}
			}
			if err := report.WriteMarkdown(outPath, s); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), outPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "run summary json input")
	cmd.Flags().StringVar(&outPath, "out", "", "markdown output")
	return cmd
}

func parseDuration(raw string) (time.Duration, error) {
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid --timeout %q: %w", raw, err)
	}
	return d, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
