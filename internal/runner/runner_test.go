package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/ogulcanaydogan/extraction-acceptance/internal/compare"
	"github.com/ogulcanaydogan/extraction-acceptance/internal/consistency"
	"github.com/ogulcanaydogan/extraction-acceptance/internal/criteria"
	"github.com/ogulcanaydogan/extraction-acceptance/internal/extraction"
	"github.com/ogulcanaydogan/extraction-acceptance/internal/logger"
	"github.com/ogulcanaydogan/extraction-acceptance/internal/metrics"
	"github.com/ogulcanaydogan/extraction-acceptance/pkg/types"
)

var fixedNow = time.Date(2024, 11, 15, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func newRunner(opts Options) *Runner {
	if opts.Clock == nil {
		opts.Clock = fixedClock
	}
	cv := criteria.New(consistency.New(consistency.DefaultConfig(), consistency.WithClock(opts.Clock)))
	return New(cv, compare.New(compare.DefaultAmountTolerance), opts)
}

func acceptance() types.AcceptanceCriteria {
	return types.AcceptanceCriteria{
		MinOverallConfidence:    85,
		MinFieldConfidence:      70,
		MaxExtractionTimeMs:     30000,
		RequiredFields:          []string{types.FieldAccountHolderName, types.FieldTransactions, types.FieldClosingBalance},
		MaxTransactionErrorRate: 0.1,
	}
}

func testCase(id string) types.TestCase {
	return types.TestCase{
		ID:    id,
		Name:  "statement " + id,
		Input: types.TestInput{DocumentLocation: id + ".pdf"},
		Expected: types.ExpectedResult{
			AccountHolderContains: "Doe",
			TransactionCountMin:   types.Count(1),
			TransactionCountMax:   types.Count(10),
			SampleTransactions: []types.ExpectedTransaction{{
				DateContains:        "2024-10",
				DescriptionContains: "Coffee",
				Amount:              types.Amount(4.75),
				AmountTolerance:     types.Amount(0.02),
			}},
		},
		Criteria: acceptance(),
	}
}

func tenCases() []types.TestCase {
	cases := make([]types.TestCase, 10)
	for i := range cases {
		cases[i] = testCase(fmt.Sprintf("tc-%02d", i+1))
	}
	return cases
}

func TestRunSinglePass(t *testing.T) {
	r := newRunner(DefaultOptions())
	mock := extraction.NewMock(nil).WithFallback(extraction.SampleStatement())
	res := r.RunSingle(context.Background(), testCase("tc-01"), mock.Func())
	if !res.Passed || res.FinalState != types.StateCompletedPass {
		t.Fatalf("expected pass, got state=%s crit=%+v exp=%+v", res.FinalState, res.CriteriaValidation, res.ExpectedValidation)
	}
	if !strings.HasPrefix(res.RecordDigest, "sha256:") {
		t.Fatalf("missing record digest: %q", res.RecordDigest)
	}
	if res.Error != "" {
		t.Fatalf("unexpected error %q", res.Error)
	}
}

func TestRunSingleExpectedMismatchFails(t *testing.T) {
	r := newRunner(DefaultOptions())
	mock := extraction.NewMock(nil).WithFallback(extraction.SampleStatement())
	tc := testCase("tc-01")
	tc.Expected.TransactionCountMin = types.Count(15)
	tc.Expected.TransactionCountMax = types.Count(50)
	res := r.RunSingle(context.Background(), tc, mock.Func())
	if res.Passed || res.FinalState != types.StateCompletedFail {
		t.Fatalf("expected completed_fail, got %s", res.FinalState)
	}
	if !res.CriteriaValidation.IsValid {
		t.Fatal("criteria should still pass")
	}
	fv, ok := res.ExpectedValidation.Field("transaction_count")
	if !ok || fv.IsValid {
		t.Fatalf("expected failing transaction_count, got %+v", fv)
	}
}

func TestRunSingleExtractionError(t *testing.T) {
	r := newRunner(DefaultOptions())
	mock := extraction.NewMock(nil).WithFailure("tc-01.pdf", errors.New("upstream 503"))
	res := r.RunSingle(context.Background(), testCase("tc-01"), mock.Func())
	if res.Passed || res.FinalState != types.StateCompletedError {
		t.Fatalf("expected completed_error, got %s", res.FinalState)
	}
	if res.Error != "upstream 503" {
		t.Fatalf("error = %q", res.Error)
	}
	crit := res.CriteriaValidation
	if !crit.HasError(types.CodeExtractionError) || !crit.RequiresHumanReview || !crit.HasUnrecoverableErrors() {
		t.Fatalf("expected non-recoverable EXTRACTION_ERROR with review, got %+v", crit)
	}
	if res.RecordDigest != "" {
		t.Fatal("failed extraction should have no digest")
	}
}

func TestRunSingleTimeout(t *testing.T) {
	opts := DefaultOptions()
	opts.ExtractionTimeout = 20 * time.Millisecond
	r := newRunner(opts)
	mock := extraction.NewMock(nil).WithFallback(extraction.SampleStatement()).WithDelay(time.Minute)
	res := r.RunSingle(context.Background(), testCase("tc-01"), mock.Func())
	if res.FinalState != types.StateCompletedError || !strings.Contains(res.Error, "timed out") {
		t.Fatalf("expected timeout error, got state=%s err=%q", res.FinalState, res.Error)
	}
	if !res.CriteriaValidation.RequiresHumanReview {
		t.Fatal("timeout must require human review")
	}
}

func TestRunSinglePanic(t *testing.T) {
	r := newRunner(DefaultOptions())
	fn := func(context.Context, string) (*types.ExtractionRecord, error) { panic("nil page") }
	res := r.RunSingle(context.Background(), testCase("tc-01"), fn)
	if res.FinalState != types.StateCompletedError || !strings.Contains(res.Error, "nil page") {
		t.Fatalf("expected recovered panic, got state=%s err=%q", res.FinalState, res.Error)
	}
}

func TestRunSingleIsIdempotent(t *testing.T) {
	r := newRunner(DefaultOptions())
	mock := extraction.NewMock(nil).WithFallback(extraction.SampleStatement())
	tc := testCase("tc-01")
	a := r.RunSingle(context.Background(), tc, mock.Func())
	b := r.RunSingle(context.Background(), tc, mock.Func())
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("results differ:\n%+v\n%+v", a, b)
	}
}

func TestRunSuiteOneRejection(t *testing.T) {
	r := newRunner(DefaultOptions())
	mock := extraction.NewMock(nil).
		WithFallback(extraction.SampleStatement()).
		WithFailure("tc-07.pdf", errors.New("document unreadable"))
	summary := r.RunSuite(context.Background(), mock.Func(), tenCases())

	if summary.Total != 10 || len(summary.Results) != 10 {
		t.Fatalf("total=%d results=%d", summary.Total, len(summary.Results))
	}
	if summary.Failed < 1 || summary.Passed != 9 || summary.Skipped != 0 {
		t.Fatalf("passed=%d failed=%d skipped=%d", summary.Passed, summary.Failed, summary.Skipped)
	}
	if summary.PassRate != 0.9 {
		t.Fatalf("pass rate = %v", summary.PassRate)
	}
	for i, res := range summary.Results {
		if want := fmt.Sprintf("tc-%02d", i+1); res.TestCase.ID != want {
			t.Fatalf("result %d is %s, want %s", i, res.TestCase.ID, want)
		}
	}
	failed := summary.Results[6]
	if failed.Passed || failed.Error != "document unreadable" {
		t.Fatalf("unexpected failed result %+v", failed)
	}
	if summary.RunID == "" {
		t.Fatal("missing run id")
	}
	if !containsSubstring(summary.Recommendations, "extraction call errored") {
		t.Fatalf("expected extraction-error recommendation, got %v", summary.Recommendations)
	}
}

func TestRunSuiteBoundsConcurrency(t *testing.T) {
	opts := DefaultOptions()
	opts.Concurrency = 2
	r := newRunner(opts)
	var inFlight, peak atomic.Int32
	rec := extraction.SampleStatement()
	fn := func(context.Context, string) (*types.ExtractionRecord, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		out := rec
		return &out, nil
	}
	summary := r.RunSuite(context.Background(), fn, tenCases())
	if summary.Passed != 10 {
		t.Fatalf("passed = %d", summary.Passed)
	}
	if peak.Load() > 2 {
		t.Fatalf("peak concurrency %d exceeds limit", peak.Load())
	}
}

func TestRunSuiteCancelledBeforeStart(t *testing.T) {
	r := newRunner(DefaultOptions())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	mock := extraction.NewMock(nil).WithFallback(extraction.SampleStatement())
	summary := r.RunSuite(ctx, mock.Func(), tenCases())
	if summary.Total != 10 || summary.Skipped != 10 || len(summary.Results) != 0 {
		t.Fatalf("total=%d skipped=%d results=%d", summary.Total, summary.Skipped, len(summary.Results))
	}
	if summary.PassRate != 0 {
		t.Fatalf("pass rate = %v", summary.PassRate)
	}
}

func TestRunSuiteCancelledMidway(t *testing.T) {
	opts := DefaultOptions()
	opts.Concurrency = 1
	r := newRunner(opts)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rec := extraction.SampleStatement()
	fn := func(context.Context, string) (*types.ExtractionRecord, error) {
		cancel()
		out := rec
		return &out, nil
	}
	summary := r.RunSuite(ctx, fn, tenCases())
	if len(summary.Results) != 1 || summary.Skipped != 9 {
		t.Fatalf("results=%d skipped=%d", len(summary.Results), summary.Skipped)
	}
	if summary.Results[0].TestCase.ID != "tc-01" {
		t.Fatalf("unexpected completed case %s", summary.Results[0].TestCase.ID)
	}
}

func TestRunSuiteEmpty(t *testing.T) {
	r := newRunner(DefaultOptions())
	summary := r.RunSuite(context.Background(), extraction.NewMock(nil).Func(), nil)
	if summary.Total != 0 || summary.PassRate != 0 || summary.Results == nil {
		t.Fatalf("unexpected empty summary %+v", summary)
	}
}

func TestDeterminismCheckFlagsDrift(t *testing.T) {
	opts := DefaultOptions()
	opts.DeterminismCheck = 3
	r := newRunner(opts)
	var calls atomic.Int32
	fn := func(context.Context, string) (*types.ExtractionRecord, error) {
		rec := extraction.SampleStatement()
		rec.OverallConfidence = 90 + float64(calls.Add(1))
		return &rec, nil
	}
	res := r.RunSingle(context.Background(), testCase("tc-01"), fn)
	if !res.CriteriaValidation.HasWarning(types.CodeNondeterministicExtraction) {
		t.Fatalf("expected nondeterminism warning, got %+v", res.CriteriaValidation.Warnings)
	}
	if !res.CriteriaValidation.RequiresHumanReview {
		t.Fatal("nondeterminism should route to review")
	}
	if !res.Passed {
		t.Fatal("nondeterminism is a warning and should not fail the test")
	}
	if calls.Load() != 2 {
		t.Fatalf("expected to stop at first drift, calls=%d", calls.Load())
	}
}

func TestDeterminismCheckStableExtraction(t *testing.T) {
	opts := DefaultOptions()
	opts.DeterminismCheck = 3
	r := newRunner(opts)
	fn := func(context.Context, string) (*types.ExtractionRecord, error) {
		rec := extraction.SampleStatement()
		// Nonces differ on every call and must be ignored.
		rec.ID = fmt.Sprintf("run-%d", time.Now().UnixNano())
		rec.ExtractedAt = time.Now()
		return &rec, nil
	}
	res := r.RunSingle(context.Background(), testCase("tc-01"), fn)
	if res.CriteriaValidation.HasWarning(types.CodeNondeterministicExtraction) {
		t.Fatal("stable extraction flagged as nondeterministic")
	}
}

func TestRunSuiteRecordsMetricsAndLogs(t *testing.T) {
	buf := &bytes.Buffer{}
	log := logger.NewWithWriter(buf, "debug")
	opts := DefaultOptions()
	opts.Logger = &log
	opts.Metrics = metrics.New()
	opts.Concurrency = 1
	r := newRunner(opts)
	mock := extraction.NewMock(nil).
		WithFallback(extraction.SampleStatement()).
		WithFailure("tc-02.pdf", errors.New("boom"))
	r.RunSuite(context.Background(), mock.Func(), tenCases()[:3])

	m := opts.Metrics
	if got := testutil.ToFloat64(m.TestsTotal.WithLabelValues(types.StateCompletedPass)); got != 2 {
		t.Fatalf("pass count = %v", got)
	}
	if got := testutil.ToFloat64(m.TestsTotal.WithLabelValues(types.StateCompletedError)); got != 1 {
		t.Fatalf("error count = %v", got)
	}
	if got := testutil.ToFloat64(m.HumanReviewTotal); got != 1 {
		t.Fatalf("human review count = %v", got)
	}
	for _, want := range []string{`"suite completed"`, `"test_id":"tc-02"`, `"state":"extracting"`} {
		if !strings.Contains(buf.String(), want) {
			t.Fatalf("log output missing %s:\n%s", want, buf.String())
		}
	}
}

func TestRunSuiteUsesContextLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := logger.WithContext(context.Background(), logger.NewWithWriter(buf, "info"))
	r := newRunner(DefaultOptions())
	r.RunSuite(ctx, extraction.NewMock(nil).WithFallback(extraction.SampleStatement()).Func(), tenCases()[:1])
	if !strings.Contains(buf.String(), "suite completed") {
		t.Fatalf("expected context logger output, got %q", buf.String())
	}
}

func containsSubstring(list []string, sub string) bool {
	for _, s := range list {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
