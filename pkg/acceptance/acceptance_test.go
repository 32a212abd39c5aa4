package acceptance

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/ogulcanaydogan/extraction-acceptance/internal/metrics"
	"github.com/ogulcanaydogan/extraction-acceptance/pkg/types"
)

var now = time.Date(2024, 11, 20, 0, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

func criteriaFor() types.AcceptanceCriteria {
	return types.AcceptanceCriteria{
		MinOverallConfidence:    85,
		MinFieldConfidence:      70,
		RequiredFields:          []string{types.FieldTransactions, types.FieldClosingBalance},
		MaxTransactionErrorRate: 0.1,
	}
}

func TestRunSuiteWithMockExtractor(t *testing.T) {
	records := map[string]types.ExtractionRecord{}
	cases := make([]types.TestCase, 0, 10)
	for i := 1; i <= 10; i++ {
		loc := fmt.Sprintf("docs/%02d.pdf", i)
		if i != 4 {
			records[loc] = SampleStatement()
		}
		cases = append(cases, types.TestCase{
			ID:       fmt.Sprintf("case-%02d", i),
			Input:    types.TestInput{DocumentLocation: loc},
			Criteria: criteriaFor(),
		})
	}
	engine := NewEngine(DefaultConfig(), WithClock(clock))
	summary := engine.RunSuite(context.Background(), NewMockExtractor(records), cases)
	if summary.Total != 10 || len(summary.Results) != 10 || summary.Failed != 1 {
		t.Fatalf("total=%d results=%d failed=%d", summary.Total, len(summary.Results), summary.Failed)
	}
	bad := summary.Results[3]
	if !strings.Contains(bad.Error, "unknown document") {
		t.Fatalf("expected unknown document error, got %q", bad.Error)
	}
}

func TestPackageLevelEntryPoints(t *testing.T) {
	fn := NewMockExtractor(map[string]types.ExtractionRecord{"a.pdf": SampleStatement()})
	tc := types.TestCase{ID: "a", Input: types.TestInput{DocumentLocation: "a.pdf"}}
	res := RunSingleTest(context.Background(), tc, fn)
	if res.FinalState == types.StateCompletedError {
		t.Fatalf("unexpected extraction error %q", res.Error)
	}
	summary := RunSuite(context.Background(), fn, []types.TestCase{tc})
	if summary.Total != 1 || summary.RunID == "" {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestEngineIsIdempotent(t *testing.T) {
	engine := NewEngine(DefaultConfig(), WithClock(clock))
	fn := NewMockExtractor(map[string]types.ExtractionRecord{"a.pdf": SampleStatement()})
	tc := types.TestCase{ID: "a", Input: types.TestInput{DocumentLocation: "a.pdf"}, Criteria: criteriaFor()}
	first := engine.RunSingleTest(context.Background(), tc, fn)
	second := engine.RunSingleTest(context.Background(), tc, fn)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("repeated runs differ")
	}
}

func TestEngineUsesConfiguredAgeLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Consistency.MaxStatementAgeDays = 10
	engine := NewEngine(cfg, WithClock(clock))
	res := engine.Validate(SampleStatement(), criteriaFor())
	if !res.HasWarning(types.CodeStatementTooOld) {
		t.Fatalf("expected stale statement warning with a 10 day limit: %+v", res.Warnings)
	}
	if !res.IsValid {
		t.Fatal("age warning must not invalidate the record")
	}
}

func TestEngineCompare(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	res := engine.Compare(SampleStatement(), types.ExpectedResult{
		TransactionCountMin: types.Count(15),
		TransactionCountMax: types.Count(50),
	})
	if res.IsValid {
		t.Fatal("3 transactions should fail a 15-50 range")
	}
}

func TestEngineCompareInheritsConsistencyTolerance(t *testing.T) {
	exp := types.ExpectedResult{ClosingBalance: types.Amount(1195.27)}

	cfg := DefaultConfig()
	cfg.Consistency.BalanceTolerance = 0.05
	res := NewEngine(cfg).Compare(SampleStatement(), exp)
	if !res.IsValid {
		t.Fatalf("0.03 off should pass a 0.05 consistency tolerance: %+v", res.FieldValidations)
	}

	if res := NewEngine(DefaultConfig()).Compare(SampleStatement(), exp); res.IsValid {
		t.Fatal("0.03 off should fail the default 0.01 tolerance")
	}

	override := 0.02
	cfg.Comparison.BalanceTolerance = &override
	if res := NewEngine(cfg).Compare(SampleStatement(), exp); res.IsValid {
		t.Fatal("an explicit comparison tolerance wins over the consistency one")
	}
}

func TestEngineRecordsMetrics(t *testing.T) {
	m := metrics.New()
	engine := NewEngine(DefaultConfig(), WithClock(clock), WithMetrics(m))
	fn := func(context.Context, string) (*types.ExtractionRecord, error) { return nil, errors.New("down") }
	engine.RunSuite(context.Background(), fn, []types.TestCase{{ID: "x", Input: types.TestInput{DocumentLocation: "x.pdf"}}})
	if m.Registry() == nil {
		t.Fatal("expected registry")
	}
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatal(err)
	}
	if len(families) == 0 {
		t.Fatal("expected gathered metric families")
	}
}
