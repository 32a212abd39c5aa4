package types

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestParseDate_Layouts(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2024-10-03", "2024-10-03"},
		{"2024-10-03T12:00:00Z", "2024-10-03"},
		{"10/03/2024", "2024-10-03"},
		{"03 Oct 2024", "2024-10-03"},
		{"  2024-10-03 ", "2024-10-03"},
	}
	for _, tt := range tests {
		got, ok := ParseDate(tt.in)
		if !ok {
			t.Errorf("ParseDate(%q) failed", tt.in)
			continue
		}
		if got.Format("2006-01-02") != tt.want {
			t.Errorf("ParseDate(%q) = %s, want %s", tt.in, got.Format("2006-01-02"), tt.want)
		}
	}
}

func TestParseDate_Rejects(t *testing.T) {
	for _, in := range []string{"", "   ", "yesterday", "2024-13-40"} {
		if _, ok := ParseDate(in); ok {
			t.Errorf("ParseDate(%q) should fail", in)
		}
	}
}

func TestParseDay_DropsTimeOfDay(t *testing.T) {
	for _, in := range []string{"2024-10-31T15:00:00Z", "2024-10-31T23:30:00-05:00", "2024-10-31"} {
		got, ok := ParseDay(in)
		if !ok {
			t.Fatalf("ParseDay(%q) failed", in)
		}
		if want := time.Date(2024, 10, 31, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
			t.Errorf("ParseDay(%q) = %s, want %s", in, got, want)
		}
	}
	if _, ok := ParseDay("not a date"); ok {
		t.Error("ParseDay should reject non-dates")
	}
}

func TestAmountFieldPresence(t *testing.T) {
	var missing AmountField
	if missing.Present() {
		t.Error("nil amount should not be present")
	}
	zero := AmountField{Value: Amount(0)}
	if !zero.Present() {
		t.Error("zero amount should be present")
	}
}

func TestTransactionCoreConfidence(t *testing.T) {
	tx := Transaction{
		Date:        TextField{Value: "2024-10-03", Confidence: 80},
		Description: TextField{Value: "Coffee", Confidence: 90},
		Amount:      AmountField{Value: Amount(4.75), Confidence: 100},
		Type:        TypeField{Value: TransactionDebit, Confidence: 70},
		Reference:   TextField{Confidence: 0},
	}
	if got := tx.CoreConfidence(); got != 85 {
		t.Fatalf("core confidence = %v, want 85", got)
	}
}

func TestExtractionFailure(t *testing.T) {
	r := ExtractionFailure("timeout")
	if r.IsValid || r.MeetsConfidenceThreshold || r.HasRequiredFields || r.ConsistencyChecksPassed {
		t.Fatal("extraction failure must not report any passing flag")
	}
	if !r.RequiresHumanReview {
		t.Fatal("extraction failure must require review")
	}
	if !r.HasError(CodeExtractionError) || !r.HasUnrecoverableErrors() {
		t.Fatal("expected non-recoverable EXTRACTION_ERROR")
	}
	if len(r.HumanReviewReasons) != 1 || !strings.Contains(r.HumanReviewReasons[0], "timeout") {
		t.Fatalf("unexpected reasons: %v", r.HumanReviewReasons)
	}
}

func TestValidationResultLookups(t *testing.T) {
	r := ValidationResult{
		FieldValidations: []FieldValidation{{Field: FieldTransactions, IsValid: true, Confidence: 90}},
		Warnings:         []Warning{{Code: CodeBalanceMismatch}},
		Errors:           []ValidationError{{Code: CodeInvalidDateRange, Recoverable: true}},
	}
	if !r.HasWarning(CodeBalanceMismatch) || r.HasWarning(CodeStatementTooOld) {
		t.Error("HasWarning mismatch")
	}
	if r.HasUnrecoverableErrors() {
		t.Error("recoverable error reported as unrecoverable")
	}
	if f, ok := r.Field(FieldTransactions); !ok || f.Confidence != 90 {
		t.Errorf("Field lookup = %+v, %v", f, ok)
	}
	if _, ok := r.Field("nope"); ok {
		t.Error("unexpected field")
	}
}

func TestExtractionRecordJSONShape(t *testing.T) {
	rec := ExtractionRecord{
		ID:                "rec-1",
		SourceDocument:    "statements/oct.pdf",
		OverallConfidence: 92,
		Summary: Summary{
			OpeningBalance: AmountField{Value: Amount(1000), Confidence: 95},
			ClosingBalance: AmountField{Confidence: 10},
		},
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatal(err)
	}
	summary := m["summary"].(map[string]any)
	closing := summary["closing_balance"].(map[string]any)
	if _, ok := closing["value"]; ok {
		t.Error("absent amount should omit value")
	}
	if closing["confidence"].(float64) != 10 {
		t.Error("confidence must be kept for absent value")
	}
	if _, ok := m["statement_period"]; !ok {
		t.Error("expected statement_period key")
	}
}
