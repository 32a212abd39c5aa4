// Package compare checks an extraction record against the ground truth of a
// single test case using tolerant matching.
package compare

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ogulcanaydogan/extraction-acceptance/pkg/types"
)

const DefaultAmountTolerance = 0.01

type Comparator struct {
	// BalanceTolerance applies when the expected result supplies balances
	// without its own tolerance.
	BalanceTolerance float64
}

func New(balanceTolerance float64) *Comparator {
	return &Comparator{BalanceTolerance: balanceTolerance}
}

func (c *Comparator) Compare(rec types.ExtractionRecord, exp types.ExpectedResult) types.ValidationResult {
	fields := make([]types.FieldValidation, 0)
	if exp.AccountHolderContains != "" {
		fields = append(fields, containsField("account_holder_name", rec.Account.HolderName, exp.AccountHolderContains))
	}
	if exp.BankName != "" {
		fields = append(fields, containsField("bank_name", rec.Account.BankName, exp.BankName))
	}
	if exp.TransactionCountMin != nil || exp.TransactionCountMax != nil {
		fields = append(fields, countField(len(rec.Transactions), exp.TransactionCountMin, exp.TransactionCountMax))
	}
	if exp.PeriodStartContains != "" {
		fields = append(fields, containsField("statement_period_start", rec.Period.StartDate, exp.PeriodStartContains))
	}
	if exp.PeriodEndContains != "" {
		fields = append(fields, containsField("statement_period_end", rec.Period.EndDate, exp.PeriodEndContains))
	}
	tol := c.BalanceTolerance
	if exp.BalanceTolerance != nil {
		tol = *exp.BalanceTolerance
	}
	if exp.OpeningBalance != nil {
		fields = append(fields, balanceField(types.FieldOpeningBalance, rec.Summary.OpeningBalance, *exp.OpeningBalance, tol))
	}
	if exp.ClosingBalance != nil {
		fields = append(fields, balanceField(types.FieldClosingBalance, rec.Summary.ClosingBalance, *exp.ClosingBalance, tol))
	}
	for i, sample := range exp.SampleTransactions {
		fields = append(fields, sampleField(i, sample, rec.Transactions))
	}

	allValid := true
	for _, f := range fields {
		allValid = allValid && f.IsValid
	}
	res := types.ValidationResult{
		IsValid:                  allValid,
		MeetsConfidenceThreshold: true,
		HasRequiredFields:        true,
		ConsistencyChecksPassed:  true,
		FieldValidations:         fields,
		Warnings:                 []types.Warning{},
		Errors:                   []types.ValidationError{},
		HumanReviewReasons:       []string{},
	}
	if !allValid {
		res.RequiresHumanReview = true
		res.HumanReviewReasons = append(res.HumanReviewReasons, "extracted data does not match expected values")
	}
	return res
}

func containsField(name string, actual types.TextField, want string) types.FieldValidation {
	fv := types.FieldValidation{
		Field:      name,
		IsValid:    strings.Contains(strings.ToLower(actual.Value), strings.ToLower(want)),
		Confidence: actual.Confidence,
	}
	if !fv.IsValid {
		fv.Message = fmt.Sprintf("expected %q to contain %q", actual.Value, want)
	}
	return fv
}

func countField(n int, min, max *int) types.FieldValidation {
	fv := types.FieldValidation{Field: "transaction_count", IsValid: true, Confidence: 100}
	switch {
	case min != nil && n < *min:
		fv.IsValid = false
		fv.Message = fmt.Sprintf("found %d transactions, expected at least %d", n, *min)
	case max != nil && n > *max:
		fv.IsValid = false
		fv.Message = fmt.Sprintf("found %d transactions, expected at most %d", n, *max)
	}
	return fv
}

func balanceField(name string, actual types.AmountField, want, tol float64) types.FieldValidation {
	fv := types.FieldValidation{Field: name, Confidence: actual.Confidence}
	if !actual.Present() {
		fv.Message = fmt.Sprintf("expected %.2f, %s not extracted", want, name)
		return fv
	}
	fv.IsValid = WithinTolerance(*actual.Value, want, tol)
	if !fv.IsValid {
		fv.Message = fmt.Sprintf("expected %.2f ± %.2f, got %.2f", want, tol, *actual.Value)
	}
	return fv
}

// WithinTolerance compares two amounts in decimal so that float
// representation error cannot push an exact-tolerance match outside it.
func WithinTolerance(actual, want, tol float64) bool {
	diff := decimal.NewFromFloat(actual).Sub(decimal.NewFromFloat(want)).Abs()
	return !diff.GreaterThan(decimal.NewFromFloat(tol))
}

func sampleField(i int, sample types.ExpectedTransaction, txs []types.Transaction) types.FieldValidation {
	fv := types.FieldValidation{Field: fmt.Sprintf("sample_transaction_%d", i+1)}
	for _, tx := range txs {
		if matchesSample(tx, sample) {
			fv.IsValid = true
			fv.Confidence = tx.CoreConfidence()
			return fv
		}
	}
	fv.Message = "no transaction matched " + describeSample(sample)
	return fv
}

func matchesSample(tx types.Transaction, s types.ExpectedTransaction) bool {
	if s.DateContains != "" && !strings.Contains(tx.Date.Value, s.DateContains) {
		return false
	}
	if s.DescriptionContains != "" &&
		!strings.Contains(strings.ToLower(tx.Description.Value), strings.ToLower(s.DescriptionContains)) {
		return false
	}
	if s.Amount != nil {
		if !tx.Amount.Present() || !WithinTolerance(*tx.Amount.Value, *s.Amount, sampleTolerance(s)) {
			return false
		}
	}
	return true
}

func sampleTolerance(s types.ExpectedTransaction) float64 {
	if s.AmountTolerance != nil {
		return *s.AmountTolerance
	}
	return DefaultAmountTolerance
}

func describeSample(s types.ExpectedTransaction) string {
	preds := make([]string, 0, 3)
	if s.DateContains != "" {
		preds = append(preds, fmt.Sprintf("date contains %q", s.DateContains))
	}
	if s.DescriptionContains != "" {
		preds = append(preds, fmt.Sprintf("description contains %q", s.DescriptionContains))
	}
	if s.Amount != nil {
		preds = append(preds, fmt.Sprintf("amount %.2f ± %.2f", *s.Amount, sampleTolerance(s)))
	}
	if len(preds) == 0 {
		return "{}"
	}
	return "{" + strings.Join(preds, ", ") + "}"
}
