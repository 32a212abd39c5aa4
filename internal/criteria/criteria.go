// Package criteria validates an extraction record against externally
// supplied acceptance criteria and assembles the combined validation result.
package criteria

import (
	"fmt"
	"math"
	"strings"

	"github.com/ogulcanaydogan/extraction-acceptance/internal/consistency"
	"github.com/ogulcanaydogan/extraction-acceptance/pkg/types"
)

type Validator struct {
	consistency *consistency.Validator
	checks      map[string]FieldCheck
}

func New(cv *consistency.Validator) *Validator {
	return &Validator{consistency: cv, checks: DefaultFieldChecks()}
}

// Register adds or replaces the presence check for a required field name.
func (v *Validator) Register(field string, c FieldCheck) {
	v.checks[field] = c
}

// part is one concern's contribution to the validation result.
type part struct {
	fields   []types.FieldValidation
	warnings []types.Warning
	errors   []types.ValidationError
	reasons  []string
}

func (v *Validator) Validate(rec types.ExtractionRecord, c types.AcceptanceCriteria) types.ValidationResult {
	cons := v.consistency.Validate(rec)
	meets, confPart := overallConfidence(rec, c)
	hasRequired, reqPart := requiredFields(rec, c, v.checks)
	parts := []part{
		confPart,
		reqPart,
		{warnings: cons.Warnings, errors: cons.Errors},
		fieldConfidence(rec, c),
		transactionQuality(rec, c),
	}
	if !cons.Passed {
		parts = append(parts, part{reasons: []string{"internal consistency checks failed"}})
	}

	res := types.ValidationResult{
		MeetsConfidenceThreshold: meets,
		HasRequiredFields:        hasRequired,
		ConsistencyChecksPassed:  cons.Passed,
		FieldValidations:         []types.FieldValidation{},
		Warnings:                 []types.Warning{},
		Errors:                   []types.ValidationError{},
		HumanReviewReasons:       []string{},
	}
	for _, p := range parts {
		res.FieldValidations = append(res.FieldValidations, p.fields...)
		res.Warnings = append(res.Warnings, p.warnings...)
		res.Errors = append(res.Errors, p.errors...)
		res.HumanReviewReasons = append(res.HumanReviewReasons, p.reasons...)
	}
	// Low overall confidence routes to review but does not reject.
	res.IsValid = hasRequired && cons.Passed && !res.HasUnrecoverableErrors()
	res.RequiresHumanReview = !meets || !hasRequired || !cons.Passed || len(res.HumanReviewReasons) > 0
	return res
}

func overallConfidence(rec types.ExtractionRecord, c types.AcceptanceCriteria) (bool, part) {
	if rec.OverallConfidence >= c.MinOverallConfidence {
		return true, part{}
	}
	msg := fmt.Sprintf("overall confidence %.1f is below minimum %.1f", rec.OverallConfidence, c.MinOverallConfidence)
	return false, part{
		warnings: []types.Warning{{
			Code:       types.CodeLowOverallConfidence,
			Message:    msg,
			Suggestion: "review the source document quality or extraction settings",
		}},
		reasons: []string{msg},
	}
}

func requiredFields(rec types.ExtractionRecord, c types.AcceptanceCriteria, checks map[string]FieldCheck) (bool, part) {
	p := part{}
	missing := make([]string, 0)
	for _, name := range c.RequiredFields {
		check, ok := checks[name]
		if !ok {
			p.fields = append(p.fields, types.FieldValidation{
				Field:   name,
				IsValid: true,
				Message: fmt.Sprintf("no presence check registered for %q; treated as present", name),
			})
			continue
		}
		fv := check(rec)
		if fv.Field == "" {
			fv.Field = name
		}
		p.fields = append(p.fields, fv)
		if !fv.IsValid {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return true, p
	}
	msg := "missing required fields: " + strings.Join(missing, ", ")
	p.errors = append(p.errors, types.ValidationError{
		Code:        types.CodeMissingRequiredFields,
		Message:     msg,
		Recoverable: false,
	})
	p.reasons = append(p.reasons, msg)
	return false, p
}

type namedConfidence struct {
	name    string
	present bool
	conf    float64
}

func scannedFields(rec types.ExtractionRecord) []namedConfidence {
	text := func(name string, f types.TextField) namedConfidence {
		return namedConfidence{name, f.Present(), f.Confidence}
	}
	amount := func(name string, f types.AmountField) namedConfidence {
		return namedConfidence{name, f.Present(), f.Confidence}
	}
	return []namedConfidence{
		text("account.holder_name", rec.Account.HolderName),
		text("account.account_number_masked", rec.Account.NumberMasked),
		text("account.routing_number", rec.Account.RoutingNumber),
		text("account.bank_name", rec.Account.BankName),
		text("account.account_type", rec.Account.AccountType),
		text("statement_period.start_date", rec.Period.StartDate),
		text("statement_period.end_date", rec.Period.EndDate),
		text("statement_period.statement_date", rec.Period.StatementDate),
		amount("summary.opening_balance", rec.Summary.OpeningBalance),
		amount("summary.closing_balance", rec.Summary.ClosingBalance),
		amount("summary.total_credits", rec.Summary.TotalCredits),
		amount("summary.total_debits", rec.Summary.TotalDebits),
	}
}

func fieldConfidence(rec types.ExtractionRecord, c types.AcceptanceCriteria) part {
	low := make([]string, 0)
	for _, f := range scannedFields(rec) {
		if f.present && f.conf < c.MinFieldConfidence {
			low = append(low, f.name)
		}
	}
	if len(low) == 0 {
		return part{}
	}
	return part{warnings: []types.Warning{{
		Code:       types.CodeLowFieldConfidence,
		Message:    fmt.Sprintf("fields below confidence %.1f: %s", c.MinFieldConfidence, strings.Join(low, ", ")),
		Suggestion: "verify these fields against the source document",
	}}}
}

// TransactionErrorRate is the share of transactions with a low-confidence
// date, a missing date or a missing amount. A transaction can count more than
// once. An empty list has rate zero.
func TransactionErrorRate(txs []types.Transaction, minFieldConfidence float64) float64 {
	if len(txs) == 0 {
		return 0
	}
	var lowDate, missingDate, missingAmount int
	for _, tx := range txs {
		if !tx.Date.Present() {
			missingDate++
		} else if tx.Date.Confidence < minFieldConfidence {
			lowDate++
		}
		if !tx.Amount.Present() {
			missingAmount++
		}
	}
	return float64(lowDate+missingDate+missingAmount) / float64(len(txs))
}

func transactionQuality(rec types.ExtractionRecord, c types.AcceptanceCriteria) part {
	rate := TransactionErrorRate(rec.Transactions, c.MinFieldConfidence)
	fv := types.FieldValidation{
		Field:      types.FieldTransactionQuality,
		IsValid:    true,
		Confidence: math.Max(0, math.Min(100, (1-rate)*100)),
	}
	if rate <= c.MaxTransactionErrorRate {
		return part{fields: []types.FieldValidation{fv}}
	}
	msg := fmt.Sprintf("transaction error rate %.1f%% exceeds maximum %.1f%%", rate*100, c.MaxTransactionErrorRate*100)
	fv.IsValid = false
	fv.Message = msg
	return part{
		fields: []types.FieldValidation{fv},
		warnings: []types.Warning{{
			Code:       types.CodeHighTransactionErrorRate,
			Message:    msg,
			Field:      types.FieldTransactions,
			Suggestion: "route the transaction list for manual review",
		}},
		reasons: []string{msg},
	}
}
