package criteria

import (
	"math"

	"github.com/ogulcanaydogan/extraction-acceptance/pkg/types"
)

// FieldCheck reports whether one required field is present in a record,
// along with that field's own confidence.
type FieldCheck func(rec types.ExtractionRecord) types.FieldValidation

// DefaultFieldChecks returns a fresh registry of the built-in presence checks.
func DefaultFieldChecks() map[string]FieldCheck {
	return map[string]FieldCheck{
		types.FieldAccountHolderName:   textCheck(types.FieldAccountHolderName, func(r types.ExtractionRecord) types.TextField { return r.Account.HolderName }),
		types.FieldAccountNumberMasked: textCheck(types.FieldAccountNumberMasked, func(r types.ExtractionRecord) types.TextField { return r.Account.NumberMasked }),
		types.FieldStatementPeriod:     checkStatementPeriod,
		types.FieldTransactions:        checkTransactions,
		types.FieldClosingBalance:      amountCheck(types.FieldClosingBalance, func(r types.ExtractionRecord) types.AmountField { return r.Summary.ClosingBalance }),
		types.FieldOpeningBalance:      amountCheck(types.FieldOpeningBalance, func(r types.ExtractionRecord) types.AmountField { return r.Summary.OpeningBalance }),
	}
}

func textCheck(name string, get func(types.ExtractionRecord) types.TextField) FieldCheck {
	return func(rec types.ExtractionRecord) types.FieldValidation {
		f := get(rec)
		fv := types.FieldValidation{Field: name, IsValid: f.Present(), Confidence: f.Confidence}
		if !fv.IsValid {
			fv.Message = name + " not found"
		}
		return fv
	}
}

func amountCheck(name string, get func(types.ExtractionRecord) types.AmountField) FieldCheck {
	return func(rec types.ExtractionRecord) types.FieldValidation {
		f := get(rec)
		fv := types.FieldValidation{Field: name, IsValid: f.Present(), Confidence: f.Confidence}
		if !fv.IsValid {
			fv.Message = name + " not found"
		}
		return fv
	}
}

func checkStatementPeriod(rec types.ExtractionRecord) types.FieldValidation {
	start, end := rec.Period.StartDate, rec.Period.EndDate
	fv := types.FieldValidation{
		Field:      types.FieldStatementPeriod,
		IsValid:    start.Present() && end.Present(),
		Confidence: math.Min(start.Confidence, end.Confidence),
	}
	if !fv.IsValid {
		fv.Message = "statement period requires both start and end dates"
	}
	return fv
}

func checkTransactions(rec types.ExtractionRecord) types.FieldValidation {
	fv := types.FieldValidation{Field: types.FieldTransactions}
	if len(rec.Transactions) == 0 {
		fv.Message = "no transactions found"
		return fv
	}
	var sum float64
	for _, tx := range rec.Transactions {
		sum += tx.CoreConfidence()
	}
	fv.IsValid = true
	fv.Confidence = sum / float64(len(rec.Transactions))
	return fv
}
