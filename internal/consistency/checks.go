package consistency

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ogulcanaydogan/extraction-acceptance/pkg/types"
)

// ReplayClosingBalance rebuilds the closing balance from the opening balance
// and the typed transactions, rounded to two places. Transactions typed
// unknown or without an amount contribute nothing.
func ReplayClosingBalance(opening float64, txs []types.Transaction) decimal.Decimal {
	bal := decimal.NewFromFloat(opening)
	for _, tx := range txs {
		if tx.Amount.Value == nil {
			continue
		}
		amt := decimal.NewFromFloat(*tx.Amount.Value)
		switch tx.Type.Value {
		case types.TransactionCredit:
			bal = bal.Add(amt)
		case types.TransactionDebit:
			bal = bal.Sub(amt)
		}
	}
	return bal.Round(2)
}

func checkBalance(rec types.ExtractionRecord, cfg Config, _ time.Time) finding {
	opening, closing := rec.Summary.OpeningBalance, rec.Summary.ClosingBalance
	if !opening.Present() || !closing.Present() || len(rec.Transactions) == 0 {
		return finding{}
	}
	replayed := ReplayClosingBalance(*opening.Value, rec.Transactions)
	extracted := decimal.NewFromFloat(*closing.Value)
	diff := replayed.Sub(extracted).Abs()
	if !diff.GreaterThan(decimal.NewFromFloat(cfg.BalanceTolerance)) {
		return finding{}
	}
	w := types.Warning{
		Code: types.CodeBalanceMismatch,
		Message: fmt.Sprintf("calculated closing balance %s does not match extracted %s (difference %s)",
			replayed.StringFixed(2), extracted.StringFixed(2), diff.StringFixed(2)),
		Field:      types.FieldClosingBalance,
		Suggestion: "check for missed or misclassified transactions",
	}
	return finding{
		failed:   diff.GreaterThan(decimal.NewFromFloat(cfg.BalanceHardFailThreshold)),
		warnings: []types.Warning{w},
	}
}

func checkDateRange(rec types.ExtractionRecord, _ Config, _ time.Time) finding {
	out := finding{}
	start, startOK := periodDate(rec.Period.StartDate, "statement_period.start_date", &out)
	end, endOK := periodDate(rec.Period.EndDate, "statement_period.end_date", &out)
	if startOK && endOK && start.After(end) {
		out.failed = true
		out.errors = append(out.errors, types.ValidationError{
			Code: types.CodeInvalidDateRange,
			Message: fmt.Sprintf("statement start date %s is after end date %s",
				rec.Period.StartDate.Value, rec.Period.EndDate.Value),
			Field:       types.FieldStatementPeriod,
			Recoverable: false,
		})
	}
	return out
}

// periodDate parses a period date, adding an UNPARSEABLE_DATE warning to out
// when the value is present but not a date.
func periodDate(f types.TextField, name string, out *finding) (time.Time, bool) {
	if !f.Present() {
		return time.Time{}, false
	}
	t, ok := types.ParseDay(f.Value)
	if !ok {
		out.warnings = append(out.warnings, types.Warning{
			Code:       types.CodeUnparseableDate,
			Message:    fmt.Sprintf("%s %q is not a recognised date", name, f.Value),
			Field:      name,
			Suggestion: "verify the statement period manually",
		})
	}
	return t, ok
}

func checkStatementAge(rec types.ExtractionRecord, cfg Config, now time.Time) finding {
	end, ok := types.ParseDay(rec.Period.EndDate.Value)
	if !ok || cfg.MaxStatementAgeDays <= 0 {
		return finding{}
	}
	age := now.Sub(end)
	if age <= time.Duration(cfg.MaxStatementAgeDays)*24*time.Hour {
		return finding{}
	}
	return finding{warnings: []types.Warning{{
		Code: types.CodeStatementTooOld,
		Message: fmt.Sprintf("statement ended %s, %d days ago (limit %d)",
			rec.Period.EndDate.Value, int(age.Hours()/24), cfg.MaxStatementAgeDays),
		Field:      "statement_period.end_date",
		Suggestion: "request a more recent statement",
	}}}
}

func checkTransactionsInPeriod(rec types.ExtractionRecord, _ Config, _ time.Time) finding {
	start, okStart := types.ParseDay(rec.Period.StartDate.Value)
	end, okEnd := types.ParseDay(rec.Period.EndDate.Value)
	if !okStart || !okEnd {
		return finding{}
	}
	outside := 0
	for _, tx := range rec.Transactions {
		d, ok := types.ParseDay(tx.Date.Value)
		if !ok {
			continue
		}
		if d.Before(start) || d.After(end) {
			outside++
		}
	}
	if outside == 0 {
		return finding{}
	}
	return finding{warnings: []types.Warning{{
		Code:       types.CodeTransactionsOutsidePeriod,
		Message:    fmt.Sprintf("%d transaction(s) dated outside the statement period", outside),
		Field:      types.FieldTransactions,
		Suggestion: "confirm the statement period and transaction dates",
	}}}
}
