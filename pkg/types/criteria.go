package types

// AcceptanceCriteria are the per-test-case thresholds a record must satisfy
// to be usable without review.
type AcceptanceCriteria struct {
	MinOverallConfidence    float64  `json:"min_overall_confidence"`
	MinFieldConfidence      float64  `json:"min_field_confidence"`
	MaxExtractionTimeMs     int64    `json:"max_extraction_time_ms"`
	RequiredFields          []string `json:"required_fields"`
	MaxTransactionErrorRate float64  `json:"max_transaction_error_rate"`
}

const (
	FieldAccountHolderName   = "account_holder_name"
	FieldAccountNumberMasked = "account_number_masked"
	FieldStatementPeriod     = "statement_period"
	FieldTransactions        = "transactions"
	FieldClosingBalance      = "closing_balance"
	FieldOpeningBalance      = "opening_balance"
	FieldTransactionQuality  = "transaction_quality"
)

// ExpectedResult is the ground truth for one test case. Every member is
// optional; zero values mean "not checked".
type ExpectedResult struct {
	AccountHolderContains string                `json:"account_holder_contains,omitempty"`
	BankName              string                `json:"bank_name,omitempty"`
	TransactionCountMin   *int                  `json:"transaction_count_min,omitempty"`
	TransactionCountMax   *int                  `json:"transaction_count_max,omitempty"`
	PeriodStartContains   string                `json:"statement_period_start_contains,omitempty"`
	PeriodEndContains     string                `json:"statement_period_end_contains,omitempty"`
	SampleTransactions    []ExpectedTransaction `json:"sample_transactions,omitempty"`
	OpeningBalance        *float64              `json:"opening_balance,omitempty"`
	ClosingBalance        *float64              `json:"closing_balance,omitempty"`
	BalanceTolerance      *float64              `json:"balance_tolerance,omitempty"`
}

// ExpectedTransaction is a conjunction of optional predicates; a record
// matches it when any single transaction satisfies all supplied predicates.
type ExpectedTransaction struct {
	DateContains        string   `json:"date_contains,omitempty"`
	DescriptionContains string   `json:"description_contains,omitempty"`
	Amount              *float64 `json:"amount,omitempty"`
	AmountTolerance     *float64 `json:"amount_tolerance,omitempty"`
}

// Count returns a pointer suitable for the transaction count bounds.
func Count(n int) *int { return &n }
