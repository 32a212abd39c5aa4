package types

import "time"

type TransactionType string

const (
	TransactionDebit   TransactionType = "debit"
	TransactionCredit  TransactionType = "credit"
	TransactionUnknown TransactionType = "unknown"
)

// TextField is an extracted string paired with the extractor's confidence
// (0-100). An empty Value means the field was not found.
type TextField struct {
	Value      string  `json:"value,omitempty"`
	Confidence float64 `json:"confidence"`
}

func (f TextField) Present() bool { return f.Value != "" }

// AmountField is an extracted monetary value. A nil Value means the amount
// was not found, which is distinct from a zero amount.
type AmountField struct {
	Value      *float64 `json:"value,omitempty"`
	Confidence float64  `json:"confidence"`
}

func (f AmountField) Present() bool { return f.Value != nil }

type TypeField struct {
	Value      TransactionType `json:"value,omitempty"`
	Confidence float64         `json:"confidence"`
}

type ExtractionRecord struct {
	ID                string        `json:"id"`
	ExtractedAt       time.Time     `json:"extracted_at"`
	SourceDocument    string        `json:"source_document"`
	OverallConfidence float64       `json:"overall_confidence"`
	Account           Account       `json:"account"`
	Period            Period        `json:"statement_period"`
	Transactions      []Transaction `json:"transactions"`
	Summary           Summary       `json:"summary"`
}

type Account struct {
	HolderName    TextField `json:"holder_name"`
	NumberMasked  TextField `json:"account_number_masked"`
	RoutingNumber TextField `json:"routing_number"`
	BankName      TextField `json:"bank_name"`
	AccountType   TextField `json:"account_type"`
}

type Period struct {
	StartDate     TextField `json:"start_date"`
	EndDate       TextField `json:"end_date"`
	StatementDate TextField `json:"statement_date"`
}

type Transaction struct {
	Date           TextField   `json:"date"`
	Description    TextField   `json:"description"`
	Amount         AmountField `json:"amount"`
	Type           TypeField   `json:"type"`
	RunningBalance AmountField `json:"running_balance"`
	Reference      TextField   `json:"reference"`
	Category       TextField   `json:"category"`
	Merchant       TextField   `json:"merchant"`

	// Positional metadata for audit trails only.
	SourcePage int `json:"source_page,omitempty"`
	SourceRow  int `json:"source_row,omitempty"`
}

// CoreConfidence is the mean of the date, description, amount and type
// confidences.
func (t Transaction) CoreConfidence() float64 {
	return (t.Date.Confidence + t.Description.Confidence + t.Amount.Confidence + t.Type.Confidence) / 4
}

type Summary struct {
	OpeningBalance   AmountField `json:"opening_balance"`
	ClosingBalance   AmountField `json:"closing_balance"`
	TotalCredits     AmountField `json:"total_credits"`
	TotalDebits      AmountField `json:"total_debits"`
	TransactionCount int         `json:"transaction_count"`
}

// Amount returns a pointer suitable for AmountField.Value.
func Amount(v float64) *float64 { return &v }
