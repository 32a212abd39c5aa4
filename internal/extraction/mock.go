package extraction

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ogulcanaydogan/extraction-acceptance/pkg/types"
)

// Mock is a deterministic in-memory extraction service keyed by document
// location. Records without an ID get a name-based UUID derived from the
// location, so repeated calls return identical records.
type Mock struct {
	records  map[string]types.ExtractionRecord
	failures map[string]error
	fallback *types.ExtractionRecord
	delay    time.Duration

	mu    sync.Mutex
	calls map[string]int
}

func NewMock(records map[string]types.ExtractionRecord) *Mock {
	m := &Mock{
		records:  make(map[string]types.ExtractionRecord, len(records)),
		failures: map[string]error{},
		calls:    map[string]int{},
	}
	for loc, rec := range records {
		m.records[loc] = rec
	}
	return m
}

// WithFailure makes every call for location fail with err.
func (m *Mock) WithFailure(location string, err error) *Mock {
	m.failures[location] = err
	return m
}

// WithFallback serves rec for locations that have no record of their own.
func (m *Mock) WithFallback(rec types.ExtractionRecord) *Mock {
	m.fallback = &rec
	return m
}

// WithDelay simulates extraction latency. The delay honours cancellation.
func (m *Mock) WithDelay(d time.Duration) *Mock {
	m.delay = d
	return m
}

func (m *Mock) Func() Func { return m.Extract }

func (m *Mock) Calls(location string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[location]
}

func (m *Mock) Extract(ctx context.Context, location string) (*types.ExtractionRecord, error) {
	m.mu.Lock()
	m.calls[location]++
	m.mu.Unlock()

	if m.delay > 0 {
		timer := time.NewTimer(m.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	if err, ok := m.failures[location]; ok {
		return nil, err
	}
	rec, ok := m.records[location]
	if !ok {
		if m.fallback == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownDocument, location)
		}
		rec = *m.fallback
	}
	out := cloneRecord(rec)
	if out.ID == "" {
		out.ID = uuid.NewSHA1(uuid.NameSpaceURL, []byte(location)).String()
	}
	if out.SourceDocument == "" {
		out.SourceDocument = location
	}
	return out, nil
}

// SampleStatement returns a small, internally consistent checking-account
// statement dated October 2024: opening 1000.00, one 500.00 credit, one
// 300.00 debit and one 4.76 debit, closing 1195.24.
func SampleStatement() types.ExtractionRecord {
	tx := func(date, desc string, amount float64, kind types.TransactionType, balance float64) types.Transaction {
		return types.Transaction{
			Date:           types.TextField{Value: date, Confidence: 96},
			Description:    types.TextField{Value: desc, Confidence: 94},
			Amount:         types.AmountField{Value: types.Amount(amount), Confidence: 98},
			Type:           types.TypeField{Value: kind, Confidence: 92},
			RunningBalance: types.AmountField{Value: types.Amount(balance), Confidence: 90},
		}
	}
	return types.ExtractionRecord{
		ExtractedAt:       time.Date(2024, 11, 2, 9, 0, 0, 0, time.UTC),
		OverallConfidence: 93,
		Account: types.Account{
			HolderName:    types.TextField{Value: "Jane Q. Doe", Confidence: 97},
			NumberMasked:  types.TextField{Value: "****4821", Confidence: 95},
			RoutingNumber: types.TextField{Value: "021000021", Confidence: 91},
			BankName:      types.TextField{Value: "First Harbor Bank", Confidence: 96},
			AccountType:   types.TextField{Value: "checking", Confidence: 88},
		},
		Period: types.Period{
			StartDate:     types.TextField{Value: "2024-10-01", Confidence: 95},
			EndDate:       types.TextField{Value: "2024-10-31", Confidence: 95},
			StatementDate: types.TextField{Value: "2024-11-01", Confidence: 93},
		},
		Transactions: []types.Transaction{
			tx("2024-10-01", "Payroll Deposit ACME Corp", 500.00, types.TransactionCredit, 1500.00),
			tx("2024-10-03", "Blue Bottle Coffee", 4.76, types.TransactionDebit, 1495.24),
			tx("2024-10-05", "Rent Payment", 300.00, types.TransactionDebit, 1195.24),
		},
		Summary: types.Summary{
			OpeningBalance:   types.AmountField{Value: types.Amount(1000.00), Confidence: 97},
			ClosingBalance:   types.AmountField{Value: types.Amount(1195.24), Confidence: 97},
			TotalCredits:     types.AmountField{Value: types.Amount(500.00), Confidence: 90},
			TotalDebits:      types.AmountField{Value: types.Amount(304.76), Confidence: 90},
			TransactionCount: 3,
		},
	}
}
