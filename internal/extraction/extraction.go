package extraction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ogulcanaydogan/extraction-acceptance/pkg/types"
)

// Func is the sole integration point with a document-extraction service. It
// turns a document location into a populated record or fails.
type Func func(ctx context.Context, documentLocation string) (*types.ExtractionRecord, error)

var (
	ErrNilRecord       = errors.New("extraction returned no record")
	ErrUnknownDocument = errors.New("unknown document")
)

// PanicError carries the value recovered from a panicking extraction call.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string { return fmt.Sprintf("extraction panicked: %v", e.Value) }

// Outcome is the result of one extraction call. Exactly one of Record and Err
// is set.
type Outcome struct {
	Record *types.ExtractionRecord
	Err    error
}

func (o Outcome) OK() bool { return o.Err == nil }

func Succeeded(rec *types.ExtractionRecord) Outcome { return Outcome{Record: rec} }

func Failed(err error) Outcome { return Outcome{Err: err} }

// Invoke calls fn for location and folds every failure mode into an Outcome:
// returned errors, a nil record, panics, the per-call timeout and
// cancellation of ctx. A timeout of zero disables the per-call deadline.
// Invoke returns as soon as the deadline passes even if fn ignores its
// context; the abandoned call's result is discarded.
func Invoke(ctx context.Context, fn Func, location string, timeout time.Duration) Outcome {
	if fn == nil {
		return Failed(errors.New("no extraction function configured"))
	}
	if err := ctx.Err(); err != nil {
		return Failed(fmt.Errorf("extraction cancelled: %w", err))
	}

	callCtx := ctx
	cancel := context.CancelFunc(func() {})
	if timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	done := make(chan Outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- Failed(&PanicError{Value: r})
			}
		}()
		rec, err := fn(callCtx, location)
		switch {
		case err != nil:
			done <- Failed(err)
		case rec == nil:
			done <- Failed(ErrNilRecord)
		default:
			done <- Succeeded(rec)
		}
	}()

	select {
	case out := <-done:
		return out
	case <-callCtx.Done():
		if ctx.Err() != nil {
			return Failed(fmt.Errorf("extraction cancelled: %w", ctx.Err()))
		}
		return Failed(fmt.Errorf("extraction timed out after %s: %w", timeout, context.DeadlineExceeded))
	}
}

func cloneRecord(rec types.ExtractionRecord) *types.ExtractionRecord {
	out := rec
	if rec.Transactions != nil {
		out.Transactions = append([]types.Transaction(nil), rec.Transactions...)
	}
	out.Summary.OpeningBalance.Value = cloneAmount(rec.Summary.OpeningBalance.Value)
	out.Summary.ClosingBalance.Value = cloneAmount(rec.Summary.ClosingBalance.Value)
	out.Summary.TotalCredits.Value = cloneAmount(rec.Summary.TotalCredits.Value)
	out.Summary.TotalDebits.Value = cloneAmount(rec.Summary.TotalDebits.Value)
	for i := range out.Transactions {
		out.Transactions[i].Amount.Value = cloneAmount(out.Transactions[i].Amount.Value)
		out.Transactions[i].RunningBalance.Value = cloneAmount(out.Transactions[i].RunningBalance.Value)
	}
	return &out
}

func cloneAmount(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return types.Amount(*v)
}
