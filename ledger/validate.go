/*
validate.go - Fill validation and request cancellation

PURPOSE:
  The station operator confirms the actual fill against a voucher:
  metered liters, pump price, odometer reading. The transaction moves
  REQUESTED -> VALIDATED and the station's pending counter grows by the
  fill's gross value, in one atomic unit.

  Cancellation is the one other exit from REQUESTED. It never touches a
  counter because nothing was owed yet.
*/
package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// ValidateFillInput carries the metered fill details.
type ValidateFillInput struct {
	TransactionID string
	FilledLiters  decimal.Decimal
	PricePerLiter decimal.Decimal
	Odometer      int64
}

// ValidateFill records the fill on a REQUESTED transaction and moves it to
// VALIDATED. TotalValue = FilledLiters x PricePerLiter, rounded half-up to
// the minor unit. The status check runs inside the station's critical
// section, so of two racing calls exactly one succeeds; the loser sees
// ErrInvalidState.
func (s *Service) ValidateFill(ctx context.Context, in ValidateFillInput) (*Transaction, error) {
	if !in.FilledLiters.IsPositive() {
		return nil, &ValidationError{Field: "filled_liters", Reason: "must be positive"}
	}
	if !in.PricePerLiter.IsPositive() {
		return nil, &ValidationError{Field: "price_per_liter", Reason: "must be positive"}
	}
	if in.Odometer <= 0 {
		return nil, &ValidationError{Field: "odometer", Reason: "must be positive"}
	}

	// The station id is needed to enter the right critical section; the
	// authoritative status check happens again inside it.
	tx, err := s.store.GetTransaction(ctx, in.TransactionID)
	if err != nil {
		return nil, err
	}

	var out Transaction
	err = s.store.Mutate(ctx, tx.StationID, func(v MutationView) error {
		current, err := v.GetTransaction(in.TransactionID)
		if err != nil {
			return err
		}
		if current.Status != StatusRequested {
			return &InvalidStateError{
				Entity:   "transaction",
				ID:       current.ID,
				Expected: string(StatusRequested),
				Actual:   string(current.Status),
			}
		}

		now := s.now()
		total := RoundMoney(in.FilledLiters.Mul(in.PricePerLiter))

		current.Status = StatusValidated
		current.ValidationDate = &now
		current.FilledLiters = in.FilledLiters
		current.PricePerLiter = in.PricePerLiter
		current.TotalValue = total
		current.Odometer = in.Odometer

		if err := v.PutTransaction(*current); err != nil {
			return err
		}
		if err := adjustBalance(v, func(b *StationBalance) {
			b.Pending = b.Pending.Add(total)
		}); err != nil {
			return err
		}
		out = *current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CancelRequest moves a REQUESTED transaction to CANCELLED. No balance
// effect; validated fills cannot be cancelled, only invoiced or rejected
// through the invoice path.
func (s *Service) CancelRequest(ctx context.Context, transactionID string) (*Transaction, error) {
	tx, err := s.store.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	var out Transaction
	err = s.store.Mutate(ctx, tx.StationID, func(v MutationView) error {
		current, err := v.GetTransaction(transactionID)
		if err != nil {
			return err
		}
		if current.Status != StatusRequested {
			return &InvalidStateError{
				Entity:   "transaction",
				ID:       current.ID,
				Expected: string(StatusRequested),
				Actual:   string(current.Status),
			}
		}
		current.Status = StatusCancelled
		if err := v.PutTransaction(*current); err != nil {
			return err
		}
		out = *current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
