/*
invoice.go - Invoice consolidation

PURPOSE:
  Turns everything a station is owed by one organization into a single
  invoice awaiting the manager's attestation. Selection is atomic: every
  VALIDATED transaction for the (station, organization) pair is swept in,
  never a subset chosen by the caller.

FEE ATTRIBUTION:
  The fee is computed once on the aggregate gross, then each member is
  stamped with the same frozen percentage and its own derived fee/net.
  A rounding remainder of one minor unit, if distributing produces one,
  is reconciled onto the last member so member sums equal invoice totals
  exactly (fee.go).
*/
package ledger

import (
	"context"
	"fmt"
)

// GenerateInvoiceInput carries the invoicing request.
type GenerateInvoiceInput struct {
	StationID      string
	OrgID          string
	IsAdvance      bool
	DocumentNumber string
	FileRef        string
}

// GenerateInvoice consolidates the station's VALIDATED transactions owed by
// the organization into one PENDING_MANAGER invoice. Atomically: members
// move to INVOICED with frozen fee snapshots, the station's pending counter
// drops by the gross total and its invoiced counter rises by the net.
func (s *Service) GenerateInvoice(ctx context.Context, in GenerateInvoiceInput) (*Invoice, error) {
	if in.DocumentNumber == "" {
		return nil, &ValidationError{Field: "document_number", Reason: "is required"}
	}

	station, err := s.dir.Station(ctx, in.StationID)
	if err != nil {
		return nil, fmt.Errorf("station %s: %w", in.StationID, err)
	}

	var out Invoice
	err = s.store.Mutate(ctx, in.StationID, func(v MutationView) error {
		members, err := v.ValidatedTransactions(in.StationID, in.OrgID)
		if err != nil {
			return err
		}
		if len(members) == 0 {
			return ErrNothingToInvoice
		}

		gross := members[0].TotalValue
		for _, m := range members[1:] {
			gross = gross.Add(m.TotalValue)
		}

		agg := ApplyFee(gross, station.Fees, in.IsAdvance)
		members = distributeFees(members, agg)

		inv := Invoice{
			ID:             s.newID(),
			StationID:      in.StationID,
			OrgID:          in.OrgID,
			DocumentNumber: in.DocumentNumber,
			FileRef:        in.FileRef,
			Status:         InvoicePendingManager,
			IsAdvance:      in.IsAdvance,
			IssueDate:      s.now(),
			TotalValue:     gross,
			FeeAmount:      agg.FeeAmount,
			NetValue:       agg.NetValue,
		}

		for i := range members {
			members[i].Status = StatusInvoiced
			members[i].InvoiceID = inv.ID
			members[i].IsAdvanced = in.IsAdvance
			inv.TransactionIDs = append(inv.TransactionIDs, members[i].ID)

			if !members[i].FeeAmount.Add(members[i].NetValue).Equal(members[i].TotalValue) {
				return &IntegrityError{
					StationID: in.StationID,
					Detail:    fmt.Sprintf("fee+net != total on transaction %s", members[i].ID),
				}
			}
			if err := v.PutTransaction(members[i]); err != nil {
				return err
			}
		}

		if err := v.PutInvoice(inv); err != nil {
			return err
		}
		if err := adjustBalance(v, func(b *StationBalance) {
			b.Pending = b.Pending.Sub(gross)
			b.Invoiced = b.Invoiced.Add(agg.NetValue)
		}); err != nil {
			return err
		}
		out = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
