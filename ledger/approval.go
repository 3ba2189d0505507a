/*
approval.go - Invoice attestation, rejection and settlement

PURPOSE:
  Drives an invoice through the two-step approval chain:

    PENDING_MANAGER --attest--> PENDING_ADMIN --settle--> PAID
    PENDING_MANAGER --reject--> REJECTED

  Attestation moves no money; the amount owed is already reflected in the
  station's invoiced counter. Rejection is the only sanctioned rewind in
  the system: members return to VALIDATED with cleared fee snapshots and
  the station is again owed the gross amount as pending. Settlement pays
  the net and stamps members PAID.

  Each operation fails with ErrInvalidState when the invoice is not in
  its required source state, which is what guards double attestation,
  double payment and rejecting a settled invoice.
*/
package ledger

import (
	"context"
	"fmt"
)

// Attest confirms the invoice on behalf of the organization manager.
// PENDING_MANAGER -> PENDING_ADMIN. No balance change.
func (s *Service) Attest(ctx context.Context, invoiceID string) (*Invoice, error) {
	return s.transition(ctx, invoiceID, InvoicePendingManager, func(v MutationView, inv *Invoice) error {
		now := s.now()
		inv.Status = InvoicePendingAdmin
		inv.AttestedAt = &now
		return nil
	})
}

// Reject refuses the invoice (wrong paperwork, disputed fills).
// PENDING_MANAGER -> REJECTED; members revert to VALIDATED at gross value.
func (s *Service) Reject(ctx context.Context, invoiceID, reason string) (*Invoice, error) {
	if reason == "" {
		return nil, &ValidationError{Field: "reason", Reason: "is required"}
	}
	return s.transition(ctx, invoiceID, InvoicePendingManager, func(v MutationView, inv *Invoice) error {
		for _, txID := range inv.TransactionIDs {
			member, err := v.GetTransaction(txID)
			if err != nil {
				return err
			}
			if member.Status != StatusInvoiced {
				return &IntegrityError{
					StationID: inv.StationID,
					Detail:    fmt.Sprintf("invoice member %s is %s, expected INVOICED", txID, member.Status),
				}
			}
			member.Status = StatusValidated
			member.clearFees()
			if err := v.PutTransaction(*member); err != nil {
				return err
			}
		}

		inv.Status = InvoiceRejected
		inv.RejectReason = reason

		// The fee snapshot is erased, so the station is again owed the
		// gross amount, not the net.
		return adjustBalance(v, func(b *StationBalance) {
			b.Invoiced = b.Invoiced.Sub(inv.NetValue)
			b.Pending = b.Pending.Add(inv.TotalValue)
		})
	})
}

// Settle pays the invoice. PENDING_ADMIN -> PAID; members move to PAID with
// a payment date, the invoiced counter drops by the net and the paid
// counter rises by the same amount.
func (s *Service) Settle(ctx context.Context, invoiceID string) (*Invoice, error) {
	return s.transition(ctx, invoiceID, InvoicePendingAdmin, func(v MutationView, inv *Invoice) error {
		now := s.now()
		for _, txID := range inv.TransactionIDs {
			member, err := v.GetTransaction(txID)
			if err != nil {
				return err
			}
			if member.Status != StatusInvoiced {
				return &IntegrityError{
					StationID: inv.StationID,
					Detail:    fmt.Sprintf("invoice member %s is %s, expected INVOICED", txID, member.Status),
				}
			}
			member.Status = StatusPaid
			member.PaymentDate = &now
			if err := v.PutTransaction(*member); err != nil {
				return err
			}
		}

		inv.Status = InvoicePaid
		inv.PaidAt = &now

		return adjustBalance(v, func(b *StationBalance) {
			b.Invoiced = b.Invoiced.Sub(inv.NetValue)
			b.Paid = b.Paid.Add(inv.NetValue)
		})
	})
}

// transition runs fn on the invoice inside the station's critical section
// after checking the required source state there. fn mutates the invoice;
// transition persists it.
func (s *Service) transition(
	ctx context.Context,
	invoiceID string,
	required InvoiceStatus,
	fn func(v MutationView, inv *Invoice) error,
) (*Invoice, error) {
	inv, err := s.store.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	var out Invoice
	err = s.store.Mutate(ctx, inv.StationID, func(v MutationView) error {
		current, err := v.GetInvoice(invoiceID)
		if err != nil {
			return err
		}
		if current.Status != required {
			return &InvalidStateError{
				Entity:   "invoice",
				ID:       current.ID,
				Expected: string(required),
				Actual:   string(current.Status),
			}
		}
		if err := fn(v, current); err != nil {
			return err
		}
		if err := v.PutInvoice(*current); err != nil {
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
