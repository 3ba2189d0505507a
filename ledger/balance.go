/*
balance.go - Counter maintenance and the recompute audit

PURPOSE:
  The three per-station counters are a materialized view over transaction
  and invoice state. Every operation adjusts them incrementally inside
  the same atomic unit as the entity writes (adjustBalance), and the
  recompute path (AuditBalances) rebuilds them from scratch so drift is
  detectable rather than silently trusted.

  A counter going negative means an invariant broke upstream. That is an
  IntegrityError: the mutation aborts, nothing lands, and the station
  needs manual reconciliation before further writes.
*/
package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// adjustBalance applies fn to the station's counters inside a mutation and
// rejects any result that takes a counter negative.
func adjustBalance(v MutationView, fn func(*StationBalance)) error {
	b, err := v.Balance()
	if err != nil {
		return err
	}
	fn(&b)

	if b.Pending.IsNegative() || b.Invoiced.IsNegative() || b.Paid.IsNegative() {
		return &IntegrityError{
			StationID: b.StationID,
			Detail: fmt.Sprintf("counter went negative (pending=%s invoiced=%s paid=%s)",
				b.Pending, b.Invoiced, b.Paid),
		}
	}
	return v.PutBalance(b)
}

// =============================================================================
// RECOMPUTE AUDIT
// =============================================================================

// BalanceAudit compares a station's stored counters against totals
// recomputed from transaction state.
type BalanceAudit struct {
	StationID string          `json:"station_id"`
	Stored    StationBalance  `json:"stored"`
	Computed  StationBalance  `json:"computed"`
	Clean     bool            `json:"clean"`
}

// AuditBalances recomputes the station's counters from scratch:
//
//	pending  = sum TotalValue over VALIDATED
//	invoiced = sum NetValue over INVOICED
//	paid     = sum NetValue over PAID
//
// and compares them with the stored view. Drift returns the audit report
// alongside an IntegrityError so callers can halt mutation for the station.
func (s *Service) AuditBalances(ctx context.Context, stationID string) (BalanceAudit, error) {
	stored, err := s.store.StationBalance(ctx, stationID)
	if err != nil {
		return BalanceAudit{}, err
	}

	txs, err := s.store.ListTransactions(ctx, TransactionFilter{StationID: stationID})
	if err != nil {
		return BalanceAudit{}, err
	}

	computed := StationBalance{
		StationID: stationID,
		Pending:   decimal.Zero,
		Invoiced:  decimal.Zero,
		Paid:      decimal.Zero,
	}
	for _, t := range txs {
		switch t.Status {
		case StatusValidated:
			computed.Pending = computed.Pending.Add(t.TotalValue)
		case StatusInvoiced:
			computed.Invoiced = computed.Invoiced.Add(t.NetValue)
		case StatusPaid:
			computed.Paid = computed.Paid.Add(t.NetValue)
		}

		// Per-transaction arithmetic identities.
		if t.Status != StatusRequested && t.Status != StatusCancelled {
			if !t.TotalValue.Equal(RoundMoney(t.FilledLiters.Mul(t.PricePerLiter))) {
				return BalanceAudit{}, &IntegrityError{
					StationID: stationID,
					Detail:    fmt.Sprintf("transaction %s: total != liters x price", t.ID),
				}
			}
		}
		if t.Status == StatusInvoiced || t.Status == StatusPaid {
			if !t.FeeAmount.Add(t.NetValue).Equal(t.TotalValue) {
				return BalanceAudit{}, &IntegrityError{
					StationID: stationID,
					Detail:    fmt.Sprintf("transaction %s: fee+net != total", t.ID),
				}
			}
		}
	}

	audit := BalanceAudit{
		StationID: stationID,
		Stored:    stored,
		Computed:  computed,
		Clean: stored.Pending.Equal(computed.Pending) &&
			stored.Invoiced.Equal(computed.Invoiced) &&
			stored.Paid.Equal(computed.Paid),
	}
	if !audit.Clean {
		return audit, &IntegrityError{
			StationID: stationID,
			Detail: fmt.Sprintf("stored counters diverge from recomputation (stored %s/%s/%s, computed %s/%s/%s)",
				stored.Pending, stored.Invoiced, stored.Paid,
				computed.Pending, computed.Invoiced, computed.Paid),
		}
	}
	return audit, nil
}

// RepairBalances overwrites the stored counters with freshly recomputed
// values. Meant for operator use after an audit failure, not for routine
// code paths.
func (s *Service) RepairBalances(ctx context.Context, stationID string) (StationBalance, error) {
	audit, err := s.AuditBalances(ctx, stationID)
	if err == nil {
		return audit.Stored, nil
	}
	if audit.StationID == "" {
		// Audit failed before producing a recomputation.
		return StationBalance{}, err
	}

	var repaired StationBalance
	mErr := s.store.Mutate(ctx, stationID, func(v MutationView) error {
		b, err := v.Balance()
		if err != nil {
			return err
		}
		b.Pending = audit.Computed.Pending
		b.Invoiced = audit.Computed.Invoiced
		b.Paid = audit.Computed.Paid
		repaired = b
		return v.PutBalance(b)
	})
	if mErr != nil {
		return StationBalance{}, mErr
	}
	return repaired, nil
}
