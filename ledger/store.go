/*
store.go - Persistence interface and the atomic mutation contract

PURPOSE:
  Defines the boundary between ledger logic and whatever backs it
  (in-memory table, SQLite, PostgreSQL). The ledger does not care which;
  it cares that every state transition touching more than one field group
  (a transaction plus the station's counters, or an invoice plus its
  members plus the counters) lands as one indivisible unit.

MUTATION CONTRACT:
  All writes go through Mutate(ctx, stationID, fn). The store runs fn as
  the single writer for that station's entity group: either every write
  made through the MutationView commits, or none do. Preconditions are
  re-checked inside fn against the view, so a caller that raced on stale
  state gets ErrInvalidState; a store that detects a losing writer at
  commit (version stamp, busy lock) returns ErrConflict.

  Reads outside Mutate may be stale between refreshes, but always observe
  fully-applied transitions, never a partial one.

IMPLEMENTATIONS:
  - ledger/store: in-memory, per-station mutex (tests/dev)
  - store/sqlite: BEGIN IMMEDIATE transactions with a version-stamped
    station balance row

SEE ALSO:
  - service.go: the operations that call Mutate
  - balance.go: counter maintenance and the recompute audit
*/
package ledger

import "context"

// =============================================================================
// FILTERS
// =============================================================================

// TransactionFilter narrows transaction queries. Zero values match all.
type TransactionFilter struct {
	StationID string
	OrgID     string
	VehicleID string
	InvoiceID string
	Status    TransactionStatus
}

// InvoiceFilter narrows invoice queries. Zero values match all.
type InvoiceFilter struct {
	StationID string
	OrgID     string
	Status    InvoiceStatus
}

// =============================================================================
// STORE
// =============================================================================

// Store persists transactions, invoices and station balance counters.
//
// Reads return copies; mutating a returned value never changes stored
// state. Writes happen only inside Mutate.
type Store interface {
	// GetTransaction returns the transaction or ErrNotFound.
	GetTransaction(ctx context.Context, id string) (*Transaction, error)

	// GetInvoice returns the invoice or ErrNotFound.
	GetInvoice(ctx context.Context, id string) (*Invoice, error)

	// ListTransactions returns transactions matching the filter, ordered by
	// request date.
	ListTransactions(ctx context.Context, f TransactionFilter) ([]Transaction, error)

	// ListInvoices returns invoices matching the filter, ordered by issue date.
	ListInvoices(ctx context.Context, f InvoiceFilter) ([]Invoice, error)

	// StationBalance returns the station's counters. A station with no
	// ledger history yet has all-zero counters.
	StationBalance(ctx context.Context, stationID string) (StationBalance, error)

	// VoucherExists reports whether any transaction carries the code.
	VoucherExists(ctx context.Context, code string) (bool, error)

	// Mutate runs fn as the single writer for the station's entity group.
	// All writes made through the view commit atomically iff fn returns nil.
	Mutate(ctx context.Context, stationID string, fn func(MutationView) error) error
}

// MutationView is the read-and-write surface available inside Mutate.
// Reads through the view see writes already made in the same mutation.
type MutationView interface {
	GetTransaction(id string) (*Transaction, error)
	GetInvoice(id string) (*Invoice, error)

	// ValidatedTransactions returns the station's VALIDATED transactions
	// owed by the organization, in request-date order.
	ValidatedTransactions(stationID, orgID string) ([]Transaction, error)

	// PutTransaction inserts or replaces a transaction.
	PutTransaction(tx Transaction) error

	// PutInvoice inserts or replaces an invoice.
	PutInvoice(inv Invoice) error

	// Balance returns the station's counters as currently visible to this
	// mutation.
	Balance() (StationBalance, error)

	// PutBalance replaces the station's counters. The store bumps the
	// version stamp at commit.
	PutBalance(b StationBalance) error
}

// =============================================================================
// RESTORE - Bulk load for backup import
// =============================================================================

// Restorer is implemented by stores that support wholesale replacement of
// ledger state, used by backup import. Counters are restored exactly as
// given, not re-derived; AuditBalances verifies them afterwards.
type Restorer interface {
	Restore(ctx context.Context, txs []Transaction, invoices []Invoice, balances []StationBalance) error
}
