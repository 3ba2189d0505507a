// Package store provides the in-memory ledger.Store used in tests and
// development. Mutations are serialized per station: Mutate takes the
// station's lock, stages writes, and commits them only if the mutation
// function returns nil, so readers never observe a half-applied transition.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/frotagov/fuel-ledger/ledger"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type Memory struct {
	mu sync.RWMutex

	transactions map[string]ledger.Transaction
	invoices     map[string]ledger.Invoice
	balances     map[string]ledger.StationBalance
	vouchers     map[string]bool

	lockMu       sync.Mutex
	stationLocks map[string]*sync.Mutex
}

func NewMemory() *Memory {
	return &Memory{
		transactions: make(map[string]ledger.Transaction),
		invoices:     make(map[string]ledger.Invoice),
		balances:     make(map[string]ledger.StationBalance),
		vouchers:     make(map[string]bool),
		stationLocks: make(map[string]*sync.Mutex),
	}
}

func (m *Memory) stationLock(stationID string) *sync.Mutex {
	m.lockMu.Lock()
	defer m.lockMu.Unlock()
	l, ok := m.stationLocks[stationID]
	if !ok {
		l = &sync.Mutex{}
		m.stationLocks[stationID] = l
	}
	return l
}

// =============================================================================
// READS
// =============================================================================

func (m *Memory) GetTransaction(_ context.Context, id string) (*ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tx, ok := m.transactions[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	out := cloneTransaction(tx)
	return &out, nil
}

func (m *Memory) GetInvoice(_ context.Context, id string) (*ledger.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inv, ok := m.invoices[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	out := cloneInvoice(inv)
	return &out, nil
}

func (m *Memory) ListTransactions(_ context.Context, f ledger.TransactionFilter) ([]ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []ledger.Transaction
	for _, tx := range m.transactions {
		if matchTransaction(tx, f) {
			result = append(result, cloneTransaction(tx))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].RequestDate.Equal(result[j].RequestDate) {
			return result[i].ID < result[j].ID
		}
		return result[i].RequestDate.Before(result[j].RequestDate)
	})
	return result, nil
}

func (m *Memory) ListInvoices(_ context.Context, f ledger.InvoiceFilter) ([]ledger.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []ledger.Invoice
	for _, inv := range m.invoices {
		if matchInvoice(inv, f) {
			result = append(result, cloneInvoice(inv))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].IssueDate.Equal(result[j].IssueDate) {
			return result[i].ID < result[j].ID
		}
		return result[i].IssueDate.Before(result[j].IssueDate)
	})
	return result, nil
}

func (m *Memory) StationBalance(_ context.Context, stationID string) (ledger.StationBalance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.balanceLocked(stationID), nil
}

func (m *Memory) balanceLocked(stationID string) ledger.StationBalance {
	if b, ok := m.balances[stationID]; ok {
		return b
	}
	return ledger.StationBalance{
		StationID: stationID,
		Pending:   decimal.Zero,
		Invoiced:  decimal.Zero,
		Paid:      decimal.Zero,
	}
}

func (m *Memory) VoucherExists(_ context.Context, code string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.vouchers[code], nil
}

// =============================================================================
// MUTATE - Per-station critical section with staged writes
// =============================================================================

func (m *Memory) Mutate(_ context.Context, stationID string, fn func(ledger.MutationView) error) error {
	lock := m.stationLock(stationID)
	lock.Lock()
	defer lock.Unlock()

	view := &memoryView{
		parent:    m,
		stationID: stationID,
		txWrites:  make(map[string]ledger.Transaction),
		invWrites: make(map[string]ledger.Invoice),
	}

	if err := fn(view); err != nil {
		return err
	}

	// Commit staged writes in one critical section over the shared maps.
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, tx := range view.txWrites {
		m.transactions[id] = tx
		if tx.VoucherCode != "" {
			m.vouchers[tx.VoucherCode] = true
		}
	}
	for id, inv := range view.invWrites {
		m.invoices[id] = inv
	}
	if view.balanceWrite != nil {
		b := *view.balanceWrite
		b.Version++
		m.balances[stationID] = b
	}
	return nil
}

type memoryView struct {
	parent    *Memory
	stationID string

	txWrites     map[string]ledger.Transaction
	invWrites    map[string]ledger.Invoice
	balanceWrite *ledger.StationBalance
}

func (v *memoryView) GetTransaction(id string) (*ledger.Transaction, error) {
	if tx, ok := v.txWrites[id]; ok {
		out := cloneTransaction(tx)
		return &out, nil
	}
	return v.parent.GetTransaction(context.Background(), id)
}

func (v *memoryView) GetInvoice(id string) (*ledger.Invoice, error) {
	if inv, ok := v.invWrites[id]; ok {
		out := cloneInvoice(inv)
		return &out, nil
	}
	return v.parent.GetInvoice(context.Background(), id)
}

func (v *memoryView) ValidatedTransactions(stationID, orgID string) ([]ledger.Transaction, error) {
	all, err := v.parent.ListTransactions(context.Background(), ledger.TransactionFilter{
		StationID: stationID,
		OrgID:     orgID,
		Status:    ledger.StatusValidated,
	})
	if err != nil {
		return nil, err
	}
	// Overlay staged writes.
	var result []ledger.Transaction
	for _, tx := range all {
		if staged, ok := v.txWrites[tx.ID]; ok {
			if staged.Status == ledger.StatusValidated {
				result = append(result, cloneTransaction(staged))
			}
			continue
		}
		result = append(result, tx)
	}
	return result, nil
}

func (v *memoryView) PutTransaction(tx ledger.Transaction) error {
	v.txWrites[tx.ID] = cloneTransaction(tx)
	return nil
}

func (v *memoryView) PutInvoice(inv ledger.Invoice) error {
	v.invWrites[inv.ID] = cloneInvoice(inv)
	return nil
}

func (v *memoryView) Balance() (ledger.StationBalance, error) {
	if v.balanceWrite != nil {
		return *v.balanceWrite, nil
	}
	return v.parent.StationBalance(context.Background(), v.stationID)
}

func (v *memoryView) PutBalance(b ledger.StationBalance) error {
	b.StationID = v.stationID
	v.balanceWrite = &b
	return nil
}

// =============================================================================
// RESTORE - Bulk load for backup import
// =============================================================================

// Restore replaces all ledger state wholesale.
func (m *Memory) Restore(_ context.Context, txs []ledger.Transaction, invoices []ledger.Invoice, balances []ledger.StationBalance) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.transactions = make(map[string]ledger.Transaction, len(txs))
	m.vouchers = make(map[string]bool, len(txs))
	for _, tx := range txs {
		m.transactions[tx.ID] = cloneTransaction(tx)
		if tx.VoucherCode != "" {
			m.vouchers[tx.VoucherCode] = true
		}
	}
	m.invoices = make(map[string]ledger.Invoice, len(invoices))
	for _, inv := range invoices {
		m.invoices[inv.ID] = cloneInvoice(inv)
	}
	m.balances = make(map[string]ledger.StationBalance, len(balances))
	for _, b := range balances {
		m.balances[b.StationID] = b
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func cloneTransaction(tx ledger.Transaction) ledger.Transaction {
	out := tx
	if tx.ValidationDate != nil {
		d := *tx.ValidationDate
		out.ValidationDate = &d
	}
	if tx.PaymentDate != nil {
		d := *tx.PaymentDate
		out.PaymentDate = &d
	}
	return out
}

func cloneInvoice(inv ledger.Invoice) ledger.Invoice {
	out := inv
	out.TransactionIDs = append([]string(nil), inv.TransactionIDs...)
	if inv.AttestedAt != nil {
		d := *inv.AttestedAt
		out.AttestedAt = &d
	}
	if inv.PaidAt != nil {
		d := *inv.PaidAt
		out.PaidAt = &d
	}
	return out
}

func matchTransaction(tx ledger.Transaction, f ledger.TransactionFilter) bool {
	if f.StationID != "" && tx.StationID != f.StationID {
		return false
	}
	if f.OrgID != "" && tx.OrgID != f.OrgID {
		return false
	}
	if f.VehicleID != "" && tx.VehicleID != f.VehicleID {
		return false
	}
	if f.InvoiceID != "" && tx.InvoiceID != f.InvoiceID {
		return false
	}
	if f.Status != "" && tx.Status != f.Status {
		return false
	}
	return true
}

func matchInvoice(inv ledger.Invoice, f ledger.InvoiceFilter) bool {
	if f.StationID != "" && inv.StationID != f.StationID {
		return false
	}
	if f.OrgID != "" && inv.OrgID != f.OrgID {
		return false
	}
	if f.Status != "" && inv.Status != f.Status {
		return false
	}
	return true
}
