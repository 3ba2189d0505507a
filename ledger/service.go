/*
service.go - Ledger service wiring and read-only queries

PURPOSE:
  Service is the only mutation surface of the ledger. It holds the Store,
  the read-only directory of stations/organizations/vehicles, a clock and
  an id source. The eight operations live in voucher.go, validate.go,
  invoice.go and approval.go; this file carries construction and the
  side-effect-free queries.

DIRECTORY:
  Stations, organizations and vehicles are owned by their own directory
  and referenced by id. The ledger consumes a narrow lookup interface and
  never writes through it. Referential integrity on reads is the
  collaborator's contract; the ledger checks references once, when a
  request enters the system.
*/
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// DIRECTORY - Read-only collaborator contract
// =============================================================================

// StationRef is what the ledger needs to know about a fuel station.
type StationRef struct {
	ID   string
	Fees FeeSchedule
}

// VehicleRef is what the ledger needs to know about a vehicle.
type VehicleRef struct {
	ID    string
	OrgID string
}

// Directory provides lookup-by-id for the entities the ledger references.
// Implementations return ErrNotFound for missing ids.
type Directory interface {
	Station(ctx context.Context, id string) (*StationRef, error)
	Vehicle(ctx context.Context, id string) (*VehicleRef, error)
	OrganizationExists(ctx context.Context, id string) (bool, error)
}

// =============================================================================
// SERVICE
// =============================================================================

// Service executes ledger operations against a Store.
type Service struct {
	store Store
	dir   Directory

	now   func() time.Time
	newID func() string
}

// Option customizes a Service; used by tests to pin clocks and ids.
type Option func(*Service)

// WithClock overrides the service clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDSource overrides the id generator.
func WithIDSource(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// NewService creates a ledger service over the given store and directory.
func NewService(store Store, dir Directory, opts ...Option) *Service {
	s := &Service{
		store: store,
		dir:   dir,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store exposes the underlying store for read-only consumers (backup,
// reports, metrics).
func (s *Service) Store() Store { return s.store }

// =============================================================================
// QUERIES - Side-effect free
// =============================================================================

// Transaction returns a transaction by id.
func (s *Service) Transaction(ctx context.Context, id string) (*Transaction, error) {
	return s.store.GetTransaction(ctx, id)
}

// Invoice returns an invoice by id.
func (s *Service) Invoice(ctx context.Context, id string) (*Invoice, error) {
	return s.store.GetInvoice(ctx, id)
}

// Transactions returns transactions matching the filter.
func (s *Service) Transactions(ctx context.Context, f TransactionFilter) ([]Transaction, error) {
	return s.store.ListTransactions(ctx, f)
}

// Invoices returns invoices matching the filter.
func (s *Service) Invoices(ctx context.Context, f InvoiceFilter) ([]Invoice, error) {
	return s.store.ListInvoices(ctx, f)
}

// Balance returns the station's running counters.
func (s *Service) Balance(ctx context.Context, stationID string) (StationBalance, error) {
	return s.store.StationBalance(ctx, stationID)
}

// RevenueSummary is the platform operator's aggregate view.
type RevenueSummary struct {
	TotalFeeRevenue decimal.Decimal           `json:"total_fee_revenue"`
	TotalVolume     decimal.Decimal           `json:"total_volume"`
	CountByStatus   map[TransactionStatus]int `json:"count_by_status"`
}

// Revenue sums platform fee income over paid transactions and gross volume
// over everything validated or later.
func (s *Service) Revenue(ctx context.Context) (RevenueSummary, error) {
	txs, err := s.store.ListTransactions(ctx, TransactionFilter{})
	if err != nil {
		return RevenueSummary{}, err
	}

	sum := RevenueSummary{
		TotalFeeRevenue: decimal.Zero,
		TotalVolume:     decimal.Zero,
		CountByStatus:   make(map[TransactionStatus]int),
	}
	for _, t := range txs {
		sum.CountByStatus[t.Status]++
		switch t.Status {
		case StatusPaid:
			sum.TotalFeeRevenue = sum.TotalFeeRevenue.Add(t.FeeAmount)
			sum.TotalVolume = sum.TotalVolume.Add(t.TotalValue)
		case StatusValidated, StatusInvoiced:
			sum.TotalVolume = sum.TotalVolume.Add(t.TotalValue)
		}
	}
	return sum, nil
}
