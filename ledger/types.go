/*
Package ledger is the transaction/invoice ledger at the heart of the
fuel brokerage platform.

PURPOSE:
  Public-sector fleets request fuel at accredited stations; the platform
  takes a percentage fee and settles the remainder to the station. This
  package owns the state machines and balance reconciliation that turn a
  fuel request into a validated fill, a consolidated invoice, and a paid
  settlement, keeping three parties' running totals mutually consistent
  after every single operation.

KEY CONCEPTS IN THIS FILE (types.go):
  - Transaction: one fuel event, moving REQUESTED -> VALIDATED ->
    INVOICED -> PAID (or REQUESTED -> CANCELLED)
  - Invoice: a station's consolidated bill to one organization, moving
    PENDING_MANAGER -> PENDING_ADMIN -> PAID (or -> REJECTED)
  - StationBalance: the three running counters per station
    (pending / invoiced / paid), maintained as a materialized view
  - FeeSchedule: a station's base and advance fee percentages

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal everywhere money appears; floats never
     touch monetary values
  2. Single mutation surface: only the operations in voucher.go,
     validate.go, invoice.go and approval.go touch ledger state
  3. Derivability: station counters are a cache over transaction and
     invoice state, never an independent source of truth (balance.go)

SEE ALSO:
  - fee.go: pure fee computation
  - store.go: persistence interface and atomic mutation contract
  - errors.go: the error taxonomy
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY
// =============================================================================

// Monetary values carry two decimal places (BRL centavos). RoundMoney is the
// single rounding rule in the system: half-up to the minor unit. shopspring's
// Round rounds half away from zero, which is half-up for the non-negative
// amounts the ledger deals in.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// MustMoney parses a decimal literal in tests and seed data.
func MustMoney(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic("ledger: bad money literal: " + s)
	}
	return d
}

// =============================================================================
// FUEL TYPES
// =============================================================================

type FuelType string

const (
	FuelGasoline  FuelType = "GASOLINE"
	FuelEthanol   FuelType = "ETHANOL"
	FuelDiesel    FuelType = "DIESEL"
	FuelDieselS10 FuelType = "DIESEL_S10"
	FuelCNG       FuelType = "CNG"
)

// =============================================================================
// FEE SCHEDULE
// =============================================================================

// FeeSchedule is a station's platform fee configuration. Percentages are
// whole percents (5 means 5%). Bounds are enforced where stations are
// created; the ledger reads the schedule and never writes it.
type FeeSchedule struct {
	BaseFeePercent    decimal.Decimal `json:"base_fee_percent"`
	AdvanceFeePercent decimal.Decimal `json:"advance_fee_percent"`
}

// =============================================================================
// TRANSACTION - One fuel event
// =============================================================================

type TransactionStatus string

const (
	StatusRequested TransactionStatus = "REQUESTED" // manager asked for fuel
	StatusValidated TransactionStatus = "VALIDATED" // station filled and confirmed
	StatusInvoiced  TransactionStatus = "INVOICED"  // linked to an invoice
	StatusPaid      TransactionStatus = "PAID"      // invoice settled by platform
	StatusCancelled TransactionStatus = "CANCELLED"
)

// Transaction is the unit of a single fuel event.
//
// Financial fields are populated in stages: the fill fields at validation,
// the fee fields at invoicing (frozen from the station's schedule at that
// moment) and PaymentDate at settlement. An invoice rejection clears the
// fee fields again; nothing else ever rewinds.
type Transaction struct {
	ID          string            `json:"id"`
	VoucherCode string            `json:"voucher_code"`
	OrgID       string            `json:"org_id"`
	StationID   string            `json:"station_id"`
	VehicleID   string            `json:"vehicle_id"`
	DriverName  string            `json:"driver_name"`
	FuelType    FuelType          `json:"fuel_type"`
	Status      TransactionStatus `json:"status"`
	RequestDate time.Time         `json:"request_date"`

	RequestedLiters decimal.Decimal `json:"requested_liters"`

	// Fill details, populated at validation.
	ValidationDate *time.Time      `json:"validation_date,omitempty"`
	FilledLiters   decimal.Decimal `json:"filled_liters"`
	PricePerLiter  decimal.Decimal `json:"price_per_liter"`
	TotalValue     decimal.Decimal `json:"total_value"`
	Odometer       int64           `json:"odometer"`

	// Fee snapshot, populated at invoicing and immutable until settlement
	// (or cleared again if the invoice is rejected).
	InvoiceID            string          `json:"invoice_id,omitempty"`
	FeePercentageApplied decimal.Decimal `json:"fee_percentage_applied"`
	FeeAmount            decimal.Decimal `json:"fee_amount"`
	NetValue             decimal.Decimal `json:"net_value"`
	IsAdvanced           bool            `json:"is_advanced"`

	PaymentDate *time.Time `json:"payment_date,omitempty"`
}

// clearFees removes the invoicing snapshot, returning the transaction to its
// unbilled (gross-valued) form. Used only by invoice rejection.
func (t *Transaction) clearFees() {
	t.InvoiceID = ""
	t.FeePercentageApplied = decimal.Zero
	t.FeeAmount = decimal.Zero
	t.NetValue = decimal.Zero
	t.IsAdvanced = false
}

// =============================================================================
// INVOICE - A station's consolidated bill to one organization
// =============================================================================

type InvoiceStatus string

const (
	InvoicePendingManager InvoiceStatus = "PENDING_MANAGER" // station issued, manager must attest
	InvoicePendingAdmin   InvoiceStatus = "PENDING_ADMIN"   // manager attested, admin must pay
	InvoicePaid           InvoiceStatus = "PAID"
	InvoiceRejected       InvoiceStatus = "REJECTED"
)

// Invoice consolidates every validated fill a station is owed by one
// organization at the moment of issuing. The member set is non-empty and
// immutable after creation. DocumentNumber and FileRef identify the fiscal
// paperwork and are opaque to the ledger.
type Invoice struct {
	ID             string        `json:"id"`
	StationID      string        `json:"station_id"`
	OrgID          string        `json:"org_id"`
	DocumentNumber string        `json:"document_number"`
	FileRef        string        `json:"file_ref,omitempty"`
	Status         InvoiceStatus `json:"status"`
	IsAdvance      bool          `json:"is_advance"`
	IssueDate      time.Time     `json:"issue_date"`

	TotalValue decimal.Decimal `json:"total_value"` // gross, sum of member totals
	FeeAmount  decimal.Decimal `json:"fee_amount"`  // platform cut
	NetValue   decimal.Decimal `json:"net_value"`   // what the station receives

	TransactionIDs []string `json:"transaction_ids"`

	AttestedAt   *time.Time `json:"attested_at,omitempty"`
	PaidAt       *time.Time `json:"paid_at,omitempty"`
	RejectReason string     `json:"reject_reason,omitempty"` // audit only
}

// =============================================================================
// STATION BALANCE - Materialized running totals
// =============================================================================

// StationBalance caches the three per-station counters. Each one is
// derivable by summing transactions/invoices in the matching state:
//
//	Pending  == sum of TotalValue over VALIDATED transactions
//	Invoiced == sum of NetValue over INVOICED transactions
//	Paid     == sum of NetValue over PAID transactions
//
// Version is a stamp bumped on every mutation of the station's entity
// group; stores use it to detect concurrent writers.
type StationBalance struct {
	StationID string          `json:"station_id"`
	Pending   decimal.Decimal `json:"balance_pending"`
	Invoiced  decimal.Decimal `json:"balance_invoiced"`
	Paid      decimal.Decimal `json:"balance_paid"`
	Version   int64           `json:"version"`
}
