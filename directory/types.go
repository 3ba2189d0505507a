/*
Package directory holds the registries the ledger references by id:
organizations, fuel stations, vehicles and platform users.

PURPOSE:
  These records are owned here and mutated by admin screens, never by the
  ledger. The ledger consumes lookup-by-id plus the station fee schedule;
  everything else (addresses, contacts, product price lists) exists for
  the surrounding platform.

FEE SCHEDULE BOUNDS:
  Station fee percentages are validated on write to stay inside
  [1.5, 15]. The ledger trusts the bound rather than re-checking it on
  every read.
*/
package directory

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/frotagov/fuel-ledger/ledger"
)

var (
	// ErrNotFound is returned for missing directory records.
	ErrNotFound = errors.New("directory: not found")

	// ErrDuplicate is returned when a unique key (id, username) is taken.
	ErrDuplicate = errors.New("directory: duplicate key")

	// ErrFeeOutOfBounds is returned when a station's fee percentage falls
	// outside the allowed band.
	ErrFeeOutOfBounds = errors.New("directory: fee percentage out of bounds")
)

var (
	feeFloor = decimal.RequireFromString("1.5")
	feeCeil  = decimal.NewFromInt(15)
)

type RecordStatus string

const (
	StatusActive   RecordStatus = "ACTIVE"
	StatusInactive RecordStatus = "INACTIVE"
)

// Organization is a public-sector fleet owner. BalanceDue is the amount the
// organization owes the platform; the ledger never writes it.
type Organization struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	TaxID       string          `json:"tax_id"`
	Address     string          `json:"address"`
	ContactName string          `json:"contact_name"`
	BalanceDue  decimal.Decimal `json:"balance_due"`
	Status      RecordStatus    `json:"status"`
}

// Product is one fuel type a station sells, with its current pump price.
// Prices here only prefill the validation form; the ledger takes the price
// actually charged as input.
type Product struct {
	FuelType    ledger.FuelType `json:"fuel_type"`
	Price       decimal.Decimal `json:"price"`
	LastUpdated time.Time       `json:"last_updated"`
}

// FuelStation is an accredited station. Fees are read by the ledger at
// invoicing time; the running balance counters live with the ledger store,
// not here.
type FuelStation struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	TaxID       string             `json:"tax_id"`
	Address     string             `json:"address"`
	ContactName string             `json:"contact_name"`
	Fees        ledger.FeeSchedule `json:"fees"`
	Products    []Product          `json:"products"`
	Status      RecordStatus       `json:"status"`
}

// ValidateFees checks the station's percentages against the allowed band.
func (s *FuelStation) ValidateFees() error {
	base := s.Fees.BaseFeePercent
	if base.LessThan(feeFloor) || base.GreaterThan(feeCeil) {
		return ErrFeeOutOfBounds
	}
	adv := s.Fees.AdvanceFeePercent
	if adv.IsNegative() || base.Add(adv).GreaterThan(feeCeil) {
		return ErrFeeOutOfBounds
	}
	return nil
}

type VehicleClass string

const (
	VehicleLight   VehicleClass = "LIGHT"
	VehicleHeavy   VehicleClass = "HEAVY"
	VehicleMachine VehicleClass = "MACHINE"
)

// Vehicle is a fleet vehicle; a read-only input to the ledger.
type Vehicle struct {
	ID              string          `json:"id"`
	OrgID           string          `json:"org_id"`
	Plate           string          `json:"plate"`
	Model           string          `json:"model"`
	Department      string          `json:"department"`
	Class           VehicleClass    `json:"class"`
	CurrentOdometer int64           `json:"current_odometer"`
	AvgConsumption  decimal.Decimal `json:"avg_consumption"` // km per liter target
}

// =============================================================================
// USERS
// =============================================================================

type Role string

const (
	RoleSuperAdmin   Role = "SUPER_ADMIN"
	RoleFleetManager Role = "FLEET_MANAGER"
	RoleFuelStation  Role = "FUEL_STATION"
)

// User is a platform login. PasswordHash is a bcrypt-style opaque hash as
// produced by the auth package; the directory stores it without
// interpretation.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	Role         Role      `json:"role"`
	OrgID        string    `json:"org_id,omitempty"`
	StationID    string    `json:"station_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
