/*
dto.go - Request and response data structures

PURPOSE:
  Wire shapes for the REST API. Domain types (Transaction, Invoice,
  StationBalance) carry their own JSON tags and go out as-is; this file
  holds the inbound request bodies and the response wrappers that differ
  from the domain shape.

MONEY ON THE WIRE:
  Monetary fields arrive as JSON strings ("123.45") and are parsed into
  decimals. Numbers would silently pass through float64.
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/frotagov/fuel-ledger/directory"
)

// =============================================================================
// AUTH
// =============================================================================

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string  `json:"token"`
	User  UserDTO `json:"user"`
}

// UserDTO is a User without the password hash.
type UserDTO struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Username  string         `json:"username"`
	Role      directory.Role `json:"role"`
	OrgID     string         `json:"org_id,omitempty"`
	StationID string         `json:"station_id,omitempty"`
}

func toUserDTO(u directory.User) UserDTO {
	return UserDTO{
		ID:        u.ID,
		Name:      u.Name,
		Username:  u.Username,
		Role:      u.Role,
		OrgID:     u.OrgID,
		StationID: u.StationID,
	}
}

type CreateUserRequest struct {
	Name      string         `json:"name"`
	Username  string         `json:"username"`
	Password  string         `json:"password"`
	Role      directory.Role `json:"role"`
	OrgID     string         `json:"org_id,omitempty"`
	StationID string         `json:"station_id,omitempty"`
}

// =============================================================================
// LEDGER OPERATIONS
// =============================================================================

type RequestFuelDTO struct {
	OrgID           string `json:"org_id"`
	StationID       string `json:"station_id"`
	VehicleID       string `json:"vehicle_id"`
	DriverName      string `json:"driver_name"`
	FuelType        string `json:"fuel_type"`
	EstimatedLiters string `json:"estimated_liters"`
}

type ValidateFillDTO struct {
	FilledLiters  string `json:"filled_liters"`
	PricePerLiter string `json:"price_per_liter"`
	Odometer      int64  `json:"odometer"`
}

type GenerateInvoiceDTO struct {
	StationID      string `json:"station_id"`
	OrgID          string `json:"org_id"`
	IsAdvance      bool   `json:"is_advance"`
	DocumentNumber string `json:"document_number"`
	FileRef        string `json:"file_ref,omitempty"`
}

type RejectInvoiceDTO struct {
	Reason string `json:"reason"`
}

// =============================================================================
// DIRECTORY
// =============================================================================

type SaveStationRequest struct {
	ID                string              `json:"id"`
	Name              string              `json:"name"`
	TaxID             string              `json:"tax_id"`
	Address           string              `json:"address"`
	ContactName       string              `json:"contact_name"`
	BaseFeePercent    string              `json:"base_fee_percent"`
	AdvanceFeePercent string              `json:"advance_fee_percent"`
	Products          []directory.Product `json:"products"`
	Status            string              `json:"status"`
}

// =============================================================================
// ERRORS
// =============================================================================

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// parseMoney parses a decimal wire string, treating empty as zero.
func parseMoney(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
