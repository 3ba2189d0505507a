/*
voucher.go - Fuel request creation

PURPOSE:
  A fleet manager asks for fuel at a station; the ledger records a
  REQUESTED transaction carrying a human-presentable voucher code the
  driver shows at the pump. Nothing is owed at this point, so no balance
  counter moves.

VOUCHER CODES:
  "FG-" plus 8 characters from an unambiguous uppercase alphabet, drawn
  from crypto/rand. Uniqueness is still checked against existing codes
  and generation retried on collision; the randomness only makes the
  retry loop academic.
*/
package ledger

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Alphabet omits 0/O and 1/I so codes survive being read over the phone.
const voucherAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const voucherLength = 8

// RequestFuelInput carries the fields of a fuel request.
type RequestFuelInput struct {
	OrgID           string
	StationID       string
	VehicleID       string
	DriverName      string
	FuelType        FuelType
	EstimatedLiters decimal.Decimal
}

// RequestFuel creates a new transaction in REQUESTED with a unique voucher
// code. Preconditions: estimated liters strictly positive, the vehicle
// belongs to the organization, and the station exists.
func (s *Service) RequestFuel(ctx context.Context, in RequestFuelInput) (*Transaction, error) {
	if !in.EstimatedLiters.IsPositive() {
		return nil, &ValidationError{Field: "estimated_liters", Reason: "must be positive"}
	}
	if in.DriverName == "" {
		return nil, &ValidationError{Field: "driver_name", Reason: "is required"}
	}
	if in.FuelType == "" {
		return nil, &ValidationError{Field: "fuel_type", Reason: "is required"}
	}

	if _, err := s.dir.Station(ctx, in.StationID); err != nil {
		return nil, fmt.Errorf("station %s: %w", in.StationID, err)
	}
	ok, err := s.dir.OrganizationExists(ctx, in.OrgID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("organization %s: %w", in.OrgID, ErrNotFound)
	}
	vehicle, err := s.dir.Vehicle(ctx, in.VehicleID)
	if err != nil {
		return nil, fmt.Errorf("vehicle %s: %w", in.VehicleID, err)
	}
	if vehicle.OrgID != in.OrgID {
		return nil, &ValidationError{Field: "vehicle_id", Reason: "does not belong to organization"}
	}

	code, err := s.uniqueVoucher(ctx)
	if err != nil {
		return nil, err
	}

	tx := Transaction{
		ID:                   s.newID(),
		VoucherCode:          code,
		OrgID:                in.OrgID,
		StationID:            in.StationID,
		VehicleID:            in.VehicleID,
		DriverName:           in.DriverName,
		FuelType:             in.FuelType,
		Status:               StatusRequested,
		RequestDate:          s.now(),
		RequestedLiters:      in.EstimatedLiters,
		FilledLiters:         decimal.Zero,
		PricePerLiter:        decimal.Zero,
		TotalValue:           decimal.Zero,
		FeeAmount:            decimal.Zero,
		NetValue:             decimal.Zero,
		FeePercentageApplied: decimal.Zero,
	}

	err = s.store.Mutate(ctx, in.StationID, func(v MutationView) error {
		return v.PutTransaction(tx)
	})
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// uniqueVoucher draws codes until one is unused. The loop is bounded to
// keep a broken store from spinning forever.
func (s *Service) uniqueVoucher(ctx context.Context) (string, error) {
	for attempt := 0; attempt < 10; attempt++ {
		code, err := newVoucherCode()
		if err != nil {
			return "", err
		}
		exists, err := s.store.VoucherExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("voucher generation: %w", ErrConflict)
}

func newVoucherCode() (string, error) {
	buf := make([]byte, voucherLength)
	max := big.NewInt(int64(len(voucherAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("voucher randomness: %w", err)
		}
		buf[i] = voucherAlphabet[n.Int64()]
	}
	return "FG-" + string(buf), nil
}
