/*
errors.go - Centralized error taxonomy for the ledger

PURPOSE:
  All ledger error types in one place. Callers branch with errors.Is /
  errors.As; the categories are deliberately distinct and never coerced
  into one another:

  1. ErrValidation       - bad input; nothing was mutated
  2. ErrInvalidState     - entity not in the required source state;
                           re-fetch and retry deliberately
  3. ErrNothingToInvoice - aggregation found zero eligible transactions
  4. ErrConflict         - lost a concurrent-mutation race; retry with
                           fresh data
  5. ErrIntegrity        - a broken invariant (negative counter, fee+net
                           not summing to total); fatal, mutation halted
                           for the affected station pending manual
                           reconciliation

USAGE:
  if errors.Is(err, ledger.ErrInvalidState) { ... }
  var ise *ledger.InvalidStateError
  if errors.As(err, &ise) { log.Printf("was %s", ise.Actual) }
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned for missing, zero or negative numeric input
	// and empty document numbers. Always recoverable; no partial mutation.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidState is returned when an operation targets a transaction or
	// invoice that is not in the required source state.
	ErrInvalidState = errors.New("entity not in required state")

	// ErrNothingToInvoice is returned when invoice generation finds no
	// VALIDATED transactions for the station/organization pair.
	ErrNothingToInvoice = errors.New("no validated transactions to invoice")

	// ErrConflict is returned when a concurrent mutation wins the race.
	// Distinct from ErrInvalidState: the caller should re-read and retry.
	ErrConflict = errors.New("concurrent modification detected")

	// ErrIntegrity is returned when a ledger invariant is found broken.
	// Not recoverable by retry.
	ErrIntegrity = errors.New("ledger integrity violation")

	// ErrNotFound is returned when a referenced transaction or invoice
	// does not exist.
	ErrNotFound = errors.New("not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError names the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// InvalidStateError reports the state an entity was actually in.
type InvalidStateError struct {
	Entity   string // "transaction" or "invoice"
	ID       string
	Expected string
	Actual   string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s %s is %s, expected %s", e.Entity, e.ID, e.Actual, e.Expected)
}

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

// IntegrityError describes which invariant broke for which station.
type IntegrityError struct {
	StationID string
	Detail    string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity violation at station %s: %s", e.StationID, e.Detail)
}

func (e *IntegrityError) Unwrap() error { return ErrIntegrity }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable reports whether the operation might succeed if replayed with
// freshly read state.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsClientError reports whether the error is the caller's fault rather than
// the ledger's.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrNothingToInvoice) ||
		errors.Is(err, ErrNotFound)
}
