/*
errors.go - Centralized error types for the leave engine

PURPOSE:
  All domain errors in one place for consistency and discoverability.
  The engine never catches-and-swallows these; they are returned for the
  consuming layer to map to user-visible messages.

ERROR CATEGORIES:
  1. Validation errors - Bad input (date range, category)
  2. Business-rule errors - Insufficient balance, invalid state transition
  3. Lookup errors - Missing request, employee, or balance row

RETRY POLICY:
  Business-rule failures (ErrInsufficientBalance, ErrInvalidState) must
  never be retried: they fail identically every time. Only transient
  persistence contention is retryable, and that lives in the store layer.

USAGE:
  Callers match with errors.Is / errors.As:

    var ibe *leave.InsufficientBalanceError
    if errors.As(err, &ibe) {
        fmt.Printf("only %s days available\n", ibe.Available)
    }
*/
package leave

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidDateRange is returned when the end date precedes the start date.
	ErrInvalidDateRange = errors.New("invalid date range: end before start")

	// ErrInvalidCategory is returned for an unknown leave category.
	ErrInvalidCategory = errors.New("invalid leave category")

	// ErrInsufficientBalance is returned when a debit or a checked submission
	// would exceed the remaining balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrNoBalanceRecord is returned when no ledger row exists for the
	// resolved fiscal year and the engine is configured to require
	// pre-provisioning.
	ErrNoBalanceRecord = errors.New("no balance record for fiscal year")

	// ErrInvalidState is returned for an approve/reject on a request that is
	// not pending. Surfaced as a conflict, never retried.
	ErrInvalidState = errors.New("invalid request state")

	// ErrNotFound is returned when a referenced request or employee does
	// not exist.
	ErrNotFound = errors.New("not found")

	// ErrInactiveEmployee is returned when a deactivated employee is used
	// as the subject of a new request.
	ErrInactiveEmployee = errors.New("employee is not active")

	// ErrDuplicate is returned by stores on unique-key collisions
	// (employee code, holiday date, request ID).
	ErrDuplicate = errors.New("duplicate record")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientBalanceError reports a balance shortage, including the
// available amount for display. Never silently truncated.
type InsufficientBalanceError struct {
	EmployeeID EmployeeID
	FiscalYear int
	Category   Category
	Available  Days
	Requested  Days
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient %s balance for %s in FY%d: available %s, requested %s",
		e.Category, e.EmployeeID, e.FiscalYear, e.Available, e.Requested)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// Shortfall is the amount by which the request exceeds the balance.
func (e *InsufficientBalanceError) Shortfall() Days {
	return e.Requested.Sub(e.Available)
}

// InvalidStateError reports an attempted transition on a non-pending request.
type InvalidStateError struct {
	RequestID RequestID
	Status    Status
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("request %s is %s, only pending requests can transition", e.RequestID, e.Status)
}

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input
// or a business-rule refusal (maps to a 4xx in an HTTP layer).
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidDateRange) ||
		errors.Is(err, ErrInvalidCategory) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrInactiveEmployee) ||
		errors.Is(err, ErrDuplicate)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrNoBalanceRecord)
}

// IsConflict returns true for state-transition conflicts.
func IsConflict(err error) bool {
	return errors.Is(err, ErrInvalidState)
}
