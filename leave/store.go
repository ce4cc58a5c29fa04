/*
store.go - Persistence interfaces

PURPOSE:
  Defines the boundary between the engine and the database. Different
  implementations can use SQLite or in-memory storage; the engine only
  sees these interfaces.

KEY INTERFACES:
  BalanceStore: Ledger row persistence (idempotent upsert + save)
  RequestStore: Leave request persistence
  RosterStore:  Employee roster (deactivate, never delete)
  HolidayStore: Holiday calendar

UPSERT CONTRACT:
  GetOrCreateBalance must be an upsert backed by a uniqueness guarantee on
  (employee, fiscal year) - not a read-then-insert race. Concurrent first
  use for the same key must produce exactly one row.

IMPLEMENTATIONS:
  - store/sqlite: Production SQLite (UNIQUE constraint + ON CONFLICT)
  - store/memory: In-memory for testing/dev (single lock)
*/
package leave

import (
	"context"
	"time"
)

// =============================================================================
// BALANCE STORE
// =============================================================================

// BalanceStore persists ledger rows. Stores return clones; mutations only
// take effect through SaveBalance, which the Ledger alone calls.
type BalanceStore interface {
	// GetOrCreateBalance returns the row for (employee, fiscal year),
	// creating it with the given entitlements if absent. Idempotent under
	// concurrent first use.
	GetOrCreateBalance(ctx context.Context, employeeID EmployeeID, fiscalYear int, defaults Entitlements) (*Balance, error)

	// GetBalance returns the row, or ErrNoBalanceRecord if absent.
	GetBalance(ctx context.Context, employeeID EmployeeID, fiscalYear int) (*Balance, error)

	// SaveBalance writes updated usage/carry-forward quantities back.
	// The row must already exist.
	SaveBalance(ctx context.Context, balance *Balance) error

	// ListBalances returns all rows for a fiscal year.
	ListBalances(ctx context.Context, fiscalYear int) ([]*Balance, error)
}

// =============================================================================
// REQUEST STORE
// =============================================================================

// RequestFilter narrows ListRequests. Zero values match everything.
type RequestFilter struct {
	EmployeeID EmployeeID
	Status     Status
	FiscalYear int
}

type RequestStore interface {
	// CreateRequest persists a new request. ErrDuplicate on ID collision.
	CreateRequest(ctx context.Context, request *Request) error

	// GetRequest returns the request, or ErrNotFound.
	GetRequest(ctx context.Context, id RequestID) (*Request, error)

	// UpdateRequest writes status and approval fields back. ErrNotFound
	// if the row is missing.
	UpdateRequest(ctx context.Context, request *Request) error

	// DeleteRequest removes the row. ErrNotFound if missing.
	DeleteRequest(ctx context.Context, id RequestID) error

	// ListRequests returns requests matching the filter, ordered by
	// submission time.
	ListRequests(ctx context.Context, filter RequestFilter) ([]*Request, error)
}

// =============================================================================
// ROSTER STORE
// =============================================================================

type RosterStore interface {
	// CreateEmployee persists a roster entry. ErrDuplicate on ID or code
	// collision.
	CreateEmployee(ctx context.Context, employee *Employee) error

	// GetEmployee returns the employee, or ErrNotFound.
	GetEmployee(ctx context.Context, id EmployeeID) (*Employee, error)

	// ListEmployees returns roster entries, optionally active only.
	ListEmployees(ctx context.Context, activeOnly bool) ([]*Employee, error)

	// DeactivateEmployee clears the active flag. The row remains;
	// employees are never deleted.
	DeactivateEmployee(ctx context.Context, id EmployeeID) error
}

// =============================================================================
// HOLIDAY STORE
// =============================================================================

type HolidayStore interface {
	// AddHoliday persists a holiday. ErrDuplicate for an existing date.
	AddHoliday(ctx context.Context, holiday Holiday) error

	// RemoveHoliday deletes by ID. ErrNotFound if missing.
	RemoveHoliday(ctx context.Context, id string) error

	// ListHolidays returns holidays with dates in [from, to] inclusive.
	ListHolidays(ctx context.Context, from, to time.Time) ([]Holiday, error)
}

// =============================================================================
// COMPOSITE STORE
// =============================================================================

// Store is the full persistence surface the engine is constructed with.
type Store interface {
	BalanceStore
	RequestStore
	RosterStore
	HolidayStore
}
