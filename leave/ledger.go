/*
ledger.go - Balance ledger operations

PURPOSE:
  The Ledger is the only component allowed to mutate Balance rows. Every
  change goes through GetOrCreate, Debit, Credit or CarryForward; request
  submission reads balances but never writes them.

CRITICAL INVARIANTS:
  1. SINGLE WRITER: No other code path mutates a Balance row
  2. NON-NEGATIVITY: 0 <= used <= entitlement after every committed
     operation, unless an explicitly flagged backfill overrode it
  3. SERIALIZED: Debit/Credit on one row execute with mutual exclusion
     per (employee, fiscal year) - read balance, check sufficiency, write
     new balance is one critical section

OVERDRAFT POLICY:
  Historical-backfill entry points may need to push used above entitlement
  (e.g. importing last year's records after entitlements were lowered).
  Whether that is permitted is a constructor-time policy:
    - OverdraftReject: backfill debits fail like ordinary debits (default)
    - OverdraftClamp:  backfill debits are allowed to exceed entitlement;
                       remaining is clamped at zero in snapshots

SEE ALSO:
  - store.go:  BalanceStore upsert contract backing GetOrCreate
  - engine.go: The approval flow, the only debit call site for requests
*/
package leave

import (
	"context"
	"fmt"
	"sync"
)

// =============================================================================
// OVERDRAFT POLICY
// =============================================================================

type OverdraftPolicy int

const (
	// OverdraftReject refuses any debit that would exceed entitlement,
	// backfill or not.
	OverdraftReject OverdraftPolicy = iota

	// OverdraftClamp lets explicitly flagged backfill debits exceed
	// entitlement. Ordinary debits still fail.
	OverdraftClamp
)

// =============================================================================
// LEDGER
// =============================================================================

// Ledger performs all Balance mutations against a BalanceStore, serialized
// per (employee, fiscal year) with an in-process keyed mutex.
type Ledger struct {
	store     BalanceStore
	defaults  Entitlements
	overdraft OverdraftPolicy

	mu    sync.Mutex
	locks map[balanceKey]*sync.Mutex
}

type balanceKey struct {
	EmployeeID EmployeeID
	FiscalYear int
}

func NewLedger(store BalanceStore, defaults Entitlements, overdraft OverdraftPolicy) *Ledger {
	return &Ledger{
		store:     store,
		defaults:  defaults,
		overdraft: overdraft,
		locks:     make(map[balanceKey]*sync.Mutex),
	}
}

// lockFor returns the mutex guarding one ledger row. Lock instances are
// never removed; the key space is bounded by employees x fiscal years.
func (l *Ledger) lockFor(employeeID EmployeeID, fiscalYear int) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	k := balanceKey{EmployeeID: employeeID, FiscalYear: fiscalYear}
	lock, ok := l.locks[k]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[k] = lock
	}
	return lock
}

// =============================================================================
// ROW ACCESS
// =============================================================================

// GetOrCreate returns the ledger row for (employee, fiscal year), creating
// it with the ledger's default entitlements if absent. Safe under
// concurrent first use: the store's upsert guarantees a single row.
func (l *Ledger) GetOrCreate(ctx context.Context, employeeID EmployeeID, fiscalYear int) (*Balance, error) {
	lock := l.lockFor(employeeID, fiscalYear)
	lock.Lock()
	defer lock.Unlock()

	return l.store.GetOrCreateBalance(ctx, employeeID, fiscalYear, l.defaults)
}

// Get returns the row, or ErrNoBalanceRecord if it has not been provisioned.
func (l *Ledger) Get(ctx context.Context, employeeID EmployeeID, fiscalYear int) (*Balance, error) {
	return l.store.GetBalance(ctx, employeeID, fiscalYear)
}

// =============================================================================
// DEBIT / CREDIT
// =============================================================================

// Debit increases used[category] by amount. Fails with an
// InsufficientBalanceError if the result would exceed the remaining
// balance. This is the ONLY way usage increases.
func (l *Ledger) Debit(ctx context.Context, employeeID EmployeeID, fiscalYear int, category Category, amount Days) error {
	return l.debit(ctx, employeeID, fiscalYear, category, amount, false)
}

// DebitBackfill is the administrative/historical variant. Under
// OverdraftClamp it may push used above entitlement; under OverdraftReject
// it behaves exactly like Debit.
func (l *Ledger) DebitBackfill(ctx context.Context, employeeID EmployeeID, fiscalYear int, category Category, amount Days) error {
	return l.debit(ctx, employeeID, fiscalYear, category, amount, true)
}

func (l *Ledger) debit(ctx context.Context, employeeID EmployeeID, fiscalYear int, category Category, amount Days, backfill bool) error {
	if !category.Tracked() {
		return fmt.Errorf("category %q has no ledger column: %w", category, ErrInvalidCategory)
	}
	if amount.IsNegative() {
		return fmt.Errorf("debit amount must be non-negative, got %s", amount)
	}

	lock := l.lockFor(employeeID, fiscalYear)
	lock.Lock()
	defer lock.Unlock()

	balance, err := l.store.GetBalance(ctx, employeeID, fiscalYear)
	if err != nil {
		return err
	}

	remaining := balance.Remaining(category)
	if amount.GreaterThan(remaining) {
		override := backfill && l.overdraft == OverdraftClamp
		if !override {
			return &InsufficientBalanceError{
				EmployeeID: employeeID,
				FiscalYear: fiscalYear,
				Category:   category,
				Available:  remaining.Max(ZeroDays()),
				Requested:  amount,
			}
		}
	}

	balance.setUsed(category, balance.Used(category).Add(amount))
	return l.store.SaveBalance(ctx, balance)
}

// Credit decreases used[category] by amount, floored at zero. Used by
// reversal flows such as deleting an approved request.
func (l *Ledger) Credit(ctx context.Context, employeeID EmployeeID, fiscalYear int, category Category, amount Days) error {
	if !category.Tracked() {
		return fmt.Errorf("category %q has no ledger column: %w", category, ErrInvalidCategory)
	}
	if amount.IsNegative() {
		return fmt.Errorf("credit amount must be non-negative, got %s", amount)
	}

	lock := l.lockFor(employeeID, fiscalYear)
	lock.Lock()
	defer lock.Unlock()

	balance, err := l.store.GetBalance(ctx, employeeID, fiscalYear)
	if err != nil {
		return err
	}

	balance.setUsed(category, balance.Used(category).Sub(amount).Max(ZeroDays()))
	return l.store.SaveBalance(ctx, balance)
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot builds the display view of one row. Remaining values are
// clamped at zero here; the stored row keeps the true arithmetic.
func Snapshot(balance *Balance) *BalanceSnapshot {
	categories := make([]CategoryBalance, 0, 3)
	for _, c := range []Category{CategoryAnnual, CategorySick, CategoryCasual} {
		categories = append(categories, CategoryBalance{
			Category:    c,
			Entitlement: balance.Entitlement(c),
			Used:        balance.Used(c),
			Remaining:   balance.Remaining(c).Max(ZeroDays()),
		})
	}
	return &BalanceSnapshot{
		EmployeeID:   balance.EmployeeID,
		FiscalYear:   balance.FiscalYear,
		CarryForward: balance.CarryForward,
		Categories:   categories,
	}
}

// =============================================================================
// CARRY-FORWARD ROLLOVER
// =============================================================================

// CarryForward rolls the remaining Annual balance of fromYear into the
// following fiscal year's carry-forward pool, creating the target row with
// default entitlements if needed. A non-nil limit caps the carried amount.
//
// Idempotent per (employee, fromYear): once the target row is marked as
// carried into, reruns keep the recorded amount even if the source
// balance changed in between, and even if that amount was zero.
func (l *Ledger) CarryForward(ctx context.Context, employeeID EmployeeID, fromYear int, limit *Days) (Days, error) {
	source, err := l.Get(ctx, employeeID, fromYear)
	if err != nil {
		return ZeroDays(), err
	}

	carried := source.Remaining(CategoryAnnual).Max(ZeroDays())
	if limit != nil {
		carried = carried.Min(*limit)
	}

	toYear := fromYear + 1
	lock := l.lockFor(employeeID, toYear)
	lock.Lock()
	defer lock.Unlock()

	target, err := l.store.GetOrCreateBalance(ctx, employeeID, toYear, l.defaults)
	if err != nil {
		return ZeroDays(), err
	}
	if target.CarryForwardApplied {
		return target.CarryForward, nil
	}

	target.CarryForward = carried
	target.CarryForwardApplied = true
	if err := l.store.SaveBalance(ctx, target); err != nil {
		return ZeroDays(), err
	}
	return carried, nil
}
