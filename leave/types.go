/*
Package leave implements a leave-accrual and fiscal-year accounting engine.

PURPOSE:
  This package contains the domain types and algorithms for converting a
  requested date range into a chargeable leave-day quantity, tracking
  per-employee balances against an October-start fiscal-year cycle, and
  enforcing approval-time consistency: no double-deduction, no negative
  balances, correct status transitions.

KEY CONCEPTS IN THIS FILE (types.go):
  - Days: A fractional day quantity backed by decimal.Decimal
  - Employee: Identity anchor for all ledger and request rows
  - Balance: The (employee, fiscal year) entitlement/usage ledger row
  - Request: The transactional unit moving through the approval lifecycle

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal so 0.5-day Saturdays never drift
  2. Type Safety: Strong typing for IDs prevents mixing employee/request IDs
  3. Single Writer: Balance rows are mutated only through the Ledger
  4. No Globals: The engine is an explicitly constructed object; all
     collaborators (roster, holidays, persistence) are injected

SEE ALSO:
  - calendar.go: Day classification and range cost calculation
  - fiscal.go:   Fiscal year resolution
  - ledger.go:   Balance ledger operations
  - engine.go:   Request state machine
*/
package leave

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DAYS - Fractional day quantity
// =============================================================================

// Days is a leave-day quantity. Always non-negative in entitlement and
// usage fields; signs only appear transiently in arithmetic.
type Days struct {
	Value decimal.Decimal
}

func NewDays(value float64) Days {
	return Days{Value: decimal.NewFromFloat(value)}
}

func DaysFromInt(value int) Days {
	return Days{Value: decimal.NewFromInt(int64(value))}
}

// ZeroDays is the additive identity.
func ZeroDays() Days { return Days{Value: decimal.Zero} }

func (d Days) Add(o Days) Days            { return Days{Value: d.Value.Add(o.Value)} }
func (d Days) Sub(o Days) Days            { return Days{Value: d.Value.Sub(o.Value)} }
func (d Days) Mul(s decimal.Decimal) Days { return Days{Value: d.Value.Mul(s)} }
func (d Days) IsZero() bool               { return d.Value.IsZero() }
func (d Days) IsNegative() bool           { return d.Value.IsNegative() }
func (d Days) IsPositive() bool           { return d.Value.IsPositive() }
func (d Days) GreaterThan(o Days) bool    { return d.Value.GreaterThan(o.Value) }
func (d Days) LessThan(o Days) bool       { return d.Value.LessThan(o.Value) }
func (d Days) Equal(o Days) bool          { return d.Value.Equal(o.Value) }
func (d Days) String() string             { return d.Value.String() }

func (d Days) Min(o Days) Days {
	if d.LessThan(o) {
		return d
	}
	return o
}

func (d Days) Max(o Days) Days {
	if d.GreaterThan(o) {
		return d
	}
	return o
}

func (d Days) Float() float64 {
	f, _ := d.Value.Float64()
	return f
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type RequestID string

// =============================================================================
// LEAVE CATEGORY
// =============================================================================

// Category is the kind of leave being requested.
type Category string

const (
	CategoryAnnual Category = "annual"
	CategorySick   Category = "sick"
	CategoryCasual Category = "casual"
	CategoryAbsent Category = "absent"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryAnnual, CategorySick, CategoryCasual, CategoryAbsent:
		return true
	}
	return false
}

// Checked reports whether submissions in this category are validated
// against the remaining balance. Only Annual and Sick are checked;
// Casual and Absent submissions skip the balance check (the historical
// behavior this engine preserves).
func (c Category) Checked() bool {
	return c == CategoryAnnual || c == CategorySick
}

// Tracked reports whether the category has a ledger column at all.
// Absent requests never touch the balance ledger.
func (c Category) Tracked() bool {
	return c == CategoryAnnual || c == CategorySick || c == CategoryCasual
}

// =============================================================================
// REQUEST STATUS
// =============================================================================

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// =============================================================================
// EMPLOYEE - Identity anchor
// =============================================================================

// Employee is the roster entry referenced by every balance and request row.
// Employees are deactivated on exit, never deleted.
type Employee struct {
	ID         EmployeeID
	Code       string // e.g. "EMP001"
	Name       string
	Department string
	HireDate   time.Time
	Active     bool
}

// =============================================================================
// HOLIDAY - Named non-chargeable calendar date
// =============================================================================

// Holiday affects cost calculation for any range that spans it at the time
// of calculation. Retroactive edits do not recompute committed requests.
type Holiday struct {
	ID   string
	Date time.Time
	Name string
}

// =============================================================================
// ENTITLEMENTS - Per-category grant for one fiscal year
// =============================================================================

type Entitlements struct {
	Annual Days
	Sick   Days
	Casual Days
}

// DefaultEntitlements returns the standard yearly grant: 21 annual,
// 10 sick, 5 casual.
func DefaultEntitlements() Entitlements {
	return Entitlements{
		Annual: DaysFromInt(21),
		Sick:   DaysFromInt(10),
		Casual: DaysFromInt(5),
	}
}

// =============================================================================
// BALANCE - The ledger row for one (employee, fiscal year)
// =============================================================================

// Balance holds entitlement and usage per category plus the annual
// carry-forward pool. Exactly one row exists per (employee, fiscal year).
//
// INVARIANT: 0 <= Used <= Entitlement for every tracked category after any
// committed operation, unless an explicitly flagged backfill overrode it.
//
// Balance rows are mutated ONLY by the Ledger. Request submission never
// writes here.
type Balance struct {
	EmployeeID EmployeeID
	FiscalYear int

	Annual Days
	Sick   Days
	Casual Days

	UsedAnnual Days
	UsedSick   Days
	UsedCasual Days

	// CarryForward is unused Annual rolled in from the prior fiscal year.
	// It extends the Annual pool only.
	CarryForward Days

	// CarryForwardApplied records that rollover already ran for this row.
	// A legitimately zero carried amount is just as final as a positive
	// one; the flag is what makes rollover idempotent, not the amount.
	CarryForwardApplied bool
}

// Entitlement returns the granted quantity for a tracked category.
func (b *Balance) Entitlement(c Category) Days {
	switch c {
	case CategoryAnnual:
		return b.Annual
	case CategorySick:
		return b.Sick
	case CategoryCasual:
		return b.Casual
	}
	return ZeroDays()
}

// Used returns the consumed quantity for a tracked category.
func (b *Balance) Used(c Category) Days {
	switch c {
	case CategoryAnnual:
		return b.UsedAnnual
	case CategorySick:
		return b.UsedSick
	case CategoryCasual:
		return b.UsedCasual
	}
	return ZeroDays()
}

// Remaining returns entitlement minus used, plus carry-forward for Annual.
// Read-only; may be negative after a backfill override.
func (b *Balance) Remaining(c Category) Days {
	remaining := b.Entitlement(c).Sub(b.Used(c))
	if c == CategoryAnnual {
		remaining = remaining.Add(b.CarryForward)
	}
	return remaining
}

func (b *Balance) setUsed(c Category, used Days) {
	switch c {
	case CategoryAnnual:
		b.UsedAnnual = used
	case CategorySick:
		b.UsedSick = used
	case CategoryCasual:
		b.UsedCasual = used
	}
}

// Clone returns a deep copy. Stores hand out clones so callers cannot
// mutate ledger state behind the Ledger's back.
func (b *Balance) Clone() *Balance {
	clone := *b
	return &clone
}

// =============================================================================
// BALANCE SNAPSHOT - Read model for display
// =============================================================================

// CategoryBalance is one category's line in a snapshot. Remaining is
// clamped at zero for display; the underlying row may be negative after
// a backfill override.
type CategoryBalance struct {
	Category    Category
	Entitlement Days
	Used        Days
	Remaining   Days
}

// BalanceSnapshot is the user-facing view of one ledger row.
type BalanceSnapshot struct {
	EmployeeID   EmployeeID
	FiscalYear   int
	CarryForward Days
	Categories   []CategoryBalance
}

// Category returns the line for c, or a zero line if absent.
func (s *BalanceSnapshot) Category(c Category) CategoryBalance {
	for _, cb := range s.Categories {
		if cb.Category == c {
			return cb
		}
	}
	return CategoryBalance{Category: c}
}

// =============================================================================
// REQUEST - The transactional unit
// =============================================================================

// Request is a leave request moving through the approval lifecycle.
//
// TotalDays and FiscalYear are fixed at creation time and never recomputed,
// even if holidays or entitlements change later.
type Request struct {
	ID         RequestID
	EmployeeID EmployeeID
	Category   Category
	StartDate  time.Time
	EndDate    time.Time

	// TotalDays is the chargeable day count computed at submission.
	TotalDays Days

	// FiscalYear is resolved from StartDate at submission.
	FiscalYear int

	Reason string
	Status Status

	ApprovedBy  EmployeeID // actor of the approve/reject transition
	ApprovedAt  *time.Time
	SubmittedAt time.Time
}
