/*
engine.go - Leave request state machine

PURPOSE:
  Owns the lifecycle of a leave request from submission through approval
  or rejection, and commits ledger debits exactly once.

REQUEST FLOW:

  Submit ──▶ Pending ──▶ Approve ──▶ Approved   (ledger debited here, once)
                  │
                  └─────▶ Reject ──▶ Rejected   (no ledger effect)

  Record ─────────────────────────▶ Approved    (admin create-and-commit:
                                                 debit happens synchronously
                                                 at creation, one operation)

SUBMIT vs RECORD:
  Record is NOT submit-followed-by-auto-approve. Modeling it that way
  invites a double-debit: the auto-approve step could race a manual
  approval of the same row. Record debits first, then persists the request
  already in Approved state, as a single operation.

BALANCE CHECK SCOPE:
  Submission validates remaining balance for Annual and Sick only. Casual
  and Absent submissions skip the check - preserved source behavior, kept
  deliberately until product says otherwise. Approval still enforces the
  ledger's non-negativity for every tracked category.

CONCURRENCY:
  Transitions on one request serialize on a per-request mutex; balance
  mutations serialize inside the Ledger per (employee, fiscal year). Two
  concurrent approvals against the same row therefore observe each other's
  debits before deciding sufficiency.

SEE ALSO:
  - ledger.go:   Debit/Credit, the only balance mutation path
  - calendar.go: RangeCost, the only day-count computation
  - fiscal.go:   FiscalYearOf, the only fiscal resolution
*/
package leave

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ENGINE CONFIGURATION
// =============================================================================

// Options configures an Engine. The zero value is usable: default
// entitlements, overdraft rejected, balances auto-provisioned.
type Options struct {
	// Entitlements used when a ledger row is created lazily.
	// Zero value means DefaultEntitlements (21/10/5).
	Entitlements Entitlements

	// Overdraft controls whether backfill entries may exceed entitlement.
	Overdraft OverdraftPolicy

	// RequireProvisioned makes Submit fail with ErrNoBalanceRecord when no
	// ledger row exists for the resolved fiscal year, instead of creating
	// one with default entitlements.
	RequireProvisioned bool
}

func (o Options) entitlements() Entitlements {
	zero := Entitlements{}
	if o.Entitlements == zero {
		return DefaultEntitlements()
	}
	return o.Entitlements
}

// =============================================================================
// ENGINE
// =============================================================================

// Engine is the explicitly constructed root object holding all
// collaborators. It has no ambient global state.
type Engine struct {
	store  Store
	ledger *Ledger
	opts   Options

	mu       sync.Mutex
	reqLocks map[RequestID]*sync.Mutex
}

func NewEngine(store Store, opts Options) *Engine {
	return &Engine{
		store:    store,
		ledger:   NewLedger(store, opts.entitlements(), opts.Overdraft),
		opts:     opts,
		reqLocks: make(map[RequestID]*sync.Mutex),
	}
}

// Ledger exposes the balance ledger for direct administrative use
// (provisioning, rollover). All mutations still serialize through it.
func (e *Engine) Ledger() *Ledger { return e.ledger }

func (e *Engine) lockRequest(id RequestID) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	lock, ok := e.reqLocks[id]
	if !ok {
		lock = &sync.Mutex{}
		e.reqLocks[id] = lock
	}
	return lock
}

// =============================================================================
// SUBMIT - self-service entry, lands in Pending
// =============================================================================

// SubmitInput carries one self-service leave submission.
type SubmitInput struct {
	EmployeeID EmployeeID
	Category   Category
	StartDate  time.Time
	EndDate    time.Time
	Unit       Unit // zero value means full-day
	Reason     string
}

// Submit validates the request, computes its chargeable day count and
// fiscal year, checks the balance for Annual/Sick, and persists it in
// Pending. The ledger is NOT debited here.
func (e *Engine) Submit(ctx context.Context, in SubmitInput) (*Request, error) {
	if !in.Category.Valid() {
		return nil, fmt.Errorf("category %q: %w", in.Category, ErrInvalidCategory)
	}

	employee, err := e.store.GetEmployee(ctx, in.EmployeeID)
	if err != nil {
		return nil, err
	}
	if !employee.Active {
		return nil, fmt.Errorf("employee %s: %w", in.EmployeeID, ErrInactiveEmployee)
	}

	fiscalYear := FiscalYearOf(in.StartDate)

	totalDays, err := e.rangeCost(ctx, in.StartDate, in.EndDate, in.Unit)
	if err != nil {
		return nil, err
	}

	if in.Category.Checked() {
		balance, err := e.balanceFor(ctx, in.EmployeeID, fiscalYear)
		if err != nil {
			return nil, err
		}
		if totalDays.GreaterThan(balance.Remaining(in.Category)) {
			return nil, &InsufficientBalanceError{
				EmployeeID: in.EmployeeID,
				FiscalYear: fiscalYear,
				Category:   in.Category,
				Available:  balance.Remaining(in.Category).Max(ZeroDays()),
				Requested:  totalDays,
			}
		}
	}

	request := &Request{
		ID:          RequestID(uuid.NewString()),
		EmployeeID:  in.EmployeeID,
		Category:    in.Category,
		StartDate:   truncateDay(in.StartDate),
		EndDate:     truncateDay(in.EndDate),
		TotalDays:   totalDays,
		FiscalYear:  fiscalYear,
		Reason:      in.Reason,
		Status:      StatusPending,
		SubmittedAt: time.Now().UTC(),
	}

	if err := e.store.CreateRequest(ctx, request); err != nil {
		return nil, err
	}
	return request, nil
}

// balanceFor resolves the ledger row under the engine's provisioning
// policy: created lazily with default entitlements, unless the engine is
// configured to require pre-provisioned rows.
func (e *Engine) balanceFor(ctx context.Context, employeeID EmployeeID, fiscalYear int) (*Balance, error) {
	if e.opts.RequireProvisioned {
		return e.ledger.Get(ctx, employeeID, fiscalYear)
	}
	return e.ledger.GetOrCreate(ctx, employeeID, fiscalYear)
}

func (e *Engine) rangeCost(ctx context.Context, start, end time.Time, unit Unit) (Days, error) {
	if unit == "" {
		unit = UnitFullDay
	}
	if truncateDay(end).Before(truncateDay(start)) {
		return ZeroDays(), ErrInvalidDateRange
	}

	holidays, err := e.store.ListHolidays(ctx, truncateDay(start), truncateDay(end))
	if err != nil {
		return ZeroDays(), fmt.Errorf("failed to load holidays: %w", err)
	}
	return RangeCost(start, end, HolidaySetFrom(holidays), unit)
}

// =============================================================================
// APPROVE / REJECT
// =============================================================================

// Approve transitions a pending request to Approved and debits the ledger
// exactly once. If the balance has shifted since submission and the debit
// fails, the request stays Pending and the error is surfaced.
func (e *Engine) Approve(ctx context.Context, id RequestID, approverID EmployeeID) (*Request, error) {
	lock := e.lockRequest(id)
	lock.Lock()
	defer lock.Unlock()

	request, err := e.store.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.Status != StatusPending {
		return nil, &InvalidStateError{RequestID: id, Status: request.Status}
	}

	// The one and only debit for a self-service request. Submission only
	// provisioned the row for balance-checked categories, so a Casual
	// request may be the employee's first ledger touch.
	if request.Category.Tracked() {
		if _, err := e.balanceFor(ctx, request.EmployeeID, request.FiscalYear); err != nil {
			return nil, err
		}
		if err := e.ledger.Debit(ctx, request.EmployeeID, request.FiscalYear, request.Category, request.TotalDays); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	request.Status = StatusApproved
	request.ApprovedBy = approverID
	request.ApprovedAt = &now

	if err := e.store.UpdateRequest(ctx, request); err != nil {
		// Roll the debit back so the ledger stays consistent with the
		// still-pending request.
		if request.Category.Tracked() {
			_ = e.ledger.Credit(ctx, request.EmployeeID, request.FiscalYear, request.Category, request.TotalDays)
		}
		return nil, err
	}
	return request, nil
}

// Reject transitions a pending request to Rejected. No ledger effect.
func (e *Engine) Reject(ctx context.Context, id RequestID, rejecterID EmployeeID) (*Request, error) {
	lock := e.lockRequest(id)
	lock.Lock()
	defer lock.Unlock()

	request, err := e.store.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.Status != StatusPending {
		return nil, &InvalidStateError{RequestID: id, Status: request.Status}
	}

	now := time.Now().UTC()
	request.Status = StatusRejected
	request.ApprovedBy = rejecterID
	request.ApprovedAt = &now

	if err := e.store.UpdateRequest(ctx, request); err != nil {
		return nil, err
	}
	return request, nil
}

// =============================================================================
// RECORD - administrative create-and-commit
// =============================================================================

// RecordInput carries one administrative/manual entry.
type RecordInput struct {
	EmployeeID EmployeeID
	Category   Category
	StartDate  time.Time
	EndDate    time.Time
	Unit       Unit
	Reason     string
	ApproverID EmployeeID

	// Backfill marks a historical import. Under OverdraftClamp the debit
	// may exceed entitlement; under OverdraftReject it cannot.
	Backfill bool
}

// Record creates a request directly in Approved state and debits the
// ledger synchronously. This is one atomic operation, not a submit
// followed by an auto-approve.
func (e *Engine) Record(ctx context.Context, in RecordInput) (*Request, error) {
	if !in.Category.Valid() {
		return nil, fmt.Errorf("category %q: %w", in.Category, ErrInvalidCategory)
	}

	employee, err := e.store.GetEmployee(ctx, in.EmployeeID)
	if err != nil {
		return nil, err
	}
	if !employee.Active && !in.Backfill {
		return nil, fmt.Errorf("employee %s: %w", in.EmployeeID, ErrInactiveEmployee)
	}

	fiscalYear := FiscalYearOf(in.StartDate)

	totalDays, err := e.rangeCost(ctx, in.StartDate, in.EndDate, in.Unit)
	if err != nil {
		return nil, err
	}

	if in.Category.Tracked() {
		// Administrative rows always land in a provisioned ledger row.
		if _, err := e.ledger.GetOrCreate(ctx, in.EmployeeID, fiscalYear); err != nil {
			return nil, err
		}

		debit := e.ledger.Debit
		if in.Backfill {
			debit = e.ledger.DebitBackfill
		}
		if err := debit(ctx, in.EmployeeID, fiscalYear, in.Category, totalDays); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	request := &Request{
		ID:          RequestID(uuid.NewString()),
		EmployeeID:  in.EmployeeID,
		Category:    in.Category,
		StartDate:   truncateDay(in.StartDate),
		EndDate:     truncateDay(in.EndDate),
		TotalDays:   totalDays,
		FiscalYear:  fiscalYear,
		Reason:      in.Reason,
		Status:      StatusApproved,
		ApprovedBy:  in.ApproverID,
		ApprovedAt:  &now,
		SubmittedAt: now,
	}

	if err := e.store.CreateRequest(ctx, request); err != nil {
		// Compensate the committed debit; the entry never existed.
		if in.Category.Tracked() {
			_ = e.ledger.Credit(ctx, in.EmployeeID, fiscalYear, in.Category, totalDays)
		}
		return nil, err
	}
	return request, nil
}

// =============================================================================
// DELETE
// =============================================================================

// Delete removes a request. Pending and Rejected rows carry no ledger
// effect and are simply removed. Deleting an Approved request credits
// back the exact amount it debited.
func (e *Engine) Delete(ctx context.Context, id RequestID) error {
	lock := e.lockRequest(id)
	lock.Lock()
	defer lock.Unlock()

	request, err := e.store.GetRequest(ctx, id)
	if err != nil {
		return err
	}

	if request.Status == StatusApproved && request.Category.Tracked() {
		if err := e.ledger.Credit(ctx, request.EmployeeID, request.FiscalYear, request.Category, request.TotalDays); err != nil {
			return err
		}
	}
	return e.store.DeleteRequest(ctx, id)
}

// =============================================================================
// READ MODELS
// =============================================================================

// BalanceView returns the display snapshot for one (employee, fiscal year),
// provisioning the row under the same policy as submission.
func (e *Engine) BalanceView(ctx context.Context, employeeID EmployeeID, fiscalYear int) (*BalanceSnapshot, error) {
	balance, err := e.balanceFor(ctx, employeeID, fiscalYear)
	if err != nil {
		return nil, err
	}
	return Snapshot(balance), nil
}

// Requests lists requests matching the filter.
func (e *Engine) Requests(ctx context.Context, filter RequestFilter) ([]*Request, error) {
	return e.store.ListRequests(ctx, filter)
}

// EmployeeSummary is one line of a fiscal-year summary report.
type EmployeeSummary struct {
	Employee *Employee
	Balance  *BalanceSnapshot
}

// FiscalYearSummary returns a balance snapshot for every active employee
// with a ledger row in the given fiscal year.
func (e *Engine) FiscalYearSummary(ctx context.Context, fiscalYear int) ([]EmployeeSummary, error) {
	employees, err := e.store.ListEmployees(ctx, true)
	if err != nil {
		return nil, err
	}

	byID := make(map[EmployeeID]*Employee, len(employees))
	for _, emp := range employees {
		byID[emp.ID] = emp
	}

	balances, err := e.store.ListBalances(ctx, fiscalYear)
	if err != nil {
		return nil, err
	}

	var summaries []EmployeeSummary
	for _, b := range balances {
		emp, ok := byID[b.EmployeeID]
		if !ok {
			continue // inactive or unknown
		}
		summaries = append(summaries, EmployeeSummary{
			Employee: emp,
			Balance:  Snapshot(b),
		})
	}
	return summaries, nil
}

// =============================================================================
// ROLLOVER
// =============================================================================

// Rollover carries every active employee's remaining Annual balance from
// fromYear into the next fiscal year. A non-nil limit caps each carried
// amount. Employees without a row in fromYear are skipped.
func (e *Engine) Rollover(ctx context.Context, fromYear int, limit *Days) (map[EmployeeID]Days, error) {
	employees, err := e.store.ListEmployees(ctx, true)
	if err != nil {
		return nil, err
	}

	carried := make(map[EmployeeID]Days, len(employees))
	for _, emp := range employees {
		amount, err := e.ledger.CarryForward(ctx, emp.ID, fromYear, limit)
		if err != nil {
			if IsNotFound(err) {
				continue
			}
			return nil, fmt.Errorf("rollover for %s: %w", emp.ID, err)
		}
		carried[emp.ID] = amount
	}
	return carried, nil
}
