// Package memory provides an in-memory leave.Store implementation
// (for testing/dev).
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type Store struct {
	mu        sync.RWMutex
	balances  map[balanceKey]*leave.Balance
	requests  map[leave.RequestID]*leave.Request
	employees map[leave.EmployeeID]*leave.Employee
	holidays  map[string]leave.Holiday // keyed by ID
}

type balanceKey struct {
	EmployeeID leave.EmployeeID
	FiscalYear int
}

func New() *Store {
	return &Store{
		balances:  make(map[balanceKey]*leave.Balance),
		requests:  make(map[leave.RequestID]*leave.Request),
		employees: make(map[leave.EmployeeID]*leave.Employee),
		holidays:  make(map[string]leave.Holiday),
	}
}

// Compile-time check.
var _ leave.Store = (*Store)(nil)

// =============================================================================
// BALANCE STORE
// =============================================================================

// GetOrCreateBalance upserts under a single lock, so concurrent first use
// for the same key yields exactly one row.
func (s *Store) GetOrCreateBalance(_ context.Context, employeeID leave.EmployeeID, fiscalYear int, defaults leave.Entitlements) (*leave.Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := balanceKey{EmployeeID: employeeID, FiscalYear: fiscalYear}
	if existing, ok := s.balances[k]; ok {
		return existing.Clone(), nil
	}

	balance := &leave.Balance{
		EmployeeID: employeeID,
		FiscalYear: fiscalYear,
		Annual:     defaults.Annual,
		Sick:       defaults.Sick,
		Casual:     defaults.Casual,
	}
	s.balances[k] = balance
	return balance.Clone(), nil
}

func (s *Store) GetBalance(_ context.Context, employeeID leave.EmployeeID, fiscalYear int) (*leave.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	balance, ok := s.balances[balanceKey{EmployeeID: employeeID, FiscalYear: fiscalYear}]
	if !ok {
		return nil, leave.ErrNoBalanceRecord
	}
	return balance.Clone(), nil
}

func (s *Store) SaveBalance(_ context.Context, balance *leave.Balance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := balanceKey{EmployeeID: balance.EmployeeID, FiscalYear: balance.FiscalYear}
	if _, ok := s.balances[k]; !ok {
		return leave.ErrNoBalanceRecord
	}
	s.balances[k] = balance.Clone()
	return nil
}

func (s *Store) ListBalances(_ context.Context, fiscalYear int) ([]*leave.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*leave.Balance
	for k, b := range s.balances {
		if k.FiscalYear == fiscalYear {
			result = append(result, b.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].EmployeeID < result[j].EmployeeID
	})
	return result, nil
}

// =============================================================================
// REQUEST STORE
// =============================================================================

func (s *Store) CreateRequest(_ context.Context, request *leave.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.requests[request.ID]; ok {
		return leave.ErrDuplicate
	}
	s.requests[request.ID] = cloneRequest(request)
	return nil
}

func (s *Store) GetRequest(_ context.Context, id leave.RequestID) (*leave.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	request, ok := s.requests[id]
	if !ok {
		return nil, leave.ErrNotFound
	}
	return cloneRequest(request), nil
}

func (s *Store) UpdateRequest(_ context.Context, request *leave.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.requests[request.ID]; !ok {
		return leave.ErrNotFound
	}
	s.requests[request.ID] = cloneRequest(request)
	return nil
}

func (s *Store) DeleteRequest(_ context.Context, id leave.RequestID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.requests[id]; !ok {
		return leave.ErrNotFound
	}
	delete(s.requests, id)
	return nil
}

func (s *Store) ListRequests(_ context.Context, filter leave.RequestFilter) ([]*leave.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*leave.Request
	for _, r := range s.requests {
		if filter.EmployeeID != "" && r.EmployeeID != filter.EmployeeID {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if filter.FiscalYear != 0 && r.FiscalYear != filter.FiscalYear {
			continue
		}
		result = append(result, cloneRequest(r))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].SubmittedAt.Before(result[j].SubmittedAt)
	})
	return result, nil
}

// =============================================================================
// ROSTER STORE
// =============================================================================

func (s *Store) CreateEmployee(_ context.Context, employee *leave.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.employees[employee.ID]; ok {
		return leave.ErrDuplicate
	}
	for _, existing := range s.employees {
		if existing.Code == employee.Code {
			return leave.ErrDuplicate
		}
	}
	clone := *employee
	s.employees[employee.ID] = &clone
	return nil
}

func (s *Store) GetEmployee(_ context.Context, id leave.EmployeeID) (*leave.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	employee, ok := s.employees[id]
	if !ok {
		return nil, leave.ErrNotFound
	}
	clone := *employee
	return &clone, nil
}

func (s *Store) ListEmployees(_ context.Context, activeOnly bool) ([]*leave.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*leave.Employee
	for _, e := range s.employees {
		if activeOnly && !e.Active {
			continue
		}
		clone := *e
		result = append(result, &clone)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result, nil
}

func (s *Store) DeactivateEmployee(_ context.Context, id leave.EmployeeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	employee, ok := s.employees[id]
	if !ok {
		return leave.ErrNotFound
	}
	employee.Active = false
	return nil
}

// =============================================================================
// HOLIDAY STORE
// =============================================================================

func (s *Store) AddHoliday(_ context.Context, holiday leave.Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.holidays[holiday.ID]; ok {
		return leave.ErrDuplicate
	}
	day := holiday.Date.Format("2006-01-02")
	for _, existing := range s.holidays {
		if existing.Date.Format("2006-01-02") == day {
			return leave.ErrDuplicate
		}
	}
	s.holidays[holiday.ID] = holiday
	return nil
}

func (s *Store) RemoveHoliday(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.holidays[id]; !ok {
		return leave.ErrNotFound
	}
	delete(s.holidays, id)
	return nil
}

func (s *Store) ListHolidays(_ context.Context, from, to time.Time) ([]leave.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Compare calendar days, not timestamps. A holiday stored with a
	// time-of-day component still falls inside a range ending on its day,
	// matching the date-only columns of the sqlite store.
	fromDay, toDay := calendarDay(from), calendarDay(to)

	var result []leave.Holiday
	for _, h := range s.holidays {
		day := calendarDay(h.Date)
		if day.Before(fromDay) || day.After(toDay) {
			continue
		}
		result = append(result, h)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func calendarDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func cloneRequest(r *leave.Request) *leave.Request {
	clone := *r
	if r.ApprovedAt != nil {
		at := *r.ApprovedAt
		clone.ApprovedAt = &at
	}
	return &clone
}
