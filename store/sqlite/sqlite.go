/*
Package sqlite provides a SQLite-backed implementation of leave.Store.

PURPOSE:
  Production persistence for the leave engine. The same patterns apply to
  PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  employees:      Roster entries (deactivated, never deleted)
  holidays:       Named non-chargeable dates, unique per calendar day
  leave_balances: One row per (employee, fiscal year) - the ledger
  leave_requests: The request lifecycle rows

UPSERT GUARANTEE:
  leave_balances carries PRIMARY KEY (employee_id, fiscal_year) and
  GetOrCreateBalance uses INSERT ... ON CONFLICT DO NOTHING followed by a
  read. Concurrent first use for the same key produces exactly one row -
  the constraint decides, not a read-then-insert race.

AMOUNT ENCODING:
  Day quantities are stored as decimal TEXT, never REAL, so 0.5-day
  Saturdays survive round-trips exactly.

WAL MODE:
  SQLite is opened with WAL for better concurrency: multiple readers
  don't block, single writer at a time.

USAGE:
  store, err := sqlite.New("./data/leave.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := leave.NewEngine(store, leave.Options{})

SEE ALSO:
  - leave/store.go: Interface definitions
  - store/memory:   In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/leave"
)

const dateLayout = "2006-01-02"

// Store implements leave.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Compile-time check.
var _ leave.Store = (*Store)(nil)

// New creates a SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		department TEXT,
		hire_date TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		holiday_date TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_holidays_date ON holidays(holiday_date);

	-- The ledger. The primary key IS the upsert guarantee behind
	-- GetOrCreateBalance.
	CREATE TABLE IF NOT EXISTS leave_balances (
		employee_id TEXT NOT NULL,
		fiscal_year INTEGER NOT NULL,
		annual_days TEXT NOT NULL,
		sick_days TEXT NOT NULL,
		casual_days TEXT NOT NULL,
		used_annual_days TEXT NOT NULL DEFAULT '0',
		used_sick_days TEXT NOT NULL DEFAULT '0',
		used_casual_days TEXT NOT NULL DEFAULT '0',
		carry_forward_days TEXT NOT NULL DEFAULT '0',
		carry_forward_applied INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (employee_id, fiscal_year)
	);

	CREATE TABLE IF NOT EXISTS leave_requests (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		category TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		total_days TEXT NOT NULL,
		fiscal_year INTEGER NOT NULL,
		reason TEXT,
		status TEXT NOT NULL DEFAULT 'pending',
		approved_by TEXT,
		approved_at TEXT,
		submitted_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_requests_employee
		ON leave_requests(employee_id);
	CREATE INDEX IF NOT EXISTS idx_requests_status
		ON leave_requests(status);
	CREATE INDEX IF NOT EXISTS idx_requests_fiscal_year
		ON leave_requests(fiscal_year);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// BALANCE STORE (leave.BalanceStore interface)
// =============================================================================

func (s *Store) GetOrCreateBalance(ctx context.Context, employeeID leave.EmployeeID, fiscalYear int, defaults leave.Entitlements) (*leave.Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO leave_balances
			(employee_id, fiscal_year, annual_days, sick_days, casual_days, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(employee_id, fiscal_year) DO NOTHING
	`,
		string(employeeID),
		fiscalYear,
		defaults.Annual.String(),
		defaults.Sick.String(),
		defaults.Casual.String(),
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert balance: %w", err)
	}

	return s.getBalanceLocked(ctx, employeeID, fiscalYear)
}

func (s *Store) GetBalance(ctx context.Context, employeeID leave.EmployeeID, fiscalYear int) (*leave.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.getBalanceLocked(ctx, employeeID, fiscalYear)
}

func (s *Store) getBalanceLocked(ctx context.Context, employeeID leave.EmployeeID, fiscalYear int) (*leave.Balance, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT employee_id, fiscal_year, annual_days, sick_days, casual_days,
		       used_annual_days, used_sick_days, used_casual_days,
		       carry_forward_days, carry_forward_applied
		FROM leave_balances
		WHERE employee_id = ? AND fiscal_year = ?
	`, string(employeeID), fiscalYear)

	balance, err := scanBalance(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, leave.ErrNoBalanceRecord
	}
	return balance, err
}

func (s *Store) SaveBalance(ctx context.Context, balance *leave.Balance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `
		UPDATE leave_balances
		SET annual_days = ?, sick_days = ?, casual_days = ?,
		    used_annual_days = ?, used_sick_days = ?, used_casual_days = ?,
		    carry_forward_days = ?, carry_forward_applied = ?, updated_at = ?
		WHERE employee_id = ? AND fiscal_year = ?
	`,
		balance.Annual.String(),
		balance.Sick.String(),
		balance.Casual.String(),
		balance.UsedAnnual.String(),
		balance.UsedSick.String(),
		balance.UsedCasual.String(),
		balance.CarryForward.String(),
		boolToInt(balance.CarryForwardApplied),
		time.Now().UTC().Format(time.RFC3339),
		string(balance.EmployeeID),
		balance.FiscalYear,
	)
	if err != nil {
		return fmt.Errorf("failed to save balance: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return leave.ErrNoBalanceRecord
	}
	return nil
}

func (s *Store) ListBalances(ctx context.Context, fiscalYear int) ([]*leave.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT employee_id, fiscal_year, annual_days, sick_days, casual_days,
		       used_annual_days, used_sick_days, used_casual_days,
		       carry_forward_days, carry_forward_applied
		FROM leave_balances
		WHERE fiscal_year = ?
		ORDER BY employee_id ASC
	`, fiscalYear)
	if err != nil {
		return nil, fmt.Errorf("failed to query balances: %w", err)
	}
	defer rows.Close()

	var balances []*leave.Balance
	for rows.Next() {
		balance, err := scanBalance(rows)
		if err != nil {
			return nil, err
		}
		balances = append(balances, balance)
	}
	return balances, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBalance(row rowScanner) (*leave.Balance, error) {
	var (
		employeeID   string
		fiscalYear   int
		annual       string
		sick         string
		casual       string
		usedAnnual   string
		usedSick     string
		usedCasual   string
		carry        string
		carryApplied int
	)
	if err := row.Scan(&employeeID, &fiscalYear, &annual, &sick, &casual,
		&usedAnnual, &usedSick, &usedCasual, &carry, &carryApplied); err != nil {
		return nil, err
	}

	balance := &leave.Balance{
		EmployeeID:          leave.EmployeeID(employeeID),
		FiscalYear:          fiscalYear,
		CarryForwardApplied: carryApplied != 0,
	}
	for _, field := range []struct {
		raw  string
		dest *leave.Days
	}{
		{annual, &balance.Annual},
		{sick, &balance.Sick},
		{casual, &balance.Casual},
		{usedAnnual, &balance.UsedAnnual},
		{usedSick, &balance.UsedSick},
		{usedCasual, &balance.UsedCasual},
		{carry, &balance.CarryForward},
	} {
		value, err := decimal.NewFromString(field.raw)
		if err != nil {
			return nil, fmt.Errorf("corrupt day amount %q: %w", field.raw, err)
		}
		*field.dest = leave.Days{Value: value}
	}
	return balance, nil
}

// =============================================================================
// REQUEST STORE (leave.RequestStore interface)
// =============================================================================

func (s *Store) CreateRequest(ctx context.Context, request *leave.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO leave_requests
			(id, employee_id, category, start_date, end_date, total_days,
			 fiscal_year, reason, status, approved_by, approved_at, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		string(request.ID),
		string(request.EmployeeID),
		string(request.Category),
		request.StartDate.Format(dateLayout),
		request.EndDate.Format(dateLayout),
		request.TotalDays.String(),
		request.FiscalYear,
		request.Reason,
		string(request.Status),
		nullString(string(request.ApprovedBy)),
		nullTime(request.ApprovedAt),
		request.SubmittedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return leave.ErrDuplicate
		}
		return fmt.Errorf("failed to create request: %w", err)
	}
	return nil
}

func (s *Store) GetRequest(ctx context.Context, id leave.RequestID) (*leave.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, employee_id, category, start_date, end_date, total_days,
		       fiscal_year, reason, status, approved_by, approved_at, submitted_at
		FROM leave_requests
		WHERE id = ?
	`, string(id))

	request, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, leave.ErrNotFound
	}
	return request, err
}

func (s *Store) UpdateRequest(ctx context.Context, request *leave.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `
		UPDATE leave_requests
		SET status = ?, approved_by = ?, approved_at = ?
		WHERE id = ?
	`,
		string(request.Status),
		nullString(string(request.ApprovedBy)),
		nullTime(request.ApprovedAt),
		string(request.ID),
	)
	if err != nil {
		return fmt.Errorf("failed to update request: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return leave.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteRequest(ctx context.Context, id leave.RequestID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM leave_requests WHERE id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("failed to delete request: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return leave.ErrNotFound
	}
	return nil
}

func (s *Store) ListRequests(ctx context.Context, filter leave.RequestFilter) ([]*leave.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, employee_id, category, start_date, end_date, total_days,
		       fiscal_year, reason, status, approved_by, approved_at, submitted_at
		FROM leave_requests
		WHERE 1=1
	`
	var args []any
	if filter.EmployeeID != "" {
		query += " AND employee_id = ?"
		args = append(args, string(filter.EmployeeID))
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	if filter.FiscalYear != 0 {
		query += " AND fiscal_year = ?"
		args = append(args, filter.FiscalYear)
	}
	query += " ORDER BY submitted_at ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer rows.Close()

	var requests []*leave.Request
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, request)
	}
	return requests, rows.Err()
}

func scanRequest(row rowScanner) (*leave.Request, error) {
	var (
		id          string
		employeeID  string
		category    string
		startDate   string
		endDate     string
		totalDays   string
		fiscalYear  int
		reason      sql.NullString
		status      string
		approvedBy  sql.NullString
		approvedAt  sql.NullString
		submittedAt string
	)
	if err := row.Scan(&id, &employeeID, &category, &startDate, &endDate, &totalDays,
		&fiscalYear, &reason, &status, &approvedBy, &approvedAt, &submittedAt); err != nil {
		return nil, err
	}

	start, err := time.Parse(dateLayout, startDate)
	if err != nil {
		return nil, fmt.Errorf("corrupt start date %q: %w", startDate, err)
	}
	end, err := time.Parse(dateLayout, endDate)
	if err != nil {
		return nil, fmt.Errorf("corrupt end date %q: %w", endDate, err)
	}
	total, err := decimal.NewFromString(totalDays)
	if err != nil {
		return nil, fmt.Errorf("corrupt day amount %q: %w", totalDays, err)
	}
	submitted, err := time.Parse(time.RFC3339Nano, submittedAt)
	if err != nil {
		return nil, fmt.Errorf("corrupt timestamp %q: %w", submittedAt, err)
	}

	request := &leave.Request{
		ID:          leave.RequestID(id),
		EmployeeID:  leave.EmployeeID(employeeID),
		Category:    leave.Category(category),
		StartDate:   start,
		EndDate:     end,
		TotalDays:   leave.Days{Value: total},
		FiscalYear:  fiscalYear,
		Reason:      reason.String,
		Status:      leave.Status(status),
		ApprovedBy:  leave.EmployeeID(approvedBy.String),
		SubmittedAt: submitted,
	}
	if approvedAt.Valid {
		at, err := time.Parse(time.RFC3339, approvedAt.String)
		if err != nil {
			return nil, fmt.Errorf("corrupt timestamp %q: %w", approvedAt.String, err)
		}
		request.ApprovedAt = &at
	}
	return request, nil
}

// =============================================================================
// ROSTER STORE (leave.RosterStore interface)
// =============================================================================

func (s *Store) CreateEmployee(ctx context.Context, employee *leave.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO employees (id, code, name, department, hire_date, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		string(employee.ID),
		employee.Code,
		employee.Name,
		employee.Department,
		employee.HireDate.Format(dateLayout),
		boolToInt(employee.Active),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return leave.ErrDuplicate
		}
		return fmt.Errorf("failed to create employee: %w", err)
	}
	return nil
}

func (s *Store) GetEmployee(ctx context.Context, id leave.EmployeeID) (*leave.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, code, name, department, hire_date, active
		FROM employees
		WHERE id = ?
	`, string(id))

	employee, err := scanEmployee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, leave.ErrNotFound
	}
	return employee, err
}

func (s *Store) ListEmployees(ctx context.Context, activeOnly bool) ([]*leave.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, code, name, department, hire_date, active
		FROM employees
	`
	if activeOnly {
		query += " WHERE active = 1"
	}
	query += " ORDER BY code ASC"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	var employees []*leave.Employee
	for rows.Next() {
		employee, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, employee)
	}
	return employees, rows.Err()
}

func (s *Store) DeactivateEmployee(ctx context.Context, id leave.EmployeeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx,
		`UPDATE employees SET active = 0 WHERE id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("failed to deactivate employee: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return leave.ErrNotFound
	}
	return nil
}

func scanEmployee(row rowScanner) (*leave.Employee, error) {
	var (
		id         string
		code       string
		name       string
		department sql.NullString
		hireDate   string
		active     int
	)
	if err := row.Scan(&id, &code, &name, &department, &hireDate, &active); err != nil {
		return nil, err
	}

	hired, err := time.Parse(dateLayout, hireDate)
	if err != nil {
		return nil, fmt.Errorf("corrupt hire date %q: %w", hireDate, err)
	}

	return &leave.Employee{
		ID:         leave.EmployeeID(id),
		Code:       code,
		Name:       name,
		Department: department.String,
		HireDate:   hired,
		Active:     active != 0,
	}, nil
}

// =============================================================================
// HOLIDAY STORE (leave.HolidayStore interface)
// =============================================================================

func (s *Store) AddHoliday(ctx context.Context, holiday leave.Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO holidays (id, holiday_date, name, created_at)
		VALUES (?, ?, ?, ?)
	`,
		holiday.ID,
		holiday.Date.Format(dateLayout),
		holiday.Name,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return leave.ErrDuplicate
		}
		return fmt.Errorf("failed to add holiday: %w", err)
	}
	return nil
}

func (s *Store) RemoveHoliday(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `DELETE FROM holidays WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to remove holiday: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return leave.ErrNotFound
	}
	return nil
}

func (s *Store) ListHolidays(ctx context.Context, from, to time.Time) ([]leave.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, holiday_date, name
		FROM holidays
		WHERE holiday_date >= ? AND holiday_date <= ?
		ORDER BY holiday_date ASC
	`, from.Format(dateLayout), to.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to query holidays: %w", err)
	}
	defer rows.Close()

	var holidays []leave.Holiday
	for rows.Next() {
		var (
			id   string
			day  string
			name string
		)
		if err := rows.Scan(&id, &day, &name); err != nil {
			return nil, err
		}
		date, err := time.Parse(dateLayout, day)
		if err != nil {
			return nil, fmt.Errorf("corrupt holiday date %q: %w", day, err)
		}
		holidays = append(holidays, leave.Holiday{ID: id, Date: date, Name: name})
	}
	return holidays, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
