package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/sqlite"
)

// newTestStore opens a store on a file in a per-test temp directory. A file
// rather than ":memory:" because the connection pool would give each
// connection its own empty in-memory database.
func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "leave.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// =============================================================================
// BALANCES
// =============================================================================

func TestSQLite_Balances_UpsertAndRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	defaults := leave.DefaultEntitlements()

	created, err := store.GetOrCreateBalance(ctx, "emp-1", 2026, defaults)
	require.NoError(t, err)
	assert.True(t, created.Annual.Equal(leave.DaysFromInt(21)))
	assert.True(t, created.UsedAnnual.IsZero())

	// A second upsert must not reset the row.
	created.UsedAnnual = leave.NewDays(2.5)
	require.NoError(t, store.SaveBalance(ctx, created))

	again, err := store.GetOrCreateBalance(ctx, "emp-1", 2026, defaults)
	require.NoError(t, err)
	assert.True(t, again.UsedAnnual.Equal(leave.NewDays(2.5)), "got %s", again.UsedAnnual)
}

func TestSQLite_Balances_FractionalAmountsSurviveExactly(t *testing.T) {
	// Half-day Saturdays must round-trip without float drift.

	store := newTestStore(t)
	ctx := context.Background()

	balance, err := store.GetOrCreateBalance(ctx, "emp-1", 2026, leave.DefaultEntitlements())
	require.NoError(t, err)

	balance.UsedAnnual = leave.NewDays(10.5)
	balance.CarryForward = leave.NewDays(3.5)
	balance.CarryForwardApplied = true
	require.NoError(t, store.SaveBalance(ctx, balance))

	loaded, err := store.GetBalance(ctx, "emp-1", 2026)
	require.NoError(t, err)
	assert.Equal(t, "10.5", loaded.UsedAnnual.String())
	assert.Equal(t, "3.5", loaded.CarryForward.String())
	assert.True(t, loaded.CarryForwardApplied)
}

func TestSQLite_Balances_MissingRow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.GetBalance(ctx, "nobody", 2026)
	assert.ErrorIs(t, err, leave.ErrNoBalanceRecord)

	err = store.SaveBalance(ctx, &leave.Balance{EmployeeID: "nobody", FiscalYear: 2026})
	assert.ErrorIs(t, err, leave.ErrNoBalanceRecord)
}

func TestSQLite_Balances_ListByFiscalYear(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	defaults := leave.DefaultEntitlements()
	_, err := store.GetOrCreateBalance(ctx, "emp-b", 2026, defaults)
	require.NoError(t, err)
	_, err = store.GetOrCreateBalance(ctx, "emp-a", 2026, defaults)
	require.NoError(t, err)
	_, err = store.GetOrCreateBalance(ctx, "emp-a", 2027, defaults)
	require.NoError(t, err)

	balances, err := store.ListBalances(ctx, 2026)
	require.NoError(t, err)
	require.Len(t, balances, 2)
	assert.Equal(t, leave.EmployeeID("emp-a"), balances[0].EmployeeID)
	assert.Equal(t, leave.EmployeeID("emp-b"), balances[1].EmployeeID)
}

// =============================================================================
// REQUESTS
// =============================================================================

func TestSQLite_Requests_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	approvedAt := date(2026, time.January, 2).Add(9 * time.Hour)
	request := &leave.Request{
		ID:          "req-1",
		EmployeeID:  "emp-1",
		Category:    leave.CategorySick,
		StartDate:   date(2026, time.January, 5),
		EndDate:     date(2026, time.January, 9),
		TotalDays:   leave.NewDays(4.5),
		FiscalYear:  2026,
		Reason:      "flu",
		Status:      leave.StatusApproved,
		ApprovedBy:  "mgr-1",
		ApprovedAt:  &approvedAt,
		SubmittedAt: time.Now().UTC(),
	}
	require.NoError(t, store.CreateRequest(ctx, request))

	got, err := store.GetRequest(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, leave.CategorySick, got.Category)
	assert.True(t, got.StartDate.Equal(date(2026, time.January, 5)))
	assert.True(t, got.TotalDays.Equal(leave.NewDays(4.5)))
	assert.Equal(t, "flu", got.Reason)
	assert.Equal(t, leave.EmployeeID("mgr-1"), got.ApprovedBy)
	require.NotNil(t, got.ApprovedAt)
	assert.True(t, got.ApprovedAt.Equal(approvedAt))
}

func TestSQLite_Requests_PendingHasNoApprovalFields(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateRequest(ctx, &leave.Request{
		ID:          "req-1",
		EmployeeID:  "emp-1",
		Category:    leave.CategoryAnnual,
		StartDate:   date(2026, time.January, 5),
		EndDate:     date(2026, time.January, 5),
		TotalDays:   leave.NewDays(1),
		FiscalYear:  2026,
		Status:      leave.StatusPending,
		SubmittedAt: time.Now().UTC(),
	}))

	got, err := store.GetRequest(ctx, "req-1")
	require.NoError(t, err)
	assert.Empty(t, got.ApprovedBy)
	assert.Nil(t, got.ApprovedAt)
	assert.Empty(t, got.Reason)
}

func TestSQLite_Requests_DuplicateID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	request := &leave.Request{
		ID: "req-1", EmployeeID: "emp-1", Category: leave.CategoryAnnual,
		StartDate: date(2026, time.January, 5), EndDate: date(2026, time.January, 5),
		TotalDays: leave.NewDays(1), FiscalYear: 2026,
		Status: leave.StatusPending, SubmittedAt: time.Now().UTC(),
	}
	require.NoError(t, store.CreateRequest(ctx, request))
	assert.ErrorIs(t, store.CreateRequest(ctx, request), leave.ErrDuplicate)
}

func TestSQLite_Requests_UpdateDeleteMissing(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.UpdateRequest(ctx, &leave.Request{ID: "req-ghost", Status: leave.StatusApproved})
	assert.ErrorIs(t, err, leave.ErrNotFound)

	assert.ErrorIs(t, store.DeleteRequest(ctx, "req-ghost"), leave.ErrNotFound)

	_, err = store.GetRequest(ctx, "req-ghost")
	assert.ErrorIs(t, err, leave.ErrNotFound)
}

func TestSQLite_Requests_FiltersAndOrdering(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	rows := []*leave.Request{
		{ID: "req-2", EmployeeID: "emp-1", Category: leave.CategoryAnnual,
			StartDate: date(2026, time.February, 2), EndDate: date(2026, time.February, 2),
			TotalDays: leave.NewDays(1), FiscalYear: 2026,
			Status: leave.StatusApproved, SubmittedAt: base.Add(time.Second)},
		{ID: "req-1", EmployeeID: "emp-1", Category: leave.CategoryAnnual,
			StartDate: date(2026, time.January, 5), EndDate: date(2026, time.January, 5),
			TotalDays: leave.NewDays(1), FiscalYear: 2026,
			Status: leave.StatusPending, SubmittedAt: base},
		{ID: "req-3", EmployeeID: "emp-2", Category: leave.CategorySick,
			StartDate: date(2025, time.June, 2), EndDate: date(2025, time.June, 2),
			TotalDays: leave.NewDays(1), FiscalYear: 2025,
			Status: leave.StatusPending, SubmittedAt: base.Add(2 * time.Second)},
	}
	for _, r := range rows {
		require.NoError(t, store.CreateRequest(ctx, r))
	}

	all, err := store.ListRequests(ctx, leave.RequestFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, leave.RequestID("req-1"), all[0].ID, "ordered by submission time")

	pending, err := store.ListRequests(ctx, leave.RequestFilter{EmployeeID: "emp-1", Status: leave.StatusPending})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, leave.RequestID("req-1"), pending[0].ID)

	fy2025, err := store.ListRequests(ctx, leave.RequestFilter{FiscalYear: 2025})
	require.NoError(t, err)
	require.Len(t, fy2025, 1)
	assert.Equal(t, leave.RequestID("req-3"), fy2025[0].ID)
}

// =============================================================================
// ROSTER
// =============================================================================

func TestSQLite_Roster_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	employee := &leave.Employee{
		ID: "emp-1", Code: "EMP001", Name: "Alice Moreau",
		Department: "Engineering", HireDate: date(2022, time.March, 1), Active: true,
	}
	require.NoError(t, store.CreateEmployee(ctx, employee))

	got, err := store.GetEmployee(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, "EMP001", got.Code)
	assert.Equal(t, "Engineering", got.Department)
	assert.True(t, got.HireDate.Equal(date(2022, time.March, 1)))
	assert.True(t, got.Active)
}

func TestSQLite_Roster_UniqueCode(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateEmployee(ctx, &leave.Employee{
		ID: "emp-1", Code: "EMP001", Name: "Alice", HireDate: date(2022, time.March, 1), Active: true,
	}))

	err := store.CreateEmployee(ctx, &leave.Employee{
		ID: "emp-2", Code: "EMP001", Name: "Impostor", HireDate: date(2023, time.March, 1), Active: true,
	})
	assert.ErrorIs(t, err, leave.ErrDuplicate)
}

func TestSQLite_Roster_Deactivate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateEmployee(ctx, &leave.Employee{
		ID: "emp-1", Code: "EMP001", Name: "Alice", HireDate: date(2022, time.March, 1), Active: true,
	}))
	require.NoError(t, store.DeactivateEmployee(ctx, "emp-1"))

	got, err := store.GetEmployee(ctx, "emp-1")
	require.NoError(t, err)
	assert.False(t, got.Active)

	active, err := store.ListEmployees(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, active)

	assert.ErrorIs(t, store.DeactivateEmployee(ctx, "emp-ghost"), leave.ErrNotFound)
}

// =============================================================================
// HOLIDAYS
// =============================================================================

func TestSQLite_Holidays_RangeQueryAndUniqueness(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, h := range []leave.Holiday{
		{ID: "h1", Date: date(2025, time.December, 25), Name: "Christmas Day"},
		{ID: "h2", Date: date(2026, time.January, 1), Name: "New Year"},
		{ID: "h3", Date: date(2026, time.May, 1), Name: "Labour Day"},
	} {
		require.NoError(t, store.AddHoliday(ctx, h))
	}

	err := store.AddHoliday(ctx, leave.Holiday{ID: "h4", Date: date(2026, time.January, 1), Name: "Duplicate"})
	assert.ErrorIs(t, err, leave.ErrDuplicate)

	holidays, err := store.ListHolidays(ctx, date(2025, time.December, 1), date(2026, time.January, 31))
	require.NoError(t, err)
	require.Len(t, holidays, 2)
	assert.Equal(t, "Christmas Day", holidays[0].Name)
	assert.Equal(t, "New Year", holidays[1].Name)

	require.NoError(t, store.RemoveHoliday(ctx, "h1"))
	assert.ErrorIs(t, store.RemoveHoliday(ctx, "h1"), leave.ErrNotFound)
}

// =============================================================================
// END TO END
// =============================================================================

func TestSQLite_EngineLifecycle(t *testing.T) {
	// The full request lifecycle against real persistence: submit, approve,
	// check the ledger, delete, check the credit came back.

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateEmployee(ctx, &leave.Employee{
		ID: "emp-1", Code: "EMP001", Name: "Alice Moreau",
		HireDate: date(2022, time.March, 1), Active: true,
	}))
	require.NoError(t, store.AddHoliday(ctx, leave.Holiday{
		ID: "h1", Date: date(2026, time.January, 7), Name: "Founders Day",
	}))

	engine := leave.NewEngine(store, leave.Options{})

	request, err := engine.Submit(ctx, leave.SubmitInput{
		EmployeeID: "emp-1",
		Category:   leave.CategoryAnnual,
		StartDate:  date(2026, time.January, 5),
		EndDate:    date(2026, time.January, 9),
		Reason:     "winter break",
	})
	require.NoError(t, err)
	assert.True(t, request.TotalDays.Equal(leave.NewDays(4)), "holiday excluded, got %s", request.TotalDays)

	_, err = engine.Approve(ctx, request.ID, "mgr-1")
	require.NoError(t, err)

	view, err := engine.BalanceView(ctx, "emp-1", 2026)
	require.NoError(t, err)
	assert.True(t, view.Category(leave.CategoryAnnual).Used.Equal(leave.NewDays(4)))

	require.NoError(t, engine.Delete(ctx, request.ID))

	view, err = engine.BalanceView(ctx, "emp-1", 2026)
	require.NoError(t, err)
	assert.True(t, view.Category(leave.CategoryAnnual).Used.IsZero())
}
