package leave_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// date builds a UTC day. 2026-01-05 is a Monday; that week anchors most
// of these tests.
func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func days(n float64) leave.Days {
	return leave.NewDays(n)
}

// =============================================================================
// CLASSIFIER
// =============================================================================

func TestClassify_Weekday_IsWorkday(t *testing.T) {
	holidays := leave.NewHolidaySet()

	// Monday through Friday
	for d := 5; d <= 9; d++ {
		got := leave.Classify(date(2026, time.January, d), holidays)
		assert.Equal(t, leave.Workday, got, "2026-01-%02d should be a workday", d)
	}
}

func TestClassify_Saturday_IsHalfDay(t *testing.T) {
	got := leave.Classify(date(2026, time.January, 10), leave.NewHolidaySet())
	assert.Equal(t, leave.HalfDay, got)
}

func TestClassify_Sunday_IsNonChargeable(t *testing.T) {
	got := leave.Classify(date(2026, time.January, 11), leave.NewHolidaySet())
	assert.Equal(t, leave.NonChargeable, got)
}

func TestClassify_WeekdayHoliday_IsNonChargeable(t *testing.T) {
	newYear := date(2026, time.January, 1) // a Thursday
	holidays := leave.NewHolidaySet(newYear)

	assert.Equal(t, leave.NonChargeable, leave.Classify(newYear, holidays))
}

func TestClassify_SaturdayHoliday_HolidayWins(t *testing.T) {
	// GIVEN: A Saturday that is also a listed holiday
	// THEN: It classifies NonChargeable, never HalfDay

	saturday := date(2026, time.January, 10)
	holidays := leave.NewHolidaySet(saturday)

	assert.Equal(t, leave.NonChargeable, leave.Classify(saturday, holidays))
}

func TestClassify_Deterministic(t *testing.T) {
	holidays := leave.NewHolidaySet(date(2026, time.January, 1))

	for d := date(2025, time.December, 25); d.Before(date(2026, time.February, 1)); d = d.AddDate(0, 0, 1) {
		first := leave.Classify(d, holidays)
		second := leave.Classify(d, holidays)
		assert.Equal(t, first, second, "classification of %s must be stable", d.Format("2006-01-02"))
	}
}

func TestClassify_IgnoresTimeOfDay(t *testing.T) {
	holiday := date(2026, time.January, 1)
	holidays := leave.NewHolidaySet(holiday)

	afternoon := time.Date(2026, time.January, 1, 15, 30, 0, 0, time.UTC)
	assert.Equal(t, leave.NonChargeable, leave.Classify(afternoon, holidays))
}

// =============================================================================
// RANGE COST
// =============================================================================

func TestRangeCost_FullWorkWeek(t *testing.T) {
	// GIVEN: No holidays, Monday through Friday of one week
	// THEN: 5.0 chargeable days

	cost, err := leave.RangeCost(
		date(2026, time.January, 5), date(2026, time.January, 9),
		leave.NewHolidaySet(), leave.UnitFullDay)

	require.NoError(t, err)
	assert.True(t, cost.Equal(days(5)), "got %s", cost)
}

func TestRangeCost_SingleSaturday(t *testing.T) {
	saturday := date(2026, time.January, 10)

	cost, err := leave.RangeCost(saturday, saturday, leave.NewHolidaySet(), leave.UnitFullDay)

	require.NoError(t, err)
	assert.True(t, cost.Equal(days(0.5)), "got %s", cost)
}

func TestRangeCost_FridayThroughMonday(t *testing.T) {
	// Fri 1 + Sat 0.5 + Sun 0 + Mon 1 = 2.5

	cost, err := leave.RangeCost(
		date(2026, time.January, 9), date(2026, time.January, 12),
		leave.NewHolidaySet(), leave.UnitFullDay)

	require.NoError(t, err)
	assert.True(t, cost.Equal(days(2.5)), "got %s", cost)
}

func TestRangeCost_HolidayExcluded(t *testing.T) {
	// Mon-Fri with Wednesday a holiday: 4.0

	holidays := leave.NewHolidaySet(date(2026, time.January, 7))

	cost, err := leave.RangeCost(
		date(2026, time.January, 5), date(2026, time.January, 9),
		holidays, leave.UnitFullDay)

	require.NoError(t, err)
	assert.True(t, cost.Equal(days(4)), "got %s", cost)
}

func TestRangeCost_EndBeforeStart_Rejected(t *testing.T) {
	_, err := leave.RangeCost(
		date(2026, time.January, 9), date(2026, time.January, 5),
		leave.NewHolidaySet(), leave.UnitFullDay)

	assert.ErrorIs(t, err, leave.ErrInvalidDateRange)
}

func TestRangeCost_SingleDay_NoSpecialCase(t *testing.T) {
	// A one-day range behaves exactly like a multi-day range.

	monday := date(2026, time.January, 5)

	single, err := leave.RangeCost(monday, monday, leave.NewHolidaySet(), leave.UnitFullDay)
	require.NoError(t, err)
	assert.True(t, single.Equal(days(1)), "got %s", single)
}

func TestRangeCost_HalfDayUnit_AppliesOnceToTotal(t *testing.T) {
	// GIVEN: A half-day request over one workday
	// THEN: 0.5 - the multiplier scales the total, not each day twice

	monday := date(2026, time.January, 5)

	cost, err := leave.RangeCost(monday, monday, leave.NewHolidaySet(), leave.UnitHalfDay)
	require.NoError(t, err)
	assert.True(t, cost.Equal(days(0.5)), "got %s", cost)
}

func TestRangeCost_HalfDayUnit_WholeWeek(t *testing.T) {
	// Mon-Fri at half-day unit: 5.0 * 0.5 = 2.5

	cost, err := leave.RangeCost(
		date(2026, time.January, 5), date(2026, time.January, 9),
		leave.NewHolidaySet(), leave.UnitHalfDay)

	require.NoError(t, err)
	assert.True(t, cost.Equal(days(2.5)), "got %s", cost)
}

func TestRangeCost_Additivity(t *testing.T) {
	// cost(start, end) equals the sum of cost(d, d) over every d in the
	// range, at full-day unit.

	start := date(2026, time.January, 1)
	end := date(2026, time.January, 31)
	holidays := leave.NewHolidaySet(
		date(2026, time.January, 1),
		date(2026, time.January, 10), // a Saturday holiday
	)

	whole, err := leave.RangeCost(start, end, holidays, leave.UnitFullDay)
	require.NoError(t, err)

	sum := leave.ZeroDays()
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		single, err := leave.RangeCost(d, d, holidays, leave.UnitFullDay)
		require.NoError(t, err)
		sum = sum.Add(single)
	}

	assert.True(t, whole.Equal(sum), "whole %s != sum %s", whole, sum)
}

// =============================================================================
// HOLIDAY SET
// =============================================================================

func TestHolidaySetFrom_MatchesByCalendarDay(t *testing.T) {
	set := leave.HolidaySetFrom([]leave.Holiday{
		{ID: "h1", Date: date(2025, time.December, 25), Name: "Christmas Day"},
	})

	assert.True(t, set.Contains(date(2025, time.December, 25)))
	assert.False(t, set.Contains(date(2025, time.December, 26)))
	assert.Equal(t, 1, set.Len())
}
