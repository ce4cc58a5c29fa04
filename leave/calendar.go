/*
calendar.go - Day classification and range cost calculation

PURPOSE:
  Converts calendar dates into chargeable leave cost. One date classifies
  as a full workday (1.0), a half-day Saturday (0.5), or non-chargeable
  (0 for Sundays and holidays). A range cost is the sum over every date
  in the inclusive range, scaled once by the request's unit multiplier.

CLASSIFICATION ORDER:
  Holiday-or-Sunday is checked BEFORE Saturday. A Saturday that is also a
  holiday is non-chargeable, never a half-day. This ordering is the rule,
  not an implementation detail.

MULTIPLIER:
  The unit multiplier scales the WHOLE request, applied once to the final
  sum. An employee taking a half day of leave over one workday charges
  0.5, not 1.0 halved per-day and halved again.

NO SIDE EFFECTS:
  Everything here is a pure function of (dates, holiday set). The same
  inputs always produce the same cost.

SEE ALSO:
  - engine.go: The only production call site for RangeCost
*/
package leave

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DAY CLASSIFICATION
// =============================================================================

// DayClass is the chargeability of a single calendar date.
type DayClass int

const (
	// Workday charges a full day (Monday-Friday, not a holiday).
	Workday DayClass = iota
	// HalfDay charges half a day (Saturday, not a holiday).
	HalfDay
	// NonChargeable charges nothing (Sunday or holiday).
	NonChargeable
)

func (c DayClass) String() string {
	switch c {
	case Workday:
		return "workday"
	case HalfDay:
		return "half_day"
	case NonChargeable:
		return "non_chargeable"
	default:
		return "unknown"
	}
}

// cost is the day's contribution before the unit multiplier.
func (c DayClass) cost() Days {
	switch c {
	case Workday:
		return DaysFromInt(1)
	case HalfDay:
		return NewDays(0.5)
	default:
		return ZeroDays()
	}
}

// =============================================================================
// HOLIDAY SET
// =============================================================================

const dateLayout = "2006-01-02"

// HolidaySet is a lookup of holiday dates, keyed by calendar day.
// Time-of-day and timezone offsets within a day are ignored.
type HolidaySet struct {
	dates map[string]bool
}

func NewHolidaySet(dates ...time.Time) HolidaySet {
	s := HolidaySet{dates: make(map[string]bool, len(dates))}
	for _, d := range dates {
		s.dates[d.Format(dateLayout)] = true
	}
	return s
}

// HolidaySetFrom builds a set from stored holiday rows.
func HolidaySetFrom(holidays []Holiday) HolidaySet {
	s := HolidaySet{dates: make(map[string]bool, len(holidays))}
	for _, h := range holidays {
		s.dates[h.Date.Format(dateLayout)] = true
	}
	return s
}

// Contains reports whether the date's calendar day is a holiday.
func (s HolidaySet) Contains(date time.Time) bool {
	return s.dates[date.Format(dateLayout)]
}

// Len returns the number of holiday dates in the set.
func (s HolidaySet) Len() int { return len(s.dates) }

// =============================================================================
// CLASSIFIER
// =============================================================================

// Classify returns the chargeability of one date given the holiday set.
// Holiday-or-Sunday takes precedence over Saturday.
func Classify(date time.Time, holidays HolidaySet) DayClass {
	if date.Weekday() == time.Sunday || holidays.Contains(date) {
		return NonChargeable
	}
	if date.Weekday() == time.Saturday {
		return HalfDay
	}
	return Workday
}

// =============================================================================
// UNIT MULTIPLIER
// =============================================================================

// Unit is the leave unit of a whole request: a full-day request charges
// each date at its classified cost; a half-day request charges half the
// range total.
type Unit string

const (
	UnitFullDay Unit = "full_day"
	UnitHalfDay Unit = "half_day"
)

func (u Unit) multiplier() decimal.Decimal {
	if u == UnitHalfDay {
		return decimal.NewFromFloat(0.5)
	}
	return decimal.NewFromInt(1)
}

// =============================================================================
// RANGE COST CALCULATOR
// =============================================================================

// RangeCost sums the classified cost of every date in [start, end]
// inclusive, then applies the unit multiplier once to the total.
// A single-day range (start == end) is handled identically to a
// multi-day range.
//
// Returns ErrInvalidDateRange if end precedes start.
func RangeCost(start, end time.Time, holidays HolidaySet, unit Unit) (Days, error) {
	start = truncateDay(start)
	end = truncateDay(end)
	if end.Before(start) {
		return ZeroDays(), ErrInvalidDateRange
	}

	total := ZeroDays()
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		total = total.Add(Classify(d, holidays).cost())
	}
	return total.Mul(unit.multiplier()), nil
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
