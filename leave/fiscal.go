package leave

import "time"

// =============================================================================
// FISCAL YEAR - October 1 to September 30
// =============================================================================

// FiscalYearOf maps a date to its fiscal year identifier. The fiscal year
// runs October 1 to September 30 and is identified by the calendar year in
// which it ends: October-December dates belong to the following year's
// identifier.
//
// This is the single source of truth for fiscal resolution; balance lookups
// and request resolution must both route through it.
func FiscalYearOf(date time.Time) int {
	if date.Month() >= time.October {
		return date.Year() + 1
	}
	return date.Year()
}

// FiscalPeriod is the labeled accounting period for one fiscal year.
type FiscalPeriod struct {
	Year  int
	Start time.Time
	End   time.Time
}

// PeriodOf returns the period for a fiscal year identifier:
// October 1 of (year-1) through September 30 of (year).
func PeriodOf(year int) FiscalPeriod {
	return FiscalPeriod{
		Year:  year,
		Start: time.Date(year-1, time.October, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(year, time.September, 30, 0, 0, 0, 0, time.UTC),
	}
}

// Contains reports whether the date falls inside the period [Start, End].
func (p FiscalPeriod) Contains(date time.Time) bool {
	d := truncateDay(date)
	return !d.Before(p.Start) && !d.After(p.End)
}
