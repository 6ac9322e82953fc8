package loan

import "time"

// DateLayout is the wire format for all schedule dates.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD date. ok is false for anything else.
func ParseDate(s string) (time.Time, bool) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// IsBusinessDay reports whether t is a weekday that is not a Canadian
// federal holiday.
func IsBusinessDay(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return !isHoliday(t)
}

// PreviousBusinessDay walks backward from t (inclusive) to the nearest
// business day.
func PreviousBusinessDay(t time.Time) time.Time {
	for !IsBusinessDay(t) {
		t = t.AddDate(0, 0, -1)
	}
	return t
}

// isHoliday covers the Canadian federal holiday calendar. Dates that
// fall on a weekend are already non-business days, so observed shifts
// are not modeled here.
func isHoliday(t time.Time) bool {
	month, day := t.Month(), t.Day()

	switch {
	case month == time.January && day == 1: // New Year's Day
		return true
	case month == time.July && day == 1: // Canada Day
		return true
	case month == time.September && day == 30: // Truth and Reconciliation
		return true
	case month == time.November && day == 11: // Remembrance Day
		return true
	case month == time.December && (day == 25 || day == 26): // Christmas, Boxing Day
		return true
	}

	if t.Equal(goodFriday(t.Year())) {
		return true
	}
	if month == time.May && t.Weekday() == time.Monday && day >= 18 && day <= 24 {
		return true // Victoria Day: the Monday preceding May 25
	}
	if month == time.September && t.Weekday() == time.Monday && day <= 7 {
		return true // Labour Day: first Monday of September
	}
	if month == time.October && t.Weekday() == time.Monday && day >= 8 && day <= 14 {
		return true // Thanksgiving: second Monday of October
	}

	return false
}

// goodFriday computes Good Friday for a year using the anonymous
// Gregorian computus for Easter Sunday, minus two days.
func goodFriday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	easter := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return easter.AddDate(0, 0, -2)
}

// LastDayOfMonth returns t moved to the final calendar day of its month.
func LastDayOfMonth(t time.Time) time.Time {
	firstOfNext := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).AddDate(0, 1, 0)
	return firstOfNext.AddDate(0, 0, -1)
}

// firstSemiMonthlyAnchor snaps a start date onto the twice-monthly
// anchor pattern: payments land on the 15th and the last calendar day
// of each month. A date already on an anchor is used as-is; a date
// before the 15th anchors to the 15th of the same month; a later date
// anchors to the last day of the same month.
func firstSemiMonthlyAnchor(t time.Time) time.Time {
	last := LastDayOfMonth(t)
	switch {
	case t.Day() == 15 || t.Day() == last.Day():
		return t
	case t.Day() < 15:
		return time.Date(t.Year(), t.Month(), 15, 0, 0, 0, 0, t.Location())
	default:
		return last
	}
}

// nextSemiMonthlyAnchor alternates 15th / last-day from a date that is
// already on an anchor.
func nextSemiMonthlyAnchor(t time.Time) time.Time {
	if t.Day() == 15 {
		return LastDayOfMonth(t)
	}
	// Last day of the month: next anchor is the 15th of the following month.
	next := t.AddDate(0, 0, 1) // first of next month
	return time.Date(next.Year(), next.Month(), 15, 0, 0, 0, 0, t.Location())
}
