// Package period computes payday-anchored billing cycles.
//
// A financial period runs from the payday of one month up to, but not
// including, the payday of the next: [Start, End). Payday is capped to 1..28
// by the settings layer so the anchor day exists in every month.
package period

import "time"

// KeyFormat is the canonical textual form of a period key.
const KeyFormat = "2006-01-02"

// Start returns the first day (midnight UTC) of the period containing d.
// Days before the payday belong to the period anchored in the previous month.
func Start(d time.Time, payday int) time.Time {
	d = d.UTC()
	year, month, _ := d.Date()
	if d.Day() < payday {
		month--
		if month < time.January {
			month = time.December
			year--
		}
	}
	return time.Date(year, month, payday, 0, 0, 0, 0, time.UTC)
}

// End returns the exclusive upper bound of the period beginning at start:
// the same anchor day one calendar month later.
func End(start time.Time) time.Time {
	return start.AddDate(0, 1, 0)
}

// Key is the canonical identity of the period containing d. Two dates share
// a period iff their keys are equal.
func Key(d time.Time, payday int) string {
	return Start(d, payday).Format(KeyFormat)
}

// SameCycle reports whether a and b fall in the same financial period.
func SameCycle(a, b time.Time, payday int) bool {
	return Start(a, payday).Equal(Start(b, payday))
}

// Contains reports whether d falls within [start, End(start)).
func Contains(start, d time.Time) bool {
	d = d.UTC()
	return !d.Before(start) && d.Before(End(start))
}

// DaysElapsed is the 1-based count of days from start through now, used as
// the denominator of the spend forecast. Never less than 1.
func DaysElapsed(start, now time.Time) int {
	days := int(now.UTC().Sub(start).Hours()/24) + 1
	if days < 1 {
		return 1
	}
	return days
}

// Back returns the start of the period n cycles before the one containing d.
func Back(d time.Time, payday, n int) time.Time {
	return Start(d, payday).AddDate(0, -n, 0)
}
