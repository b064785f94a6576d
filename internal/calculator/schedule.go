package calculator

import (
	"time"

	"github.com/mmynk/roomsync/internal/models"
)

// NextDue returns the due date one cadence step after due.
func NextDue(due time.Time, cadence models.Cadence) time.Time {
	switch cadence {
	case models.CadenceWeekly:
		return due.AddDate(0, 0, 7)
	case models.CadenceYearly:
		return AddMonths(due, 12)
	default:
		return AddMonths(due, 1)
	}
}

// AddMonths adds n calendar months to t, clamping the day to the last day of
// the target month (Jan 31 + 1 month = Feb 28).
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	lastDay := first.AddDate(0, 1, -1).Day()
	if d > lastDay {
		d = lastDay
	}
	return first.AddDate(0, 0, d-1)
}

// FirstOfNextMonth returns midnight UTC on the first day of the month after now.
func FirstOfNextMonth(now time.Time) time.Time {
	y, m, _ := now.UTC().Date()
	return time.Date(y, m+1, 1, 0, 0, 0, 0, time.UTC)
}

// DateOnly truncates t to midnight UTC of its calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
