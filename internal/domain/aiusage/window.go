package aiusage

import "time"

// MonthWindow returns the half-open [start, end) interval of the calendar
// month containing now. All budget windows are computed in UTC so that every
// instance agrees on month boundaries regardless of server locale.
func MonthWindow(now time.Time) (start, end time.Time) {
	utc := now.UTC()
	start = time.Date(utc.Year(), utc.Month(), 1, 0, 0, 0, 0, time.UTC)
	end = start.AddDate(0, 1, 0)
	return start, end
}

// TrailingWindow returns the half-open [now-d, now) sliding interval used by
// rate limiting and trigger evaluation. Wall-clock, not calendar-aligned.
func TrailingWindow(now time.Time, d time.Duration) (start, end time.Time) {
	end = now.UTC()
	return end.Add(-d), end
}
