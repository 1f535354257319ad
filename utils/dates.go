// utils/dates.go
package utils

import "time"

func BeginningOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// DaysBetween counts calendar days from start to end. Both dates are read in
// UTC so DATE columns (scanned at UTC midnight) compare without DST drift.
func DaysBetween(start, end time.Time) int {
	start = BeginningOfDay(start.UTC())
	end = BeginningOfDay(end.UTC())
	return int(end.Sub(start).Hours() / 24)
}
