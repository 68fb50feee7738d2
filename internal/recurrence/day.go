package recurrence

import "time"

// StartOfDay returns local midnight of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DayBounds returns the half-open window [start, end) covering t's local
// calendar day. end is the next local midnight, which is not always 24h later.
func DayBounds(t time.Time) (start, end time.Time) {
	start = StartOfDay(t)
	end = time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, t.Location())
	return start, end
}

// InDay reports whether ts falls within day's local calendar day.
func InDay(ts, day time.Time) bool {
	start, end := DayBounds(day)
	return !ts.Before(start) && ts.Before(end)
}
