// Package recurrence decides which calendar days a habit is due on.
package recurrence

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/fittrack/internal/model"
)

var dayAbbrev = map[time.Weekday]string{
	time.Sunday:    "Sun",
	time.Monday:    "Mon",
	time.Tuesday:   "Tue",
	time.Wednesday: "Wed",
	time.Thursday:  "Thu",
	time.Friday:    "Fri",
	time.Saturday:  "Sat",
}

// IsDueOn reports whether the habit's schedule selects the calendar day of
// date. The weekday is taken in date's own location, so callers pass a time
// already converted to the user's zone.
func IsDueOn(h model.Habit, date time.Time) bool {
	switch h.Frequency {
	case model.FrequencyDaily:
		return true
	case model.FrequencyWeekly, model.FrequencyCustom:
		return slices.Contains(h.FrequencyDays, int(date.Weekday()))
	default:
		return false
	}
}

// NormalizeDays returns the weekday indices sorted with duplicates removed.
func NormalizeDays(days []int) []int {
	if len(days) == 0 {
		return []int{}
	}
	out := slices.Clone(days)
	slices.Sort(out)
	return slices.Compact(out)
}

// ParseWeekdays converts form values ("0".."6") into weekday indices.
func ParseWeekdays(values []string) ([]int, error) {
	days := make([]int, 0, len(values))
	for _, v := range values {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("invalid weekday %q", v)
		}
		if n < 0 || n > 6 {
			return nil, fmt.Errorf("weekday %d out of range", n)
		}
		days = append(days, n)
	}
	return NormalizeDays(days), nil
}

// WeekdayLabel returns the short English label for weekday index d.
func WeekdayLabel(d int) string {
	if d < 0 || d > 6 {
		return "?"
	}
	return dayAbbrev[time.Weekday(d)]
}

// Describe returns a short human-readable schedule, e.g. "Daily" or
// "Mon, Wed, Fri".
func Describe(h model.Habit) string {
	switch h.Frequency {
	case model.FrequencyDaily:
		return "Daily"
	case model.FrequencyWeekly, model.FrequencyCustom:
		days := NormalizeDays(h.FrequencyDays)
		if len(days) == 0 {
			if h.Frequency == model.FrequencyWeekly {
				return "Weekly"
			}
			return "No days selected"
		}
		if len(days) == 7 {
			return "Every day"
		}
		labels := make([]string, len(days))
		for i, d := range days {
			labels[i] = WeekdayLabel(d)
		}
		return strings.Join(labels, ", ")
	}
	return string(h.Frequency)
}
