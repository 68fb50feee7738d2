// Package dashboard composes the "due today" summary from habits and
// today's completion logs.
package dashboard

import (
	"time"

	"github.com/dukerupert/fittrack/internal/model"
	"github.com/dukerupert/fittrack/internal/recurrence"
)

// Row is one habit due today with its completions so far.
type Row struct {
	Habit model.Habit     `json:"habit"`
	Count int             `json:"count"`
	Done  bool            `json:"done"`
	Log   *model.HabitLog `json:"latest_log,omitempty"`
}

type Summary struct {
	Date  time.Time `json:"date"`
	Rows  []Row     `json:"habits"`
	Done  int       `json:"completed"`
	Total int       `json:"total"`
}

// Build keeps active habits due on now's calendar day (in now's location)
// and counts their logs completed that day. A habit is done once its count
// reaches target_per_period.
func Build(habits []model.Habit, logs []model.HabitLog, now time.Time) Summary {
	s := Summary{Date: recurrence.StartOfDay(now), Rows: []Row{}}
	for _, h := range habits {
		if h.Status != model.StatusActive || !recurrence.IsDueOn(h, now) {
			continue
		}
		row := Row{Habit: h}
		for i := range logs {
			l := logs[i]
			if l.HabitID != h.ID || !recurrence.InDay(l.CompletedAt, now) {
				continue
			}
			row.Count++
			if row.Log == nil || l.CompletedAt.After(row.Log.CompletedAt) {
				row.Log = &logs[i]
			}
		}
		target := h.TargetPerPeriod
		if target < 1 {
			target = 1
		}
		row.Done = row.Count >= target
		if row.Done {
			s.Done++
		}
		s.Rows = append(s.Rows, row)
	}
	s.Total = len(s.Rows)
	return s
}

// Ratio is done/due, or 0 when nothing is due.
func (s Summary) Ratio() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Done) / float64(s.Total)
}

// Percent is Ratio rounded to a whole percentage.
func (s Summary) Percent() int {
	return int(s.Ratio()*100 + 0.5)
}

func (s Summary) AllDone() bool {
	return s.Total > 0 && s.Done == s.Total
}
