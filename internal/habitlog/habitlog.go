// Package habitlog records habit completions for one user and answers
// "done today?" questions from what it has fetched.
package habitlog

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dukerupert/fittrack/internal/apperror"
	"github.com/dukerupert/fittrack/internal/model"
	"github.com/dukerupert/fittrack/internal/recurrence"
)

// Table is the remote habit_logs table, scoped by userID.
type Table interface {
	List(ctx context.Context, userID, habitID string) ([]model.HabitLog, error)
	ListBetween(ctx context.Context, userID string, start, end time.Time) ([]model.HabitLog, error)
	Insert(ctx context.Context, userID, habitID string, notes *string, completedAt time.Time) (*model.HabitLog, error)
	Delete(ctx context.Context, userID, id string) error
}

const maxNotes = 500

// Repository holds two views: every log fetched by ListAll and today's logs
// fetched by ListToday. Both change only after a successful remote call.
type Repository struct {
	table  Table
	userID string
	loc    *time.Location
	now    func() time.Time

	mu    sync.Mutex
	all   []model.HabitLog
	today []model.HabitLog
}

// NewRepository binds a repository to userID. "Today" is the calendar day in
// loc; a nil loc means UTC.
func NewRepository(table Table, userID string, loc *time.Location) *Repository {
	if loc == nil {
		loc = time.UTC
	}
	return &Repository{table: table, userID: userID, loc: loc, now: time.Now}
}

// WithClock replaces the time source. Tests use it to pin "now".
func (r *Repository) WithClock(now func() time.Time) *Repository {
	r.now = now
	return r
}

// Now returns the current time in the repository's location.
func (r *Repository) Now() time.Time {
	return r.now().In(r.loc)
}

func (r *Repository) Location() *time.Location {
	return r.loc
}

// ListAll fetches every log of the user, or of one habit when habitID is
// set, newest first. It replaces the all-logs view.
func (r *Repository) ListAll(ctx context.Context, habitID string) ([]model.HabitLog, error) {
	logs, err := r.table.List(ctx, r.userID, habitID)
	if err != nil {
		return nil, apperror.Remote("Error fetching logs", err)
	}
	r.mu.Lock()
	r.all = logs
	r.mu.Unlock()
	return slices.Clone(logs), nil
}

// ListToday fetches logs completed within the current local day and
// replaces the today view.
func (r *Repository) ListToday(ctx context.Context) ([]model.HabitLog, error) {
	start, end := recurrence.DayBounds(r.Now())
	logs, err := r.table.ListBetween(ctx, r.userID, start, end)
	if err != nil {
		return nil, apperror.Remote("Error fetching today's logs", err)
	}
	r.mu.Lock()
	r.today = logs
	r.mu.Unlock()
	return slices.Clone(logs), nil
}

// LogCompletion records a completion for habitID. A zero completedAt means
// now.
func (r *Repository) LogCompletion(ctx context.Context, habitID, notes string, completedAt time.Time) (*model.HabitLog, error) {
	notes = strings.TrimSpace(notes)
	if len([]rune(notes)) > maxNotes {
		return nil, apperror.ValidationErrors{{Field: "notes", Message: "Notes must be less than 500 characters"}}
	}
	if completedAt.IsZero() {
		completedAt = r.now()
	}
	var n *string
	if notes != "" {
		n = &notes
	}

	l, err := r.table.Insert(ctx, r.userID, habitID, n, completedAt)
	if err != nil {
		return nil, apperror.Remote("Error logging habit", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.all = append([]model.HabitLog{*l}, r.all...)
	if recurrence.InDay(l.CompletedAt, r.Now()) {
		r.today = append([]model.HabitLog{*l}, r.today...)
	}
	return l, nil
}

// Undo deletes one log and drops it from both views.
func (r *Repository) Undo(ctx context.Context, logID string) error {
	if err := r.table.Delete(ctx, r.userID, logID); err != nil {
		return apperror.Remote("Error removing log", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	drop := func(l model.HabitLog) bool { return l.ID == logID }
	r.all = slices.DeleteFunc(r.all, drop)
	r.today = slices.DeleteFunc(r.today, drop)
	return nil
}

// Logs returns a copy of the all-logs view.
func (r *Repository) Logs() []model.HabitLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.all)
}

// TodayLogs returns a copy of the today view.
func (r *Repository) TodayLogs() []model.HabitLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.today)
}

// IsCompletedToday reports whether any log for habitID falls in today.
func (r *Repository) IsCompletedToday(habitID string) bool {
	return r.TodayLogFor(habitID) != nil
}

// TodayLogFor returns the most recent log for habitID completed today, or nil.
func (r *Repository) TodayLogFor(habitID string) *model.HabitLog {
	now := r.Now()
	var best *model.HabitLog
	for _, l := range r.merged() {
		if l.HabitID != habitID || !recurrence.InDay(l.CompletedAt, now) {
			continue
		}
		if best == nil || l.CompletedAt.After(best.CompletedAt) {
			best = &l
		}
	}
	return best
}

// CountInRange counts logs for habitID on date's local calendar day.
func (r *Repository) CountInRange(habitID string, date time.Time) int {
	day := date.In(r.loc)
	n := 0
	for _, l := range r.merged() {
		if l.HabitID == habitID && recurrence.InDay(l.CompletedAt, day) {
			n++
		}
	}
	return n
}

// merged returns the union of both views, de-duplicated by id.
func (r *Repository) merged() []model.HabitLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]bool, len(r.all)+len(r.today))
	out := make([]model.HabitLog, 0, len(r.all)+len(r.today))
	for _, view := range [][]model.HabitLog{r.today, r.all} {
		for _, l := range view {
			if seen[l.ID] {
				continue
			}
			seen[l.ID] = true
			out = append(out, l)
		}
	}
	return out
}
