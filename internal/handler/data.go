package handler

import (
	"context"
	"time"

	"github.com/dukerupert/fittrack/internal/auth"
	"github.com/dukerupert/fittrack/internal/habit"
	"github.com/dukerupert/fittrack/internal/habitlog"
)

// LogTable is the habit_logs table plus the per-user count shown on the
// profile page.
type LogTable interface {
	habitlog.Table
	Count(ctx context.Context, userID string) (int, error)
}

// Data builds the signed-in user's repositories for a single request.
// Location is the zone used when the user has none set. A nil Clock means
// time.Now.
type Data struct {
	Habits   habit.Table
	Logs     LogTable
	Location *time.Location
	Clock    func() time.Time
}

func (d Data) habits(ctx context.Context) *habit.Repository {
	return habit.NewRepository(d.Habits, auth.UserID(ctx))
}

func (d Data) logs(ctx context.Context) *habitlog.Repository {
	ac, _ := auth.FromContext(ctx)
	lr := habitlog.NewRepository(d.Logs, ac.UserID, ac.Location(d.Location))
	if d.Clock != nil {
		lr.WithClock(d.Clock)
	}
	return lr
}
