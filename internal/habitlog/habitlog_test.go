package habitlog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/fittrack/internal/apperror"
	"github.com/dukerupert/fittrack/internal/model"
)

var errUnavailable = errors.New("connection refused")

type memTable struct {
	mu     sync.Mutex
	owners map[string]string
	rows   []model.HabitLog
	seq    int
	calls  int
	fail   bool
}

func newMemTable() *memTable {
	return &memTable{owners: map[string]string{"h1": "u1", "h2": "u1", "hx": "u2"}}
}

func (m *memTable) List(_ context.Context, userID, habitID string) ([]model.HabitLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.fail {
		return nil, errUnavailable
	}
	out := []model.HabitLog{}
	for i := len(m.rows) - 1; i >= 0; i-- {
		l := m.rows[i]
		if l.UserID == userID && (habitID == "" || l.HabitID == habitID) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memTable) ListBetween(_ context.Context, userID string, start, end time.Time) ([]model.HabitLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.fail {
		return nil, errUnavailable
	}
	out := []model.HabitLog{}
	for _, l := range m.rows {
		if l.UserID == userID && !l.CompletedAt.Before(start) && l.CompletedAt.Before(end) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memTable) Insert(_ context.Context, userID, habitID string, notes *string, completedAt time.Time) (*model.HabitLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.fail {
		return nil, errUnavailable
	}
	if m.owners[habitID] != userID {
		return nil, fmt.Errorf("insert habit log: %w", apperror.ErrNotFound)
	}
	m.seq++
	l := model.HabitLog{
		ID:          fmt.Sprintf("l%d", m.seq),
		HabitID:     habitID,
		UserID:      userID,
		CompletedAt: completedAt.UTC(),
		Notes:       notes,
		CreatedAt:   completedAt.UTC(),
	}
	m.rows = append(m.rows, l)
	return &l, nil
}

func (m *memTable) Delete(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.fail {
		return errUnavailable
	}
	for i, l := range m.rows {
		if l.ID == id && l.UserID == userID {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("delete habit log: %w", apperror.ErrNotFound)
}

var wednesday = time.Date(2024, 3, 6, 15, 0, 0, 0, time.UTC)

func newRepo(table *memTable) *Repository {
	return NewRepository(table, "u1", time.UTC).WithClock(func() time.Time { return wednesday })
}

func TestLogCompletionMarksCompletedToday(t *testing.T) {
	repo := newRepo(newMemTable())
	ctx := context.Background()

	if repo.IsCompletedToday("h1") {
		t.Fatal("completed before any log")
	}
	before := repo.CountInRange("h1", wednesday)

	l, err := repo.LogCompletion(ctx, "h1", "", time.Time{})
	if err != nil {
		t.Fatalf("log: %v", err)
	}
	if !l.CompletedAt.Equal(wednesday) {
		t.Errorf("completed_at = %v, want now", l.CompletedAt)
	}
	if l.Notes != nil {
		t.Error("expected nil notes for empty input")
	}
	if !repo.IsCompletedToday("h1") {
		t.Error("expected completed today")
	}
	if got := repo.CountInRange("h1", wednesday); got != before+1 {
		t.Errorf("count = %d, want %d", got, before+1)
	}
	if repo.IsCompletedToday("h2") {
		t.Error("other habit should not be completed")
	}
	if len(repo.Logs()) != 1 || len(repo.TodayLogs()) != 1 {
		t.Errorf("views: all=%d today=%d", len(repo.Logs()), len(repo.TodayLogs()))
	}
}

func TestLogCompletionBackdated(t *testing.T) {
	repo := newRepo(newMemTable())

	yesterday := wednesday.AddDate(0, 0, -1)
	if _, err := repo.LogCompletion(context.Background(), "h1", "late entry", yesterday); err != nil {
		t.Fatalf("log: %v", err)
	}
	if repo.IsCompletedToday("h1") {
		t.Error("backdated log counted as today")
	}
	if len(repo.TodayLogs()) != 0 {
		t.Error("backdated log added to today view")
	}
	if repo.CountInRange("h1", yesterday) != 1 {
		t.Error("expected backdated log counted on its own day")
	}
}

func TestUndoRemovesFromBothViews(t *testing.T) {
	repo := newRepo(newMemTable())
	ctx := context.Background()

	l, _ := repo.LogCompletion(ctx, "h1", "", time.Time{})
	if err := repo.Undo(ctx, l.ID); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if repo.IsCompletedToday("h1") {
		t.Error("still completed after undo")
	}
	for _, v := range repo.Logs() {
		if v.ID == l.ID {
			t.Error("log still in all-logs view")
		}
	}
	for _, v := range repo.TodayLogs() {
		if v.ID == l.ID {
			t.Error("log still in today view")
		}
	}
}

func TestUndoFailureKeepsViews(t *testing.T) {
	table := newMemTable()
	repo := newRepo(table)
	ctx := context.Background()

	l, _ := repo.LogCompletion(ctx, "h1", "", time.Time{})
	table.fail = true
	err := repo.Undo(ctx, l.ID)
	var re *apperror.RemoteError
	if !errors.As(err, &re) {
		t.Fatalf("err = %v, want RemoteError", err)
	}
	if !repo.IsCompletedToday("h1") {
		t.Error("view changed on failed undo")
	}
}

func TestTwoLogsCountTwo(t *testing.T) {
	repo := newRepo(newMemTable())
	ctx := context.Background()

	repo.LogCompletion(ctx, "h1", "", wednesday.Add(-2*time.Hour))
	second, _ := repo.LogCompletion(ctx, "h1", "", time.Time{})

	if got := repo.CountInRange("h1", wednesday); got != 2 {
		t.Errorf("count = %d, want 2", got)
	}
	if got := repo.TodayLogFor("h1"); got == nil || got.ID != second.ID {
		t.Errorf("today log = %+v, want most recent", got)
	}
}

func TestCountDeduplicatesViews(t *testing.T) {
	table := newMemTable()
	ctx := context.Background()
	newRepo(table).LogCompletion(ctx, "h1", "", time.Time{})

	repo := newRepo(table)
	if _, err := repo.ListAll(ctx, ""); err != nil {
		t.Fatalf("list all: %v", err)
	}
	if _, err := repo.ListToday(ctx); err != nil {
		t.Fatalf("list today: %v", err)
	}
	if got := repo.CountInRange("h1", wednesday); got != 1 {
		t.Errorf("count = %d, want 1", got)
	}
}

func TestListTodayUsesLocalDay(t *testing.T) {
	table := newMemTable()
	ctx := context.Background()
	tokyo := time.FixedZone("JST", 9*3600)

	// 16:00 UTC on Mar 6 is 01:00 on Mar 7 in Tokyo.
	NewRepository(table, "u1", time.UTC).LogCompletion(ctx, "h1", "", time.Date(2024, 3, 6, 16, 0, 0, 0, time.UTC))
	// 14:00 UTC on Mar 6 is 23:00 on Mar 6 in Tokyo.
	NewRepository(table, "u1", time.UTC).LogCompletion(ctx, "h2", "", time.Date(2024, 3, 6, 14, 0, 0, 0, time.UTC))

	repo := NewRepository(table, "u1", tokyo).WithClock(func() time.Time {
		return time.Date(2024, 3, 6, 20, 0, 0, 0, time.UTC)
	})
	logs, err := repo.ListToday(ctx)
	if err != nil {
		t.Fatalf("list today: %v", err)
	}
	if len(logs) != 1 || logs[0].HabitID != "h1" {
		t.Errorf("today = %+v, want only h1", logs)
	}
	if !repo.IsCompletedToday("h1") || repo.IsCompletedToday("h2") {
		t.Error("completion flags disagree with the Tokyo calendar day")
	}
}

func TestListAllFiltersByHabit(t *testing.T) {
	table := newMemTable()
	repo := newRepo(table)
	ctx := context.Background()
	repo.LogCompletion(ctx, "h1", "", time.Time{})
	repo.LogCompletion(ctx, "h2", "", time.Time{})

	logs, err := newRepo(table).ListAll(ctx, "h2")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(logs) != 1 || logs[0].HabitID != "h2" {
		t.Errorf("logs = %+v", logs)
	}
}

func TestListFailureKeepsViews(t *testing.T) {
	table := newMemTable()
	repo := newRepo(table)
	ctx := context.Background()
	repo.LogCompletion(ctx, "h1", "", time.Time{})

	table.fail = true
	if _, err := repo.ListAll(ctx, ""); err == nil {
		t.Fatal("expected error")
	}
	if _, err := repo.ListToday(ctx); err == nil {
		t.Fatal("expected error")
	}
	if len(repo.Logs()) != 1 || len(repo.TodayLogs()) != 1 {
		t.Error("views changed on failed fetch")
	}
}

func TestLogCompletionForeignHabit(t *testing.T) {
	repo := newRepo(newMemTable())

	_, err := repo.LogCompletion(context.Background(), "hx", "", time.Time{})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if len(repo.Logs()) != 0 {
		t.Error("view changed on refused insert")
	}
}

func TestLogCompletionNotesTooLong(t *testing.T) {
	table := newMemTable()
	repo := newRepo(table)

	_, err := repo.LogCompletion(context.Background(), "h1", strings.Repeat("n", 501), time.Time{})
	var ve apperror.ValidationErrors
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want ValidationErrors", err)
	}
	if table.calls != 0 {
		t.Errorf("table calls = %d, want 0", table.calls)
	}
}
