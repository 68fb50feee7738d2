package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/fittrack/internal/model"
)

// LogStore is the habit_logs table.
type LogStore struct {
	db *sql.DB
}

func NewLogStore(db *sql.DB) *LogStore {
	return &LogStore{db: db}
}

const logCols = `id, habit_id, user_id, completed_at, notes, created_at`

func scanLog(scanner interface{ Scan(...any) error }) (*model.HabitLog, error) {
	var l model.HabitLog
	var notes sql.NullString
	var completedAt, createdAt string

	if err := scanner.Scan(&l.ID, &l.HabitID, &l.UserID, &completedAt, &notes, &createdAt); err != nil {
		return nil, err
	}
	if notes.Valid {
		l.Notes = &notes.String
	}
	var err error
	if l.CompletedAt, err = parseTime(completedAt); err != nil {
		return nil, err
	}
	if l.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &l, nil
}

func scanLogs(rows *sql.Rows) ([]model.HabitLog, error) {
	defer rows.Close()
	logs := []model.HabitLog{}
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan habit log: %w", err)
		}
		logs = append(logs, *l)
	}
	return logs, rows.Err()
}

// List returns the user's logs newest first, optionally for one habit.
func (s *LogStore) List(ctx context.Context, userID, habitID string) ([]model.HabitLog, error) {
	query := `SELECT ` + logCols + ` FROM habit_logs WHERE user_id = ?`
	args := []any{userID}
	if habitID != "" {
		query += ` AND habit_id = ?`
		args = append(args, habitID)
	}
	query += ` ORDER BY completed_at DESC, created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list habit logs: %w", err)
	}
	return scanLogs(rows)
}

// ListBetween returns the user's logs with start <= completed_at < end.
func (s *LogStore) ListBetween(ctx context.Context, userID string, start, end time.Time) ([]model.HabitLog, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+logCols+` FROM habit_logs
		 WHERE user_id = ? AND completed_at >= ? AND completed_at < ?
		 ORDER BY completed_at DESC, created_at DESC`,
		userID, formatTime(start), formatTime(end),
	)
	if err != nil {
		return nil, fmt.Errorf("list habit logs by range: %w", err)
	}
	return scanLogs(rows)
}

// Insert records a completion. The habit must belong to the user; otherwise
// apperror.ErrNotFound is returned and nothing is written.
func (s *LogStore) Insert(ctx context.Context, userID, habitID string, notes *string, completedAt time.Time) (*model.HabitLog, error) {
	var n sql.NullString
	if notes != nil && *notes != "" {
		n = sql.NullString{String: *notes, Valid: true}
	}
	id := uuid.NewString()

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO habit_logs (id, habit_id, user_id, completed_at, notes, created_at)
		 SELECT ?, ?, ?, ?, ?, ?
		 WHERE EXISTS (SELECT 1 FROM habits WHERE id = ? AND user_id = ?)`,
		id, habitID, userID, formatTime(completedAt), n, formatTime(time.Now()),
		habitID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert habit log: %w", err)
	}
	if err := requireRow(result, "insert habit log"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+logCols+` FROM habit_logs WHERE id = ?`, id)
	l, err := scanLog(row)
	if err != nil {
		return nil, fmt.Errorf("read habit log: %w", err)
	}
	return l, nil
}

// Delete removes one of the user's logs.
func (s *LogStore) Delete(ctx context.Context, userID, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM habit_logs WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete habit log: %w", err)
	}
	return requireRow(result, "delete habit log")
}

// Count returns how many completions the user has logged in total.
func (s *LogStore) Count(ctx context.Context, userID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM habit_logs WHERE user_id = ?`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count habit logs: %w", err)
	}
	return n, nil
}

