package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dukerupert/fittrack/internal/apperror"
	"github.com/dukerupert/fittrack/internal/model"
)

type LogStore struct {
	db *pgxpool.Pool
}

func NewLogStore(db *pgxpool.Pool) *LogStore {
	return &LogStore{db: db}
}

const logCols = `id, habit_id, user_id, completed_at, notes, created_at`

func scanLog(row pgx.Row) (*model.HabitLog, error) {
	var l model.HabitLog
	if err := row.Scan(&l.ID, &l.HabitID, &l.UserID, &l.CompletedAt, &l.Notes, &l.CreatedAt); err != nil {
		return nil, err
	}
	l.CompletedAt = l.CompletedAt.UTC()
	l.CreatedAt = l.CreatedAt.UTC()
	return &l, nil
}

func collectLogs(rows pgx.Rows) ([]model.HabitLog, error) {
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

func (s *LogStore) List(ctx context.Context, userID, habitID string) ([]model.HabitLog, error) {
	query := `SELECT ` + logCols + ` FROM habit_logs WHERE user_id = $1`
	args := []any{userID}
	if habitID != "" {
		query += ` AND habit_id = $2`
		args = append(args, habitID)
	}
	query += ` ORDER BY completed_at DESC, created_at DESC`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list habit logs: %w", err)
	}
	return collectLogs(rows)
}

func (s *LogStore) ListBetween(ctx context.Context, userID string, start, end time.Time) ([]model.HabitLog, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+logCols+` FROM habit_logs
		 WHERE user_id = $1 AND completed_at >= $2 AND completed_at < $3
		 ORDER BY completed_at DESC, created_at DESC`,
		userID, start.UTC(), end.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list habit logs by range: %w", err)
	}
	return collectLogs(rows)
}

// Insert refuses habits the user does not own with apperror.ErrNotFound.
func (s *LogStore) Insert(ctx context.Context, userID, habitID string, notes *string, completedAt time.Time) (*model.HabitLog, error) {
	if notes != nil && *notes == "" {
		notes = nil
	}
	row := s.db.QueryRow(ctx,
		`INSERT INTO habit_logs (id, habit_id, user_id, completed_at, notes)
		 SELECT $1, $2, $3, $4, $5
		 WHERE EXISTS (SELECT 1 FROM habits WHERE id = $2 AND user_id = $3)
		 RETURNING `+logCols,
		uuid.NewString(), habitID, userID, completedAt.UTC(), notes,
	)
	l, err := scanLog(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("insert habit log: %w", apperror.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("insert habit log: %w", err)
	}
	return l, nil
}

func (s *LogStore) Delete(ctx context.Context, userID, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM habit_logs WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete habit log: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete habit log: %w", apperror.ErrNotFound)
	}
	return nil
}

func (s *LogStore) Count(ctx context.Context, userID string) (int, error) {
	var n int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM habit_logs WHERE user_id = $1`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count habit logs: %w", err)
	}
	return n, nil
}
