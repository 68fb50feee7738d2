package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dukerupert/fittrack/internal/apperror"
	"github.com/dukerupert/fittrack/internal/model"
)

type HabitStore struct {
	db *pgxpool.Pool
}

func NewHabitStore(db *pgxpool.Pool) *HabitStore {
	return &HabitStore{db: db}
}

const habitCols = `id, user_id, name, description, category, frequency, frequency_days, target_per_period, color, icon, status, created_at, updated_at`

func scanHabit(row pgx.Row) (*model.Habit, error) {
	var h model.Habit
	var days []int32
	err := row.Scan(
		&h.ID, &h.UserID, &h.Name, &h.Description, &h.Category, &h.Frequency,
		&days, &h.TargetPerPeriod, &h.Color, &h.Icon, &h.Status,
		&h.CreatedAt, &h.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	h.FrequencyDays = make([]int, len(days))
	for i, d := range days {
		h.FrequencyDays[i] = int(d)
	}
	h.CreatedAt = h.CreatedAt.UTC()
	h.UpdatedAt = h.UpdatedAt.UTC()
	return &h, nil
}

func toInt32(days []int) []int32 {
	out := make([]int32, len(days))
	for i, d := range days {
		out[i] = int32(d)
	}
	return out
}

func nullableText(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (s *HabitStore) List(ctx context.Context, userID string, includeArchived bool) ([]model.Habit, error) {
	query := `SELECT ` + habitCols + ` FROM habits WHERE user_id = $1`
	args := []any{userID}
	if !includeArchived {
		query += ` AND status = $2`
		args = append(args, string(model.StatusActive))
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}
	defer rows.Close()

	habits := []model.Habit{}
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan habit: %w", err)
		}
		habits = append(habits, *h)
	}
	return habits, rows.Err()
}

func (s *HabitStore) Get(ctx context.Context, userID, id string) (*model.Habit, error) {
	row := s.db.QueryRow(ctx, `SELECT `+habitCols+` FROM habits WHERE id = $1 AND user_id = $2`, id, userID)
	h, err := scanHabit(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get habit: %w", err)
	}
	return h, nil
}

func (s *HabitStore) Insert(ctx context.Context, userID string, in model.HabitInput) (*model.Habit, error) {
	row := s.db.QueryRow(ctx,
		`INSERT INTO habits (id, user_id, name, description, category, frequency, frequency_days, target_per_period, color, icon, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING `+habitCols,
		uuid.NewString(), userID, in.Name, nullableText(in.Description),
		string(in.Category), string(in.Frequency), toInt32(in.FrequencyDays),
		in.TargetPerPeriod, in.Color, in.Icon, string(model.StatusActive),
	)
	h, err := scanHabit(row)
	if err != nil {
		return nil, fmt.Errorf("insert habit: %w", err)
	}
	return h, nil
}

func (s *HabitStore) Update(ctx context.Context, userID, id string, patch model.HabitPatch) error {
	var sets []string
	var args []any
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Description != nil {
		add("description", nullableText(*patch.Description))
	}
	if patch.Category != nil {
		add("category", string(*patch.Category))
	}
	if patch.Frequency != nil {
		add("frequency", string(*patch.Frequency))
	}
	if patch.FrequencyDays != nil {
		add("frequency_days", toInt32(*patch.FrequencyDays))
	}
	if patch.TargetPerPeriod != nil {
		add("target_per_period", *patch.TargetPerPeriod)
	}
	if patch.Color != nil {
		add("color", *patch.Color)
	}
	if patch.Icon != nil {
		add("icon", *patch.Icon)
	}
	if patch.Status != nil {
		add("status", string(*patch.Status))
	}
	sets = append(sets, "updated_at = NOW()")

	args = append(args, id, userID)
	query := fmt.Sprintf(`UPDATE habits SET %s WHERE id = $%d AND user_id = $%d`,
		strings.Join(sets, ", "), len(args)-1, len(args))

	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update habit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update habit: %w", apperror.ErrNotFound)
	}
	return nil
}

func (s *HabitStore) Delete(ctx context.Context, userID, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM habits WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete habit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete habit: %w", apperror.ErrNotFound)
	}
	return nil
}
