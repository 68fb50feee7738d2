package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/fittrack/internal/apperror"
	"github.com/dukerupert/fittrack/internal/model"
)

// HabitStore is the habits table. Every method is scoped to the owning user.
type HabitStore struct {
	db *sql.DB
}

func NewHabitStore(db *sql.DB) *HabitStore {
	return &HabitStore{db: db}
}

const habitCols = `id, user_id, name, description, category, frequency, frequency_days, target_per_period, color, icon, status, created_at, updated_at`

func scanHabit(scanner interface{ Scan(...any) error }) (*model.Habit, error) {
	var h model.Habit
	var description, days sql.NullString
	var createdAt, updatedAt string

	err := scanner.Scan(
		&h.ID, &h.UserID, &h.Name, &description, &h.Category, &h.Frequency,
		&days, &h.TargetPerPeriod, &h.Color, &h.Icon, &h.Status,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if description.Valid {
		h.Description = &description.String
	}
	h.FrequencyDays = []int{}
	if days.Valid && days.String != "" {
		if err := json.Unmarshal([]byte(days.String), &h.FrequencyDays); err != nil {
			return nil, fmt.Errorf("decode frequency_days for habit %s: %w", h.ID, err)
		}
	}
	if h.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if h.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &h, nil
}

func encodeDays(days []int) (string, error) {
	if days == nil {
		days = []int{}
	}
	b, err := json.Marshal(days)
	if err != nil {
		return "", fmt.Errorf("encode frequency_days: %w", err)
	}
	return string(b), nil
}

func nullableText(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// List returns the user's habits newest first. Archived habits are skipped
// unless includeArchived is set.
func (s *HabitStore) List(ctx context.Context, userID string, includeArchived bool) ([]model.Habit, error) {
	query := `SELECT ` + habitCols + ` FROM habits WHERE user_id = ?`
	args := []any{userID}
	if !includeArchived {
		query += ` AND status = ?`
		args = append(args, model.StatusActive)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
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

// Get returns the habit or nil if the user has no habit with that id.
func (s *HabitStore) Get(ctx context.Context, userID, id string) (*model.Habit, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+habitCols+` FROM habits WHERE id = ? AND user_id = ?`, id, userID)
	h, err := scanHabit(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get habit: %w", err)
	}
	return h, nil
}

// Insert stores a new active habit and returns the stored row.
func (s *HabitStore) Insert(ctx context.Context, userID string, in model.HabitInput) (*model.Habit, error) {
	days, err := encodeDays(in.FrequencyDays)
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	now := formatTime(time.Now())

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO habits (id, user_id, name, description, category, frequency, frequency_days, target_per_period, color, icon, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, userID, in.Name, nullableText(in.Description), in.Category, in.Frequency, days,
		in.TargetPerPeriod, in.Color, in.Icon, model.StatusActive, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert habit: %w", err)
	}
	return s.Get(ctx, userID, id)
}

// Update writes only the columns set in patch. It returns
// apperror.ErrNotFound when the user owns no habit with that id.
func (s *HabitStore) Update(ctx context.Context, userID, id string, patch model.HabitPatch) error {
	var sets []string
	var args []any
	add := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}

	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Description != nil {
		add("description", nullableText(*patch.Description))
	}
	if patch.Category != nil {
		add("category", *patch.Category)
	}
	if patch.Frequency != nil {
		add("frequency", *patch.Frequency)
	}
	if patch.FrequencyDays != nil {
		days, err := encodeDays(*patch.FrequencyDays)
		if err != nil {
			return err
		}
		add("frequency_days", days)
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
		add("status", *patch.Status)
	}
	add("updated_at", formatTime(time.Now()))
	args = append(args, id, userID)

	result, err := s.db.ExecContext(ctx,
		`UPDATE habits SET `+strings.Join(sets, ", ")+` WHERE id = ? AND user_id = ?`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("update habit: %w", err)
	}
	return requireRow(result, "update habit")
}

// Delete removes the habit; its logs go with it through the foreign key.
func (s *HabitStore) Delete(ctx context.Context, userID, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM habits WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete habit: %w", err)
	}
	return requireRow(result, "delete habit")
}

func requireRow(result sql.Result, op string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, apperror.ErrNotFound)
	}
	return nil
}
