package habit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dukerupert/fittrack/internal/apperror"
	"github.com/dukerupert/fittrack/internal/model"
)

var errUnavailable = errors.New("connection refused")

// memTable is an in-memory Table that counts calls and can be told to fail.
type memTable struct {
	mu     sync.Mutex
	rows   []model.Habit
	seq    int
	calls  int
	fail   bool
	now    time.Time
	lastUp model.HabitPatch
}

func newMemTable() *memTable {
	return &memTable{now: time.Date(2024, 3, 6, 9, 0, 0, 0, time.UTC)}
}

func (m *memTable) call() error {
	m.calls++
	if m.fail {
		return errUnavailable
	}
	return nil
}

func (m *memTable) List(_ context.Context, userID string, includeArchived bool) ([]model.Habit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call(); err != nil {
		return nil, err
	}
	out := []model.Habit{}
	for i := len(m.rows) - 1; i >= 0; i-- {
		h := m.rows[i]
		if h.UserID != userID {
			continue
		}
		if !includeArchived && h.Status != model.StatusActive {
			continue
		}
		out = append(out, h)
	}
	return out, nil
}

func (m *memTable) Get(_ context.Context, userID, id string) (*model.Habit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call(); err != nil {
		return nil, err
	}
	for _, h := range m.rows {
		if h.ID == id && h.UserID == userID {
			return &h, nil
		}
	}
	return nil, nil
}

func (m *memTable) Insert(_ context.Context, userID string, in model.HabitInput) (*model.Habit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call(); err != nil {
		return nil, err
	}
	m.seq++
	m.now = m.now.Add(time.Minute)
	h := model.Habit{
		ID:              fmt.Sprintf("h%d", m.seq),
		UserID:          userID,
		Name:            in.Name,
		Category:        in.Category,
		Frequency:       in.Frequency,
		FrequencyDays:   in.FrequencyDays,
		TargetPerPeriod: in.TargetPerPeriod,
		Color:           in.Color,
		Icon:            in.Icon,
		Status:          model.StatusActive,
		CreatedAt:       m.now,
		UpdatedAt:       m.now,
	}
	if in.Description != "" {
		d := in.Description
		h.Description = &d
	}
	m.rows = append(m.rows, h)
	return &h, nil
}

func (m *memTable) Update(_ context.Context, userID, id string, patch model.HabitPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call(); err != nil {
		return err
	}
	m.lastUp = patch
	for i, h := range m.rows {
		if h.ID == id && h.UserID == userID {
			m.rows[i] = patch.Apply(h)
			return nil
		}
	}
	return fmt.Errorf("update habit: %w", apperror.ErrNotFound)
}

func (m *memTable) Delete(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call(); err != nil {
		return err
	}
	for i, h := range m.rows {
		if h.ID == id && h.UserID == userID {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("delete habit: %w", apperror.ErrNotFound)
}
